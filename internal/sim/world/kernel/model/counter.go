package model

// Counter hands out monotonically increasing ids. It is owned by one world and
// injected wherever ids are minted; it is not safe for concurrent use.
type Counter struct {
	next uint64
}

func NewCounter(next uint64) *Counter {
	if next == 0 {
		next = 1
	}
	return &Counter{next: next}
}

func (c *Counter) Next() uint64 {
	if c.next == 0 {
		c.next = 1
	}
	id := c.next
	c.next++
	return id
}

// Peek returns the id the next call to Next will produce.
func (c *Counter) Peek() uint64 {
	if c.next == 0 {
		return 1
	}
	return c.next
}

// Observe bumps the counter so it never hands out id again.
func (c *Counter) Observe(id uint64) {
	if id >= c.next {
		c.next = id + 1
	}
}
