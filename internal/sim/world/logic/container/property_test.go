package container

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var propKinds = []string{"oil", "steam", "water"}

type pair struct {
	a, b *Container[string, int]
}

func newPair() pair {
	mk := func() *Container[string, int] {
		return New(Config[string, int]{
			Capacity:     60,
			Accepted:     propKinds,
			KindCapacity: map[string]int{"steam": 25},
			Kinds:        kindInfo,
		})
	}
	return pair{a: mk(), b: mk()}
}

// step decodes one generated integer into an operation and returns the net
// external change it reported.
func (p pair) step(v int) int {
	kind := propKinds[(v/7)%len(propKinds)]
	amount := v/21 + 1
	src, dst := p.a, p.b
	if v%2 == 1 {
		src, dst = p.b, p.a
	}
	switch v % 7 {
	case 0, 1:
		return src.TryAdd(kind, amount).Actual
	case 2:
		return -src.TryRemove(kind, amount).Actual
	case 3, 4:
		src.TryTransferValue(dst, kind, amount)
	case 5:
		src.TryTransferTo(dst, amount)
	default:
		return -src.TryConsume(amount).Actual
	}
	return 0
}

func withinBounds(c *Container[string, int]) bool {
	shared := 0
	for _, k := range c.StoredKinds() {
		q := c.StoredOf(k)
		if q < 0 {
			return false
		}
		if kindInfo(k).SharesCapacity {
			shared += q
		} else if q > c.CapacityOf(k) {
			return false
		}
	}
	return shared <= c.Capacity()
}

func TestContainerInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("combined total changes only by reported external amounts", prop.ForAll(
		func(ops []int) bool {
			p := newPair()
			expected := 0
			for _, v := range ops {
				expected += p.step(v)
				if p.a.TotalStored()+p.b.TotalStored() != expected {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2000)),
	))

	properties.Property("capacity bounds hold after every operation", prop.ForAll(
		func(ops []int) bool {
			p := newPair()
			for _, v := range ops {
				p.step(v)
				if !withinBounds(p.a) || !withinBounds(p.b) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2000)),
	))

	properties.Property("transfers never change the combined total", prop.ForAll(
		func(fill, amount int) bool {
			p := newPair()
			p.a.TryAdd("water", fill)
			p.b.TryAdd("oil", fill/2)
			before := p.a.TotalStored() + p.b.TotalStored()
			p.a.TryTransferValue(p.b, "water", amount)
			p.b.TryTransferTo(p.a, amount)
			return p.a.TotalStored()+p.b.TotalStored() == before
		},
		gen.IntRange(1, 100),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}
