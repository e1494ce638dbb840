package container

import (
	"cmp"
	"maps"

	"flownet.ai/internal/sim/world/logic/valuestack"
)

// SavedState is the persisted part of a container. Derived caches are not
// included; NotifyContainerStateChanged rebuilds them after LoadState.
type SavedState[K cmp.Ordered, Q valuestack.Number] struct {
	Capacity     Q            `json:"capacity"`
	Stored       map[K]Q      `json:"stored,omitempty"`
	KindCapacity map[K]Q      `json:"kind_capacity,omitempty"`
	Filter       map[K]Filter `json:"filter,omitempty"`
}

func (c *Container[K, Q]) State() SavedState[K, Q] {
	s := SavedState[K, Q]{Capacity: c.capacity}
	if len(c.stored) > 0 {
		s.Stored = maps.Clone(c.stored)
	}
	if len(c.kindCapacity) > 0 {
		s.KindCapacity = maps.Clone(c.kindCapacity)
	}
	if len(c.filter) > 0 {
		s.Filter = maps.Clone(c.filter)
	}
	return s
}

// LoadState replaces stored values, capacity overrides and filters. It does
// not notify the holder.
func (c *Container[K, Q]) LoadState(s SavedState[K, Q]) {
	if s.Capacity >= 0 {
		c.capacity = s.Capacity
	}
	c.stored = map[K]Q{}
	for k, q := range s.Stored {
		if q > 0 {
			c.stored[k] = q
		}
	}
	c.kindCapacity = map[K]Q{}
	for k, q := range s.KindCapacity {
		if q > 0 {
			c.kindCapacity[k] = q
		}
	}
	c.filter = map[K]Filter{}
	for k, f := range s.Filter {
		c.filter[k] = f
	}
}
