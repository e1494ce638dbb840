// Package container implements the transactional value accounting engine: a
// capacity-bounded, filtered accumulator of typed values owned by one part.
//
// One algorithm serves every quantity representation; Container is
// instantiated per numeric type instead of being duplicated.
package container

import (
	"cmp"
	"image/color"
	"slices"

	"flownet.ai/internal/sim/world/logic/valuestack"
)

// KindInfo is the per-kind metadata a container needs from the resource
// catalog.
type KindInfo struct {
	SharesCapacity bool
	Color          color.NRGBA
}

// Filter gates what a container does with one kind.
type Filter struct {
	CanReceive  bool `json:"can_receive"`
	CanStore    bool `json:"can_store"`
	CanTransfer bool `json:"can_transfer"`
}

func AllowAll() Filter { return Filter{CanReceive: true, CanStore: true, CanTransfer: true} }

// FillState summarises how full a container is.
type FillState uint8

const (
	Empty FillState = iota
	PartiallyFull
	Full
)

func (f FillState) String() string {
	switch f {
	case Empty:
		return "EMPTY"
	case Full:
		return "FULL"
	default:
		return "PARTIAL"
	}
}

// Holder is the owning part. It is told about every committed mutation.
type Holder[K cmp.Ordered, Q valuestack.Number] interface {
	ContainerStateChanged(delta valuestack.Delta[K, Q], full valuestack.Stack[K, Q])
}

// Hooks let the owner veto individual adds/removes.
type Hooks[K cmp.Ordered, Q valuestack.Number] struct {
	CanAddValue    func(kind K, amount Q) bool
	CanRemoveValue func(kind K, amount Q) bool
}

type Config[K cmp.Ordered, Q valuestack.Number] struct {
	Capacity Q
	Accepted []K
	// KindCapacity overrides the bound of kinds that do not share capacity.
	KindCapacity map[K]Q
	Filter       map[K]Filter
	Kinds        func(K) KindInfo
	Holder       Holder[K, Q]
	Hooks        Hooks[K, Q]
}

type Container[K cmp.Ordered, Q valuestack.Number] struct {
	capacity     Q
	kindCapacity map[K]Q
	accepted     []K
	acceptedSet  map[K]struct{}
	stored       map[K]Q
	filter       map[K]Filter
	kinds        func(K) KindInfo
	holder       Holder[K, Q]
	hooks        Hooks[K, Q]

	// Derived caches, rebuilt on every commit.
	stack       valuestack.Stack[K, Q]
	sharedTotal Q
	color       color.NRGBA
}

func New[K cmp.Ordered, Q valuestack.Number](cfg Config[K, Q]) *Container[K, Q] {
	c := &Container[K, Q]{
		capacity:     cfg.Capacity,
		kindCapacity: map[K]Q{},
		acceptedSet:  map[K]struct{}{},
		stored:       map[K]Q{},
		filter:       map[K]Filter{},
		kinds:        cfg.Kinds,
		holder:       cfg.Holder,
		hooks:        cfg.Hooks,
	}
	if c.capacity < 0 {
		c.capacity = 0
	}
	for _, k := range cfg.Accepted {
		if _, dup := c.acceptedSet[k]; dup {
			continue
		}
		c.acceptedSet[k] = struct{}{}
		c.accepted = append(c.accepted, k)
	}
	slices.Sort(c.accepted)
	for k, q := range cfg.KindCapacity {
		if q > 0 {
			c.kindCapacity[k] = q
		}
	}
	for k, f := range cfg.Filter {
		c.filter[k] = f
	}
	c.rebuild()
	return c
}

// SetHolder attaches the owner after construction.
func (c *Container[K, Q]) SetHolder(h Holder[K, Q]) { c.holder = h }

func (c *Container[K, Q]) Capacity() Q { return c.capacity }

// SetCapacity overrides the def default. Stored values above the new bound
// are kept; only further adds are refused.
func (c *Container[K, Q]) SetCapacity(q Q) {
	if q < 0 {
		q = 0
	}
	c.capacity = q
	c.rebuild()
}

func (c *Container[K, Q]) Accepts(kind K) bool {
	_, ok := c.acceptedSet[kind]
	return ok
}

func (c *Container[K, Q]) FilterOf(kind K) Filter {
	if f, ok := c.filter[kind]; ok {
		return f
	}
	return AllowAll()
}

func (c *Container[K, Q]) SetFilter(kind K, f Filter) { c.filter[kind] = f }

func (c *Container[K, Q]) info(kind K) KindInfo {
	if c.kinds == nil {
		return KindInfo{SharesCapacity: true}
	}
	return c.kinds(kind)
}

func (c *Container[K, Q]) sharesCapacity(kind K) bool { return c.info(kind).SharesCapacity }

// CapacityOf is the bound that applies to kind: the aggregate capacity for
// sharing kinds, the kind's own bound otherwise.
func (c *Container[K, Q]) CapacityOf(kind K) Q {
	if c.sharesCapacity(kind) {
		return c.capacity
	}
	if q, ok := c.kindCapacity[kind]; ok {
		return q
	}
	return c.capacity
}

func (c *Container[K, Q]) usedFor(kind K) Q {
	if c.sharesCapacity(kind) {
		return c.sharedTotal
	}
	return c.stored[kind]
}

// RemainingFor is the true room left for kind.
func (c *Container[K, Q]) RemainingFor(kind K) Q {
	return valuestack.SubClamp(c.CapacityOf(kind), c.usedFor(kind))
}

func (c *Container[K, Q]) IsFullFor(kind K) bool { return c.RemainingFor(kind) <= 0 }

func (c *Container[K, Q]) CanReceive(kind K) bool {
	return c.Accepts(kind) && c.FilterOf(kind).CanReceive
}

func (c *Container[K, Q]) CanStore(kind K) bool { return c.FilterOf(kind).CanStore }

func (c *Container[K, Q]) CanTransfer(kind K) bool { return c.FilterOf(kind).CanTransfer }

func (c *Container[K, Q]) StoredOf(kind K) Q { return c.stored[kind] }

func (c *Container[K, Q]) TotalStored() Q { return c.stack.Total() }

// Stack is the cached snapshot of the stored values.
func (c *Container[K, Q]) Stack() valuestack.Stack[K, Q] { return c.stack }

func (c *Container[K, Q]) StoredKinds() []K { return c.stack.Kinds() }

func (c *Container[K, Q]) Color() color.NRGBA { return c.color }

// Fill returns the quantity counted toward fullness and the bound it is
// measured against. While any accepted kind shares capacity, only the shared
// pool counts; separately bounded kinds never consume it. A container of only
// separately bounded kinds sums their stored amounts and bounds.
func (c *Container[K, Q]) Fill() (used, bound Q) {
	if c.pooled() {
		return c.sharedTotal, c.capacity
	}
	for _, k := range c.accepted {
		kb := c.CapacityOf(k)
		used = valuestack.AddClamp(used, valuestack.Min(c.stored[k], kb))
		bound = valuestack.AddClamp(bound, kb)
	}
	return used, bound
}

func (c *Container[K, Q]) pooled() bool {
	if len(c.accepted) == 0 {
		return true
	}
	for _, k := range c.accepted {
		if c.sharesCapacity(k) {
			return true
		}
	}
	return false
}

func (c *Container[K, Q]) FillRatio() float64 {
	used, bound := c.Fill()
	r := valuestack.Ratio(used, bound)
	if r > 1 {
		return 1
	}
	return r
}

// FillState is Empty when nothing is stored and Full when the bound Fill
// measures against is used up.
func (c *Container[K, Q]) FillState() FillState {
	if c.TotalStored() <= 0 {
		return Empty
	}
	if used, bound := c.Fill(); used >= bound {
		return Full
	}
	return PartiallyFull
}

// TryAdd merges up to amount of kind into the container.
func (c *Container[K, Q]) TryAdd(kind K, amount Q) Result[K, Q] {
	if amount <= 0 {
		return failed(kind, amount, CodeBadAmount)
	}
	if !c.CanReceive(kind) {
		return failed(kind, amount, CodeNotAccepted)
	}
	if c.hooks.CanAddValue != nil && !c.hooks.CanAddValue(kind, amount) {
		return failed(kind, amount, CodeRejected)
	}
	room := c.RemainingFor(kind)
	if room <= 0 {
		return failed(kind, amount, CodeFull)
	}
	actual := valuestack.Min(amount, room)
	if actual <= 0 {
		return failed(kind, amount, CodeFull)
	}
	c.put(kind, actual)
	c.commit()
	return Result[K, Q]{Kind: kind, Desired: amount, Actual: actual, State: stateFor(amount, actual)}
}

// TryRemove takes up to amount of kind out of the container.
func (c *Container[K, Q]) TryRemove(kind K, amount Q) Result[K, Q] {
	if amount <= 0 {
		return failed(kind, amount, CodeBadAmount)
	}
	if c.hooks.CanRemoveValue != nil && !c.hooks.CanRemoveValue(kind, amount) {
		return failed(kind, amount, CodeRejected)
	}
	have := c.stored[kind]
	if have <= 0 {
		return failed(kind, amount, CodeEmpty)
	}
	actual := valuestack.Min(have, amount)
	c.take(kind, actual)
	c.commit()
	return Result[K, Q]{Kind: kind, Desired: amount, Actual: actual, State: stateFor(amount, actual)}
}

// TryTransferValue moves up to amount of kind into other, clamped to what
// this container holds and to other's true remaining room.
func (c *Container[K, Q]) TryTransferValue(other *Container[K, Q], kind K, amount Q) TransferResult[K, Q] {
	fail := func(code string) TransferResult[K, Q] {
		r := failed(kind, amount, code)
		return TransferResult[K, Q]{Removed: r, Added: r, State: Failed}
	}
	switch {
	case amount <= 0:
		return fail(CodeBadAmount)
	case other == nil || other == c:
		return fail(CodeSelf)
	case !c.CanTransfer(kind):
		return fail(CodeNoTransfer)
	case !other.CanReceive(kind):
		return fail(CodeNotAccepted)
	case c.stored[kind] <= 0:
		return fail(CodeEmpty)
	}
	room := other.RemainingFor(kind)
	if room <= 0 {
		return fail(CodeFull)
	}
	want := valuestack.Min(valuestack.Min(amount, room), c.stored[kind])

	removed := c.TryRemove(kind, want)
	if !removed.OK() {
		return TransferResult[K, Q]{Removed: removed, Added: failed(kind, want, removed.Code), State: Failed}
	}
	added := other.TryAdd(kind, removed.Actual)
	if refund := valuestack.SubClamp(removed.Actual, added.Actual); refund > 0 {
		// The receiver vetoed part of it; put it back untouched by filters.
		c.put(kind, refund)
		c.commit()
		removed.Actual -= refund
		removed.State = stateFor(removed.Desired, removed.Actual)
	}
	added.Desired = amount
	added.State = stateFor(amount, added.Actual)
	return TransferResult[K, Q]{Removed: removed, Added: added, State: added.State}
}

// TryTransferTo splits amount evenly across every stored kind and transfers
// each share, stopping at the first kind other cannot accept at all.
func (c *Container[K, Q]) TryTransferTo(other *Container[K, Q], amount Q) Summary[K, Q] {
	return c.transferSplit(other, amount, false)
}

// TryTransferWholeTo is TryTransferTo in whole units: shares are floored and
// the remainder goes to the first kinds, one unit each.
func (c *Container[K, Q]) TryTransferWholeTo(other *Container[K, Q], amount Q) Summary[K, Q] {
	return c.transferSplit(other, amount, !valuestack.IsIntegral[Q]())
}

func (c *Container[K, Q]) transferSplit(other *Container[K, Q], amount Q, units bool) Summary[K, Q] {
	out := Summary[K, Q]{Desired: amount}
	kinds := c.StoredKinds()
	if units {
		amount = valuestack.Floor(amount)
	}
	if amount <= 0 || len(kinds) == 0 || other == nil || other == c {
		return out
	}
	n := Q(len(kinds))
	share := amount / n
	var rem Q
	if units {
		share = valuestack.Floor(share)
	}
	if units || valuestack.IsIntegral[Q]() {
		rem = valuestack.SubClamp(amount, share*n)
	}
	moved := map[K]Q{}
	for i, k := range kinds {
		part := share
		if Q(i) < rem {
			part++
		}
		if units {
			part = valuestack.Floor(valuestack.Min(part, valuestack.Min(c.stored[k], other.RemainingFor(k))))
		}
		if part <= 0 {
			continue
		}
		r := c.TryTransferValue(other, k, part)
		if r.Actual() <= 0 {
			break
		}
		moved[k] += r.Actual()
		out.Actual += r.Actual()
	}
	out.Moved = valuestack.FromMap(moved)
	out.State = stateFor(out.Desired, out.Actual)
	return out
}

// TryConsume satisfies amount from whatever kinds are stored, in kind order.
func (c *Container[K, Q]) TryConsume(amount Q) Summary[K, Q] {
	out := Summary[K, Q]{Desired: amount}
	if amount <= 0 {
		return out
	}
	left := amount
	consumed := map[K]Q{}
	for _, k := range c.StoredKinds() {
		if left <= 0 {
			break
		}
		r := c.TryRemove(k, left)
		if !r.OK() {
			continue
		}
		consumed[k] += r.Actual
		out.Actual += r.Actual
		left = valuestack.SubClamp(left, r.Actual)
	}
	out.Moved = valuestack.FromMap(consumed)
	out.State = stateFor(amount, out.Actual)
	return out
}

// TryConsumeKind consumes up to amount of one kind. It only fails when
// nothing could be removed.
func (c *Container[K, Q]) TryConsumeKind(kind K, amount Q) Result[K, Q] {
	return c.TryRemove(kind, amount)
}

// Clear removes every stored kind through TryRemove so the holder sees each
// removal. It returns what was removed.
func (c *Container[K, Q]) Clear() valuestack.Stack[K, Q] {
	removed := map[K]Q{}
	for _, k := range c.StoredKinds() {
		if r := c.TryRemove(k, c.stored[k]); r.OK() {
			removed[k] = r.Actual
		}
	}
	return valuestack.FromMap(removed)
}

// NotifyContainerStateChanged rebuilds every derived cache (color, stack
// snapshot, totals) and tells the holder. Call it once after LoadState.
func (c *Container[K, Q]) NotifyContainerStateChanged() { c.commit() }

func (c *Container[K, Q]) put(kind K, q Q) {
	c.stored[kind] = valuestack.AddClamp(c.stored[kind], q)
}

func (c *Container[K, Q]) take(kind K, q Q) {
	left := valuestack.SubClamp(c.stored[kind], q)
	if left <= 0 {
		delete(c.stored, kind)
		return
	}
	c.stored[kind] = left
}

func (c *Container[K, Q]) commit() {
	prev := c.stack
	c.rebuild()
	if c.holder == nil {
		return
	}
	c.holder.ContainerStateChanged(valuestack.Diff(prev, c.stack), c.stack)
}

func (c *Container[K, Q]) rebuild() {
	c.stack = valuestack.FromMap(c.stored)
	var shared Q
	for _, e := range c.stack.Entries() {
		if c.sharesCapacity(e.Kind) {
			shared = valuestack.AddClamp(shared, e.Qty)
		}
	}
	c.sharedTotal = shared
	c.color = c.blendColor()
}

// blendColor weights each stored kind's color by its fill of the bound that
// applies to it. Alpha tracks the combined fill.
func (c *Container[K, Q]) blendColor() color.NRGBA {
	var r, g, b, wsum float64
	for _, e := range c.stack.Entries() {
		w := valuestack.Ratio(e.Qty, c.CapacityOf(e.Kind))
		if w <= 0 {
			continue
		}
		col := c.info(e.Kind).Color
		r += w * float64(col.R)
		g += w * float64(col.G)
		b += w * float64(col.B)
		wsum += w
	}
	if wsum <= 0 {
		return color.NRGBA{}
	}
	alpha := wsum
	if alpha > 1 {
		alpha = 1
	}
	return color.NRGBA{
		R: uint8(r/wsum + 0.5),
		G: uint8(g/wsum + 0.5),
		B: uint8(b/wsum + 0.5),
		A: uint8(alpha*255 + 0.5),
	}
}
