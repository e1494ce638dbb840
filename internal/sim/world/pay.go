package world

import (
	"fmt"

	"flownet.ai/internal/sim/world/feature/network"
	"flownet.ai/internal/sim/world/feature/payment"
	"flownet.ai/internal/sim/world/logic/valuestack"
)

func (w *World[Q]) sourceOf(partID uint64) (payment.Source[string, Q], bool) {
	p, ok := w.parts[partID]
	if !ok || p.Container == nil {
		return payment.Source[string, Q]{}, false
	}
	return payment.Source[string, Q]{PartID: partID, Priority: p.Priority, Container: p.Container}, true
}

func (w *World[Q]) paymentSources(netType string, networkID uint64) ([]payment.Source[string, Q], *network.Network, error) {
	m := w.managers[netType]
	if m == nil {
		return nil, nil, fmt.Errorf("%w: type %s", ErrUnknownNetwork, netType)
	}
	n, ok := m.Network(networkID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s %d", ErrUnknownNetwork, netType, networkID)
	}
	return payment.NetworkContainers(n, w.sourceOf), n, nil
}

// Available reports what the storage on a network could pay, per kind.
func (w *World[Q]) Available(netType string, networkID uint64) (map[string]Q, error) {
	srcs, _, err := w.paymentSources(netType, networkID)
	if err != nil {
		return nil, err
	}
	return payment.Available(srcs).Map(), nil
}

// CanPay reports whether the network's storage covers cost in full.
func (w *World[Q]) CanPay(netType string, networkID uint64, cost map[string]Q) (bool, error) {
	srcs, _, err := w.paymentSources(netType, networkID)
	if err != nil {
		return false, err
	}
	return payment.CanPayWith(srcs, valuestack.FromMap(cost)), nil
}

// Pay consumes cost from the network's storage, highest priority first, and
// returns what could not be paid.
func (w *World[Q]) Pay(netType string, networkID uint64, cost map[string]Q) (map[string]Q, error) {
	srcs, n, err := w.paymentSources(netType, networkID)
	if err != nil {
		return nil, err
	}
	c := valuestack.FromMap(cost)
	left := payment.DoPayWith(srcs, c, w.log)
	w.emit(Event{
		Tick:      w.CurrentTick(),
		Type:      EventPayment,
		NetType:   netType,
		NetworkID: n.ID,
		Message:   fmt.Sprintf("cost=%v leftover=%v", c, left),
	})
	return left.Map(), nil
}
