package ports

// Connection describes a matched pair of ports: From belongs to the first part,
// To to the second. Forward means values may flow From -> To.
type Connection struct {
	Valid         bool
	From          Cell
	To            Cell
	Forward       bool
	Backward      bool
	Bidirectional bool
}

// Match finds the port in other that reciprocates port. Reciprocity must hold
// both ways: port opens onto q's cell and q opens back onto port's cell.
func Match(port Cell, other []Cell) Connection {
	if !port.Mode.Participates() {
		return Connection{}
	}
	target := port.Interface()
	for _, q := range other {
		if !q.Mode.Participates() || q.Pos != target || q.Interface() != port.Pos {
			continue
		}
		fwd := port.Mode.CanOutput() && q.Mode.CanInput()
		bwd := q.Mode.CanOutput() && port.Mode.CanInput()
		if !fwd && !bwd {
			continue
		}
		return Connection{
			Valid:         true,
			From:          port,
			To:            q,
			Forward:       fwd,
			Backward:      bwd,
			Bidirectional: port.Mode == TwoWay && q.Mode == TwoWay,
		}
	}
	return Connection{}
}

// ConnectsTo returns the first valid connection from a's ports to b's.
func ConnectsTo(a, b []Cell) Connection {
	for _, p := range a {
		if c := Match(p, b); c.Valid {
			return c
		}
	}
	return Connection{}
}
