// Package ports resolves per-part IO cells and decides whether two adjacent
// parts can exchange values, and in which direction.
package ports

import (
	"fmt"
	"strings"

	"flownet.ai/internal/sim/world/kernel/model"
)

type Mode uint8

const (
	None   Mode = 0
	Input  Mode = 1 << 0
	Output Mode = 1 << 1
	TwoWay Mode = Input | Output
	// Visual ports are drawn but never carry values.
	Visual Mode = 1 << 2
)

func (m Mode) Participates() bool { return m&Visual == 0 && m&TwoWay != 0 }

func (m Mode) CanInput() bool { return m.Participates() && m&Input != 0 }

func (m Mode) CanOutput() bool { return m.Participates() && m&Output != 0 }

func (m Mode) String() string {
	switch {
	case m&Visual != 0:
		return "VISUAL"
	case m == TwoWay:
		return "TWOWAY"
	case m == Input:
		return "INPUT"
	case m == Output:
		return "OUTPUT"
	default:
		return "NONE"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE":
		return None, nil
	case "IN", "INPUT":
		return Input, nil
	case "OUT", "OUTPUT":
		return Output, nil
	case "TWOWAY", "TWO_WAY", "BOTH":
		return TwoWay, nil
	case "VISUAL":
		return Visual, nil
	}
	return None, fmt.Errorf("bad port mode %q", s)
}

// Proto is a rotation-free IO cell: an offset inside the part footprint, the
// face it opens on, and its mode.
type Proto struct {
	Offset model.Vec3i
	Dir    model.Dir
	Mode   Mode
}

// Pattern is the def-level port layout. Base is rotated with the part; an
// entry in ByRotation replaces it verbatim for that rotation.
type Pattern struct {
	Base       []Proto
	ByRotation map[int][]Proto
}

// Cell is an IO cell resolved into world coordinates.
type Cell struct {
	Pos  model.Vec3i
	Dir  model.Dir
	Mode Mode
}

// Interface is the cell this port opens onto.
func (c Cell) Interface() model.Vec3i { return c.Pos.Add(c.Dir.Offset()) }

// Resolve places pattern for a part at origin with the given rotation. An
// empty pattern yields a two-way port on every outer face of the footprint.
func Resolve(p Pattern, footprint []model.Vec3i, origin model.Vec3i, rotation int) []Cell {
	rot := model.NormalizeRotation(rotation)
	if len(footprint) == 0 {
		footprint = []model.Vec3i{{}}
	}
	if protos, ok := p.ByRotation[rot]; ok && len(protos) > 0 {
		out := make([]Cell, 0, len(protos))
		for _, pr := range protos {
			out = append(out, Cell{Pos: origin.Add(pr.Offset), Dir: pr.Dir, Mode: pr.Mode})
		}
		return out
	}
	protos := p.Base
	if len(protos) == 0 {
		protos = uniformTwoWay(footprint)
	}
	out := make([]Cell, 0, len(protos))
	for _, pr := range protos {
		out = append(out, Cell{
			Pos:  origin.Add(model.RotateOffset(pr.Offset, rot)),
			Dir:  pr.Dir.Rotate(rot),
			Mode: pr.Mode,
		})
	}
	return out
}

func uniformTwoWay(footprint []model.Vec3i) []Proto {
	inside := make(map[model.Vec3i]bool, len(footprint))
	for _, c := range footprint {
		inside[c] = true
	}
	out := make([]Proto, 0, 4*len(footprint))
	for _, c := range footprint {
		for _, d := range model.CardinalDirs {
			if inside[c.Add(d.Offset())] {
				continue
			}
			out = append(out, Proto{Offset: c, Dir: d, Mode: TwoWay})
		}
	}
	return out
}

// Footprint places def-level footprint offsets in the world.
func Footprint(offsets []model.Vec3i, origin model.Vec3i, rotation int) []model.Vec3i {
	rot := model.NormalizeRotation(rotation)
	if len(offsets) == 0 {
		return []model.Vec3i{origin}
	}
	out := make([]model.Vec3i, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, origin.Add(model.RotateOffset(off, rot)))
	}
	return out
}
