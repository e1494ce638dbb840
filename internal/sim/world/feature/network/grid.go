package network

import "flownet.ai/internal/sim/world/kernel/model"

// maxDenseCells bounds the dense layer; larger worlds fall back to a map.
const maxDenseCells = 1 << 22

type Bounds struct {
	Min model.Vec3i
	Max model.Vec3i
}

func (b Bounds) Contains(p model.Vec3i) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b Bounds) size() (sx, sy, sz int) {
	sx = b.Max.X - b.Min.X + 1
	sy = b.Max.Y - b.Min.Y + 1
	sz = b.Max.Z - b.Min.Z + 1
	if sx <= 0 || sy <= 0 || sz <= 0 {
		return 0, 0, 0
	}
	return sx, sy, sz
}

// CellGrid maps cells to the network covering them. Cells inside the bounds
// use a dense slice; anything outside lands in a sparse map.
type CellGrid struct {
	bounds     Bounds
	sx, sy, sz int
	dense      []*Network
	sparse     map[model.Vec3i]*Network
	n          int
}

func NewCellGrid(b Bounds) *CellGrid {
	g := &CellGrid{bounds: b, sparse: map[model.Vec3i]*Network{}}
	sx, sy, sz := b.size()
	if total := sx * sy * sz; total > 0 && total <= maxDenseCells {
		g.sx, g.sy, g.sz = sx, sy, sz
		g.dense = make([]*Network, total)
	}
	return g
}

func (g *CellGrid) index(p model.Vec3i) (int, bool) {
	if g.dense == nil || !g.bounds.Contains(p) {
		return 0, false
	}
	x := p.X - g.bounds.Min.X
	y := p.Y - g.bounds.Min.Y
	z := p.Z - g.bounds.Min.Z
	return (y*g.sz+z)*g.sx + x, true
}

func (g *CellGrid) At(p model.Vec3i) *Network {
	if i, ok := g.index(p); ok {
		return g.dense[i]
	}
	return g.sparse[p]
}

// Set stores n at p and returns whatever was there before.
func (g *CellGrid) Set(p model.Vec3i, n *Network) *Network {
	var prev *Network
	if i, ok := g.index(p); ok {
		prev = g.dense[i]
		g.dense[i] = n
	} else {
		prev = g.sparse[p]
		if n == nil {
			delete(g.sparse, p)
		} else {
			g.sparse[p] = n
		}
	}
	switch {
	case prev == nil && n != nil:
		g.n++
	case prev != nil && n == nil:
		g.n--
	}
	return prev
}

// Clear empties p only if it still holds n.
func (g *CellGrid) Clear(p model.Vec3i, n *Network) bool {
	if n == nil || g.At(p) != n {
		return false
	}
	g.Set(p, nil)
	return true
}

// Len is the number of covered cells.
func (g *CellGrid) Len() int { return g.n }
