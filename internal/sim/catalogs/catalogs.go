package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/container"
	"flownet.ai/internal/sim/world/logic/ports"
)

type Catalogs struct {
	Resources ResourceCatalog
	Networks  NetworkCatalog
	Parts     PartCatalog
}

type ResourceCatalog struct {
	Palette []string
	Defs    map[string]ResourceDef
	Digest  string
}

type ResourceDef struct {
	ID             string  `json:"id"`
	Color          string  `json:"color"`
	SharesCapacity *bool   `json:"shares_capacity,omitempty"`
	Network        string  `json:"network"`
	KindCapacity   float64 `json:"kind_capacity,omitempty"`
}

// Shares reports whether the kind counts against a container's aggregate
// capacity. Kinds share unless the def says otherwise.
func (d ResourceDef) Shares() bool { return d.SharesCapacity == nil || *d.SharesCapacity }

func (d ResourceDef) RGBA() color.NRGBA {
	c, _ := ParseColor(d.Color)
	return c
}

type NetworkCatalog struct {
	Palette []string
	Defs    map[string]NetworkDef
	Digest  string
}

type NetworkDef struct {
	ID          string  `json:"id"`
	Quantity    string  `json:"quantity"` // "int" or "float"
	FlowPerTick float64 `json:"flow_per_tick"`
}

func (d NetworkDef) Integral() bool { return d.Quantity == "int" }

type PartCatalog struct {
	Palette []string
	Defs    map[string]PartDef
	Digest  string
}

type PartDef struct {
	ID              string               `json:"id"`
	Network         string               `json:"network"`
	Role            string               `json:"role"` // "node" or "conduit"
	Footprint       [][3]int             `json:"footprint,omitempty"`
	Ports           []PortDef            `json:"ports,omitempty"`
	PortsByRotation map[string][]PortDef `json:"ports_by_rotation,omitempty"`
	Container       *ContainerDef        `json:"container,omitempty"`
	StoragePriority int                  `json:"storage_priority,omitempty"`
}

type PortDef struct {
	Offset [3]int `json:"offset"`
	Dir    string `json:"dir"`
	Mode   string `json:"mode"`
}

type ContainerDef struct {
	Capacity float64              `json:"capacity"`
	Accepts  []string             `json:"accepts,omitempty"`
	Filter   map[string]FilterDef `json:"filter,omitempty"`
}

// FilterDef flags default to true when omitted.
type FilterDef struct {
	CanReceive  *bool `json:"can_receive,omitempty"`
	CanStore    *bool `json:"can_store,omitempty"`
	CanTransfer *bool `json:"can_transfer,omitempty"`
}

func (f FilterDef) Filter() container.Filter {
	on := func(b *bool) bool { return b == nil || *b }
	return container.Filter{CanReceive: on(f.CanReceive), CanStore: on(f.CanStore), CanTransfer: on(f.CanTransfer)}
}

// IsNode reports whether parts of this def terminate or store flow.
func (d PartDef) IsNode() bool { return d.Role == "node" || d.Container != nil }

func (d PartDef) FootprintOffsets() []model.Vec3i {
	if len(d.Footprint) == 0 {
		return []model.Vec3i{{}}
	}
	out := make([]model.Vec3i, 0, len(d.Footprint))
	for _, f := range d.Footprint {
		out = append(out, model.VecFromArray(f))
	}
	return out
}

// Pattern converts the def ports into a rotation-aware port pattern.
func (d PartDef) Pattern() (ports.Pattern, error) {
	var p ports.Pattern
	base, err := protos(d.Ports)
	if err != nil {
		return p, fmt.Errorf("part %s: %w", d.ID, err)
	}
	p.Base = base
	for k, defs := range d.PortsByRotation {
		rot, err := strconv.Atoi(k)
		if err != nil || rot < 0 || rot > 3 {
			return p, fmt.Errorf("part %s: bad rotation key %q", d.ID, k)
		}
		ps, err := protos(defs)
		if err != nil {
			return p, fmt.Errorf("part %s rotation %d: %w", d.ID, rot, err)
		}
		if p.ByRotation == nil {
			p.ByRotation = map[int][]ports.Proto{}
		}
		p.ByRotation[rot] = ps
	}
	return p, nil
}

func protos(defs []PortDef) ([]ports.Proto, error) {
	out := make([]ports.Proto, 0, len(defs))
	for _, pd := range defs {
		dir, err := model.ParseDir(pd.Dir)
		if err != nil {
			return nil, err
		}
		mode, err := ports.ParseMode(pd.Mode)
		if err != nil {
			return nil, err
		}
		out = append(out, ports.Proto{Offset: model.VecFromArray(pd.Offset), Dir: dir, Mode: mode})
	}
	return out, nil
}

// KindInfo is the container view of a resource def.
func (c *Catalogs) KindInfo(kind string) container.KindInfo {
	d, ok := c.Resources.Defs[kind]
	if !ok {
		return container.KindInfo{SharesCapacity: true}
	}
	return container.KindInfo{SharesCapacity: d.Shares(), Color: d.RGBA()}
}

// ResourcesOf lists the resource ids carried by a network type, sorted.
func (c *Catalogs) ResourcesOf(network string) []string {
	var out []string
	for _, id := range c.Resources.Palette {
		if c.Resources.Defs[id].Network == network {
			out = append(out, id)
		}
	}
	return out
}

// Digest covers every catalog file.
func (c *Catalogs) Digest() string {
	return sha256Hex([]byte(c.Resources.Digest + c.Networks.Digest + c.Parts.Digest))
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadNetworks(filepath.Join(configDir, "networks.json"), &c.Networks); err != nil {
		return nil, err
	}
	if err := loadResources(filepath.Join(configDir, "resources.json"), &c.Resources); err != nil {
		return nil, err
	}
	if err := loadParts(filepath.Join(configDir, "parts.json"), &c.Parts); err != nil {
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

func readValidated(path, schema string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validate(schema, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return raw, nil
}

func loadNetworks(path string, out *NetworkCatalog) error {
	raw, err := readValidated(path, "networks.schema.json")
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	var defs []NetworkDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("networks.json: %w", err)
	}
	out.Defs = map[string]NetworkDef{}
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("networks.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}
	out.Palette = sortedKeys(out.Defs)
	return nil
}

func loadResources(path string, out *ResourceCatalog) error {
	raw, err := readValidated(path, "resources.schema.json")
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	var defs []ResourceDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("resources.json: %w", err)
	}
	out.Defs = map[string]ResourceDef{}
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("resources.json: duplicate id %s", d.ID)
		}
		if _, err := ParseColor(d.Color); err != nil {
			return fmt.Errorf("resources.json: %s: %w", d.ID, err)
		}
		out.Defs[d.ID] = d
	}
	out.Palette = sortedKeys(out.Defs)
	return nil
}

func loadParts(path string, out *PartCatalog) error {
	raw, err := readValidated(path, "parts.schema.json")
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	var defs []PartDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("parts.json: %w", err)
	}
	out.Defs = map[string]PartDef{}
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("parts.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}
	out.Palette = sortedKeys(out.Defs)
	return nil
}

// check resolves cross-file references.
func (c *Catalogs) check() error {
	for _, id := range c.Resources.Palette {
		d := c.Resources.Defs[id]
		if _, ok := c.Networks.Defs[d.Network]; !ok {
			return fmt.Errorf("resources.json: %s: unknown network %s", id, d.Network)
		}
	}
	for _, id := range c.Parts.Palette {
		d := c.Parts.Defs[id]
		if _, ok := c.Networks.Defs[d.Network]; !ok {
			return fmt.Errorf("parts.json: %s: unknown network %s", id, d.Network)
		}
		if d.Role == "conduit" && (len(d.Footprint) > 1 || d.Container != nil) {
			return fmt.Errorf("parts.json: %s: conduits are single-cell and hold no container", id)
		}
		if _, err := d.Pattern(); err != nil {
			return fmt.Errorf("parts.json: %w", err)
		}
		if d.Container == nil {
			continue
		}
		for _, k := range d.Container.Accepts {
			r, ok := c.Resources.Defs[k]
			if !ok {
				return fmt.Errorf("parts.json: %s: unknown resource %s", id, k)
			}
			if r.Network != d.Network {
				return fmt.Errorf("parts.json: %s: resource %s belongs to network %s", id, k, r.Network)
			}
		}
		for k := range d.Container.Filter {
			if _, ok := c.Resources.Defs[k]; !ok {
				return fmt.Errorf("parts.json: %s: filter on unknown resource %s", id, k)
			}
		}
	}
	return nil
}

// ParseColor parses "#RRGGBB" into an opaque color.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func sortedKeys[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
