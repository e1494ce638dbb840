package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/ports"
)

func configDir() string { return filepath.Join("..", "..", "..", "configs") }

func TestLoadRepoConfigs(t *testing.T) {
	c, err := Load(configDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := strings.Join(c.ResourcesOf("FLUID"), ","); got != "OIL,STEAM,WATER" {
		t.Fatalf("ResourcesOf(FLUID)=%s", got)
	}
	if !c.Networks.Defs["FLUID"].Integral() || c.Networks.Defs["POWER"].Integral() {
		t.Fatalf("quantity types=%+v", c.Networks.Defs)
	}
	steam := c.KindInfo("STEAM")
	if steam.SharesCapacity || steam.Color.R != 0xE6 || steam.Color.A != 255 {
		t.Fatalf("STEAM info=%+v", steam)
	}
	if !c.KindInfo("WATER").SharesCapacity {
		t.Fatalf("WATER should share capacity by default")
	}
	if len(c.Digest()) != 64 || c.Parts.Digest == "" {
		t.Fatalf("digest=%q", c.Digest())
	}

	pump := c.Parts.Defs["PUMP"]
	p, err := pump.Pattern()
	if err != nil {
		t.Fatalf("Pattern: %v", err)
	}
	if len(p.Base) != 2 || p.Base[0].Mode != ports.Input || p.Base[1].Dir != model.East {
		t.Fatalf("PUMP pattern=%+v", p)
	}
	if !pump.IsNode() || c.Parts.Defs["PIPE"].IsNode() {
		t.Fatalf("roles wrong")
	}
	if n := len(c.Parts.Defs["BIG_TANK"].FootprintOffsets()); n != 2 {
		t.Fatalf("BIG_TANK footprint=%d", n)
	}
	vent := c.Parts.Defs["VENT"].Container.Filter["STEAM"].Filter()
	if !vent.CanReceive || vent.CanStore || !vent.CanTransfer {
		t.Fatalf("VENT steam filter=%+v", vent)
	}
}

func writeConfigs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"networks.json", "resources.json", "parts.json"} {
		body, ok := files[name]
		if !ok {
			raw, err := os.ReadFile(filepath.Join(configDir(), name))
			if err != nil {
				t.Fatalf("read %s: %v", name, err)
			}
			body = string(raw)
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	cases := map[string]map[string]string{
		"bad color":     {"resources.json": `[{"id":"WATER","color":"blue","network":"FLUID"}]`},
		"bad quantity":  {"networks.json": `[{"id":"FLUID","quantity":"decimal","flow_per_tick":1}]`},
		"unknown field": {"parts.json": `[{"id":"PIPE","network":"FLUID","role":"conduit","speed":3}]`},
		"bad port mode": {"parts.json": `[{"id":"PIPE","network":"FLUID","role":"conduit","ports":[{"dir":"N","mode":"SIDEWAYS"}]}]`},
		"missing role":  {"parts.json": `[{"id":"PIPE","network":"FLUID"}]`},
		"negative flow": {"networks.json": `[{"id":"FLUID","quantity":"int","flow_per_tick":-1}]`},
	}
	for name, files := range cases {
		if _, err := Load(writeConfigs(t, files)); err == nil {
			t.Fatalf("%s: Load succeeded", name)
		}
	}
}

func TestLoadRejectsDanglingReferences(t *testing.T) {
	cases := map[string]map[string]string{
		"resource network":      {"resources.json": `[{"id":"WATER","color":"#000000","network":"GAS"}]`},
		"accepts other network": {"parts.json": `[{"id":"TANK","network":"FLUID","role":"node","container":{"capacity":1,"accepts":["ELECTRICITY"]}}]`},
		"conduit container":     {"parts.json": `[{"id":"PIPE","network":"FLUID","role":"conduit","container":{"capacity":1}}]`},
	}
	for name, files := range cases {
		if _, err := Load(writeConfigs(t, files)); err == nil {
			t.Fatalf("%s: Load succeeded", name)
		}
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#10FF7f")
	if err != nil || c.R != 0x10 || c.G != 0xFF || c.B != 0x7F || c.A != 255 {
		t.Fatalf("ParseColor=%+v err=%v", c, err)
	}
	if _, err := ParseColor("#12345"); err == nil {
		t.Fatalf("short color accepted")
	}
}
