package observerproto

// Version is the observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Networks limits the stream to these network types. Empty means all.
	Networks []string `json:"networks,omitempty"`
	// Containers asks for per-container change notes.
	Containers bool `json:"containers,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	WorldID         string         `json:"world_id"`
	RunID           string         `json:"run_id"`
	Tick            uint64         `json:"tick"`
	WorldParams     WorldParams    `json:"world_params"`
	Resources       []ResourceInfo `json:"resources"`
	Networks        []string       `json:"networks"`
	CatalogDigest   string         `json:"catalog_digest"`
}

type WorldParams struct {
	TickRateHz       int    `json:"tick_rate_hz"`
	BatchEveryTicks  int    `json:"batch_every_ticks"`
	SettleEveryTicks int    `json:"settle_every_ticks"`
	Height           int    `json:"height"`
	BoundaryR        int    `json:"boundary_r"`
	Quantity         string `json:"quantity"`
}

type ResourceInfo struct {
	ID      string `json:"id"`
	Color   string `json:"color"`
	Network string `json:"network"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Networks   []NetworkState  `json:"networks"`
	Events     []Event         `json:"events,omitempty"`
	Containers []ContainerNote `json:"containers,omitempty"`
}

type NetworkState struct {
	ID        uint64  `json:"id"`
	Type      string  `json:"type"`
	Members   int     `json:"members"`
	Cells     int     `json:"cells"`
	Nodes     int     `json:"nodes"`
	Junctions int     `json:"junctions"`
	Edges     int     `json:"edges"`
	Stored    float64 `json:"stored"`
	LastMoved float64 `json:"last_moved"`
}

// Event is one lifecycle or topology record.
type Event struct {
	Tick      uint64 `json:"tick"`
	Type      string `json:"type"`
	NetType   string `json:"net_type,omitempty"`
	NetworkID uint64 `json:"network_id,omitempty"`
	PartID    uint64 `json:"part_id,omitempty"`
	Def       string `json:"def,omitempty"`
	Pos       []int  `json:"pos,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Members   int    `json:"members,omitempty"`
	Cells     int    `json:"cells,omitempty"`
}

// ContainerNote mirrors one committed container mutation.
type ContainerNote struct {
	PartID    uint64             `json:"part_id"`
	NetType   string             `json:"net_type"`
	NetworkID uint64             `json:"network_id,omitempty"`
	Added     map[string]float64 `json:"added,omitempty"`
	Removed   map[string]float64 `json:"removed,omitempty"`
	Stored    map[string]float64 `json:"stored"`
	Fill      string             `json:"fill"`
	Color     string             `json:"color"`
}
