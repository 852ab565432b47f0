package overlayproto

// Version is the overlay protocol version.
const Version = "0.1"

// Message types.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypePose      = "POSE"
	TypeFrame     = "FRAME"
	TypeError     = "ERROR"
)

// Client -> Server. First message on the overlay WS connection, and can be re-sent to
// change the frame rate.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	FrameRateHz     int    `json:"frame_rate_hz,omitempty"`
}

// Client -> Server. Observer and camera positions in world units. A null field clears
// that position; an absent one leaves it unchanged.
type PoseMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Observer        *[3]float64 `json:"observer,omitempty"`
	Camera          *[3]float64 `json:"camera,omitempty"`

	ClearObserver bool `json:"-"`
	ClearCamera   bool `json:"-"`
}

// Server -> Client. One rendered frame of highlight boxes, camera relative.
// Each box is [minX, minY, minZ, maxX, maxY, maxZ].
type FrameMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Frame           uint64       `json:"frame"`
	Generation      uint64       `json:"generation"`
	Boxes           [][6]float64 `json:"boxes"`
	Style           StyleMsg     `json:"style"`
}

type StyleMsg struct {
	Fill    [4]float32 `json:"fill"`
	Outline [4]float32 `json:"outline"`
}

// Server -> Client.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// HTTP response for GET /overlay/v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	Tick            uint64   `json:"tick"`
	Generation      uint64   `json:"generation"`
	ColumnSize      int      `json:"column_size"`
	ScanRadius      int      `json:"scan_radius"`
	ScanBand        [2]int   `json:"scan_band"`
	Elevation       [2]int   `json:"elevation"`
	Targets         []string `json:"targets"`
	BlockPalette    []string `json:"block_palette"`
	Style           StyleMsg `json:"style"`
}
