package overlayproto

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Schemas holds the compiled message schemas.
type Schemas struct {
	Subscribe *jsonschema.Schema
	Pose      *jsonschema.Schema
	Frame     *jsonschema.Schema
}

func LoadSchemas() (*Schemas, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	names := []string{"subscribe.schema.json", "pose.schema.json", "frame.schema.json"}
	for _, name := range names {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("add %s: %w", name, err)
		}
	}
	out := make([]*jsonschema.Schema, len(names))
	for i, name := range names {
		s, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		out[i] = s
	}
	return &Schemas{Subscribe: out[0], Pose: out[1], Frame: out[2]}, nil
}

// BaseMessage lets us route inbound messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func validate(s *jsonschema.Schema, b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

func (s *Schemas) DecodeSubscribe(b []byte) (SubscribeMsg, error) {
	var m SubscribeMsg
	if err := validate(s.Subscribe, b); err != nil {
		return m, err
	}
	err := json.Unmarshal(b, &m)
	return m, err
}

// DecodePose validates b and decodes it, telling an explicit null apart from an
// absent field.
func (s *Schemas) DecodePose(b []byte) (PoseMsg, error) {
	var m PoseMsg
	if err := validate(s.Pose, b); err != nil {
		return m, err
	}
	var raw struct {
		Type            string          `json:"type"`
		ProtocolVersion string          `json:"protocol_version"`
		Observer        json.RawMessage `json:"observer"`
		Camera          json.RawMessage `json:"camera"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return m, err
	}
	m.Type = raw.Type
	m.ProtocolVersion = raw.ProtocolVersion
	var err error
	if m.Observer, m.ClearObserver, err = decodeVec(raw.Observer); err != nil {
		return m, fmt.Errorf("observer: %w", err)
	}
	if m.Camera, m.ClearCamera, err = decodeVec(raw.Camera); err != nil {
		return m, fmt.Errorf("camera: %w", err)
	}
	return m, nil
}

func decodeVec(raw json.RawMessage) (v *[3]float64, null bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true, nil
	}
	var out [3]float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return &out, false, nil
}
