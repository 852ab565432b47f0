package overlayproto

import (
	"encoding/json"
	"testing"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	s, err := LoadSchemas()
	if err != nil {
		t.Fatalf("LoadSchemas: %v", err)
	}

	if _, err := s.DecodeSubscribe([]byte(`{"type":"SUBSCRIBE","protocol_version":"0.1","frame_rate_hz":30}`)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := s.DecodeSubscribe([]byte(`{"type":"SUBSCRIBE","protocol_version":"0.1","chunk_radius":3}`)); err == nil {
		t.Fatalf("expected unknown subscribe field rejected")
	}

	frame := FrameMsg{
		Type:            TypeFrame,
		ProtocolVersion: Version,
		Frame:           7,
		Generation:      3,
		Boxes:           [][6]float64{{0, -128, 0, 16, 256, 16}},
		Style:           StyleMsg{Fill: [4]float32{0, 1, 0, 0.25}, Outline: [4]float32{0, 1, 0, 0.9}},
	}
	b, _ := json.Marshal(frame)
	if err := validate(s.Frame, b); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if err := validate(s.Frame, []byte(`{"type":"FRAME","protocol_version":"0.1","frame":1,"generation":1,"boxes":[[0,0,0]],"style":{"fill":[0,1,0,0.25],"outline":[0,1,0,0.9]}}`)); err == nil {
		t.Fatalf("expected short box rejected")
	}
	empty := frame
	empty.Boxes = [][6]float64{}
	b, _ = json.Marshal(empty)
	if err := validate(s.Frame, b); err != nil {
		t.Fatalf("empty frame: %v", err)
	}
}

func TestDecodePose(t *testing.T) {
	s, err := LoadSchemas()
	if err != nil {
		t.Fatalf("LoadSchemas: %v", err)
	}

	m, err := s.DecodePose([]byte(`{"type":"POSE","protocol_version":"0.1","observer":[1.5,64,-3],"camera":[2,70,-3]}`))
	if err != nil {
		t.Fatalf("DecodePose: %v", err)
	}
	if m.Observer == nil || *m.Observer != [3]float64{1.5, 64, -3} || m.Camera == nil || m.ClearObserver || m.ClearCamera {
		t.Fatalf("pose=%+v", m)
	}

	m, err = s.DecodePose([]byte(`{"type":"POSE","protocol_version":"0.1","observer":null}`))
	if err != nil {
		t.Fatalf("DecodePose null: %v", err)
	}
	if m.Observer != nil || !m.ClearObserver || m.ClearCamera || m.Camera != nil {
		t.Fatalf("null observer pose=%+v", m)
	}

	for _, bad := range []string{
		`{"type":"POSE","protocol_version":"0.1","camera":[1,2]}`,
		`{"type":"POSE","protocol_version":"0.1","camera":["a",2,3]}`,
		`{"type":"POSE","protocol_version":"0.1","observer":[1e300,0,0]}`,
		`{"type":"POSE","protocol_version":"0.1","camera":[0,-4503599627370496,0]}`,
		`{"type":"SUBSCRIBE","protocol_version":"0.1"}`,
		`{"type":"POSE"}`,
		`not json`,
	} {
		if _, err := s.DecodePose([]byte(bad)); err == nil {
			t.Fatalf("expected %s rejected", bad)
		}
	}
}

func TestIsKnownCode(t *testing.T) {
	for _, c := range []string{"", ErrBadRequest, ErrRateLimit, ErrInternal} {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
	if e := NewError(ErrRateLimit, "slow down"); e.Type != TypeError || e.ProtocolVersion != Version {
		t.Fatalf("error msg=%+v", e)
	}
}
