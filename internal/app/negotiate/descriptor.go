package negotiate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/peerchess/internal/core"
)

// Encode serializes a descriptor as the JSON a browser produces for
// JSON.stringify(pc.localDescription).
func Encode(desc webrtc.SessionDescription) (string, error) {
	if strings.TrimSpace(desc.SDP) == "" {
		return "", fmt.Errorf("%w: empty sdp", core.ErrMalformedDescriptor)
	}
	b, err := json.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrMalformedDescriptor, err)
	}
	return string(b), nil
}

// Decode parses descriptor text copied out of band.
func Decode(text string) (webrtc.SessionDescription, error) {
	var desc webrtc.SessionDescription
	text = strings.TrimSpace(text)
	if text == "" {
		return desc, fmt.Errorf("%w: empty input", core.ErrMalformedDescriptor)
	}
	if err := json.Unmarshal([]byte(text), &desc); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: %v", core.ErrMalformedDescriptor, err)
	}
	switch desc.Type {
	case webrtc.SDPTypeOffer, webrtc.SDPTypeAnswer, webrtc.SDPTypePranswer:
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("%w: unsupported type %q", core.ErrMalformedDescriptor, desc.Type.String())
	}
	if strings.TrimSpace(desc.SDP) == "" {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: empty sdp", core.ErrMalformedDescriptor)
	}
	parsed := desc
	if _, err := parsed.Unmarshal(); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: %v", core.ErrMalformedDescriptor, err)
	}
	return desc, nil
}

var errWrongType = errors.New("unexpected descriptor type")

// DecodeAs is Decode restricted to one descriptor type.
func DecodeAs(text string, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	desc, err := Decode(text)
	if err != nil {
		return desc, err
	}
	if desc.Type != want {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: %w: got %s, want %s",
			core.ErrMalformedDescriptor, errWrongType, desc.Type, want)
	}
	return desc, nil
}
