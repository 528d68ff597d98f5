package signalling

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// encodeDescription packs a session description into the base64 text
// stored in a session record
func encodeDescription(sd *webrtc.SessionDescription) (string, error) {
	if sd == nil {
		return "", ErrNoLocalDescription
	}
	data, err := json.Marshal(sd)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s SDP: %w", sd.Type, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// decodeDescription unpacks a stored description and checks it has the
// expected type
func decodeDescription(encoded string, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	var sd webrtc.SessionDescription
	if encoded == "" {
		return sd, fmt.Errorf("session has no %s yet", want)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return sd, fmt.Errorf("failed to decode %s: %w", want, err)
	}
	if err := json.Unmarshal(data, &sd); err != nil {
		return sd, fmt.Errorf("failed to parse %s SDP: %w", want, err)
	}
	if sd.Type != want {
		return sd, fmt.Errorf("session holds %s where %s was expected", sd.Type, want)
	}
	return sd, nil
}
