package agreement

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// SignatureImage is a client-rendered signature encoded as a data URL
// (data:image/png;base64,...).
type SignatureImage string

var signatureMediaTypes = map[string]struct{}{
	"image/png":     {},
	"image/jpeg":    {},
	"image/svg+xml": {},
}

// ParseSignatureImage validates raw as a base64 image data URL. Blank input
// yields an empty image and no error: an untouched drawing surface.
func ParseSignatureImage(raw string) (SignatureImage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	img := SignatureImage(raw)
	if _, _, err := img.Decode(); err != nil {
		return "", err
	}
	return img, nil
}

// Empty reports whether nothing was drawn.
func (s SignatureImage) Empty() bool { return strings.TrimSpace(string(s)) == "" }

// Decode splits the data URL into its media type and raw bytes.
func (s SignatureImage) Decode() (string, []byte, error) {
	rest, ok := strings.CutPrefix(string(s), "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: not a data url", ErrInvalidSignature)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload", ErrInvalidSignature)
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: payload must be base64", ErrInvalidSignature)
	}
	if _, known := signatureMediaTypes[mediaType]; !known {
		return "", nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidSignature, mediaType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidSignature)
	}
	return mediaType, data, nil
}

// Flow identifies the transition a set of captured signatures belongs to.
type Flow string

const (
	FlowRatify       Flow = "ratify"
	FlowCloseSuccess Flow = "close_success"
	FlowCloseFailure Flow = "close_failure"
)

// Collector accumulates one signature per participant for a single
// transition attempt. It is not safe for concurrent use.
//
// Long-lived collectors (a client holding one across screens) use Switch and
// Clear to move between flows and redo a drawing. The HTTP handlers build a
// fresh collector per request from the submitted images, which gives the same
// reset on flow change without calling either.
type Collector struct {
	flow         Flow
	participants []string
	known        map[string]struct{}
	captured     map[string]SignatureImage
}

// NewCollector starts an empty collection for flow over the given participants.
func NewCollector(flow Flow, participants []Participant) *Collector {
	c := &Collector{
		flow:         flow,
		participants: make([]string, 0, len(participants)),
		known:        make(map[string]struct{}, len(participants)),
		captured:     make(map[string]SignatureImage, len(participants)),
	}
	for _, p := range participants {
		c.participants = append(c.participants, p.ID)
		c.known[p.ID] = struct{}{}
	}
	return c
}

// Flow returns the transition the collected signatures are scoped to.
func (c *Collector) Flow() Flow { return c.flow }

// Switch moves the collector to another flow. Signatures captured for the
// previous flow are discarded so they can never be submitted under it.
func (c *Collector) Switch(flow Flow) {
	if flow == c.flow {
		return
	}
	c.flow = flow
	c.Reset()
}

// Reset discards every captured signature.
func (c *Collector) Reset() {
	clear(c.captured)
}

// Capture stores img for the participant, replacing any earlier capture.
// An empty image is ignored and keeps what was captured before.
func (c *Collector) Capture(participantID string, img SignatureImage) error {
	if _, ok := c.known[participantID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, participantID)
	}
	if img.Empty() {
		return nil
	}
	c.captured[participantID] = img
	return nil
}

// Clear forgets the participant's capture; they count as unsigned until
// they capture again.
func (c *Collector) Clear(participantID string) {
	delete(c.captured, participantID)
}

// Signed reports whether the participant has a captured signature.
func (c *Collector) Signed(participantID string) bool {
	_, ok := c.captured[participantID]
	return ok
}

// Missing lists the participants without a capture, in agreement order.
func (c *Collector) Missing() []string {
	var missing []string
	for _, id := range c.participants {
		if _, ok := c.captured[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Complete reports whether every participant has signed.
func (c *Collector) Complete() bool {
	return len(c.participants) > 0 && len(c.Missing()) == 0
}

// Len returns the number of captured signatures.
func (c *Collector) Len() int { return len(c.captured) }

// Snapshot copies the captured signatures.
func (c *Collector) Snapshot() SignatureMap {
	out := make(SignatureMap, len(c.captured))
	for id, img := range c.captured {
		out[id] = img
	}
	return out
}

// expect checks that the collector was built for flow over exactly these participants.
func (c *Collector) expect(flow Flow, participants []Participant) error {
	if c == nil {
		return fmt.Errorf("%w: no signatures collected", ErrValidation)
	}
	if c.flow != flow {
		return fmt.Errorf("%w: signatures collected for %s, not %s", ErrValidation, c.flow, flow)
	}
	if len(participants) != len(c.participants) {
		return fmt.Errorf("%w: collector participants out of date", ErrValidation)
	}
	for _, p := range participants {
		if _, ok := c.known[p.ID]; !ok {
			return fmt.Errorf("%w: collector participants out of date", ErrValidation)
		}
	}
	return nil
}
