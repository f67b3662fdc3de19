package player

import (
	"encoding/json"
	"math"
	"strings"
)

// SignalKind tags a normalized playback signal.
type SignalKind string

const (
	SignalPlay       SignalKind = "play"
	SignalPause      SignalKind = "pause"
	SignalTimeUpdate SignalKind = "timeupdate"

	// SignalUnrecognized marks payloads the interpreter could not make sense
	// of. They are no-ops for the rest of the pipeline, never errors.
	SignalUnrecognized SignalKind = "unrecognized"
)

// Signal is the normalized form of an inbound player message.
type Signal struct {
	Kind        SignalKind
	CurrentTime float64 // seconds, timeupdate only
	Duration    float64 // seconds, 0 when the player did not report one
}

// Decode converts an opaque payload from the embedded player into a Signal.
// The payload may be a bare token ("play", "pause"), a JSON-encoded string,
// raw JSON bytes, or an already-decoded map. Decode never panics and never
// returns an error; anything it cannot interpret comes back as
// SignalUnrecognized.
func Decode(payload any) Signal {
	switch msg := payload.(type) {
	case nil:
		return Signal{Kind: SignalUnrecognized}
	case string:
		if sig, ok := decodeToken(msg); ok {
			return sig
		}
		return decodeJSON([]byte(msg))
	case []byte:
		return decodeJSON(msg)
	case json.RawMessage:
		return decodeJSON(msg)
	case map[string]any:
		return decodeMap(msg)
	case Signal:
		return msg
	default:
		return Signal{Kind: SignalUnrecognized}
	}
}

func decodeToken(s string) (Signal, bool) {
	switch strings.TrimSpace(s) {
	case "play":
		return Signal{Kind: SignalPlay}, true
	case "pause":
		return Signal{Kind: SignalPause}, true
	}
	return Signal{}, false
}

func decodeJSON(data []byte) Signal {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Signal{Kind: SignalUnrecognized}
	}

	switch v := raw.(type) {
	case string:
		if sig, ok := decodeToken(v); ok {
			return sig
		}
	case map[string]any:
		return decodeMap(v)
	}

	return Signal{Kind: SignalUnrecognized}
}

func decodeMap(m map[string]any) Signal {
	// Nested PLAYER_EVENT envelope takes priority; the inner data object
	// carries the event and timing fields.
	if typ, _ := m["type"].(string); typ == "PLAYER_EVENT" {
		if data, ok := m["data"].(map[string]any); ok {
			return decodeEvent(data)
		}
		return Signal{Kind: SignalUnrecognized}
	}

	return decodeEvent(m)
}

func decodeEvent(m map[string]any) Signal {
	event, _ := m["event"].(string)
	if event == "" {
		// Some embeds put the event name in "type" directly.
		event, _ = m["type"].(string)
	}

	switch event {
	case "play":
		return Signal{Kind: SignalPlay}
	case "pause":
		return Signal{Kind: SignalPause}
	case "timeupdate":
		current, ok := toSeconds(m["currentTime"])
		if !ok {
			// A timeupdate without a usable position tells us nothing.
			return Signal{Kind: SignalUnrecognized}
		}
		sig := Signal{Kind: SignalTimeUpdate, CurrentTime: current}
		if duration, ok := toSeconds(m["duration"]); ok && duration > 0 {
			sig.Duration = duration
		}
		return sig
	}

	return Signal{Kind: SignalUnrecognized}
}

// toSeconds coerces the loosely-typed numeric values third-party players
// send. Negative, NaN and infinite values are rejected.
func toSeconds(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}
