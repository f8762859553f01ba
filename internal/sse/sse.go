// Package sse renders pipeline events as Server-Sent Events wire frames.
package sse

import (
	"encoding/json"
	"fmt"
)

// Event names emitted by the analysis pipeline, in their fixed order.
const (
	EventStatus     = "status"
	EventEvaluation = "evaluation"
	EventDone       = "done"
)

// Event formats a single wire frame: "event: <name>\ndata: <json>\n\n".
// The formatter is stateless; ordering is the caller's concern.
func Event(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", name, err)
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", name, data), nil
}
