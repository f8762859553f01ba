package sse

import (
	"strings"
	"testing"

	"github.com/newslens/newslens/internal/model"
)

func TestEventFrameFormat(t *testing.T) {
	frame, err := Event(EventStatus, model.StatusPayload{Message: "Evaluating article..."})
	if err != nil {
		t.Fatal(err)
	}

	got := string(frame)
	want := "event: status\ndata: {\"message\":\"Evaluating article...\"}\n\n"
	if got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
}

func TestEventTerminatesWithBlankLine(t *testing.T) {
	frame, err := Event(EventDone, map[string]any{"ok": true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(frame), "\n\n") {
		t.Errorf("frame must end with blank line: %q", frame)
	}
}

func TestEventUnserializablePayload(t *testing.T) {
	if _, err := Event(EventStatus, func() {}); err == nil {
		t.Error("expected error for unserializable payload")
	}
}
