package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewWritesLogfmt(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(&buf, log.InfoLevel), "audio")

	logger.Warn("ambient playback blocked", "event", "playback_blocked", "track", "/audio/christmas.mp3")
	logger.Debug("hidden", "event", "audio_start")

	out := buf.String()
	for _, want := range []string{"level=warn", "component=audio", "event=playback_blocked", `msg="ambient playback blocked"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", out)
	}
}

func TestComponentWithoutParent(t *testing.T) {
	if Component(nil, "x") == nil {
		t.Fatal("Component(nil) returned nil")
	}
	Discard().Error("dropped")
}
