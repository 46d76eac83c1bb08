package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func preserveLogGlobals(t *testing.T) {
	t.Helper()
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	prevCtx := zerolog.DefaultContextLogger
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
		zerolog.DefaultContextLogger = prevCtx
	})
}

func TestSetupLogging_JSON(t *testing.T) {
	preserveLogGlobals(t)
	var buf bytes.Buffer

	SetupLogging("warn", false, &buf)
	log.Info().Msg("dropped")
	log.Warn().Str("k", "v").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one line at warn level, got %q", buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if m["message"] != "kept" || m["k"] != "v" || m["service"] != "medremind" {
		t.Fatalf("unexpected fields: %v", m)
	}
}

func TestSetupLogging_PrettyAndContextDefault(t *testing.T) {
	preserveLogGlobals(t)
	var buf bytes.Buffer

	SetupLogging("debug", true, &buf)
	log.Ctx(context.Background()).Debug().Msg("hello console")

	out := buf.String()
	if !strings.Contains(out, "hello console") || strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console output via context default, got %q", out)
	}
}
