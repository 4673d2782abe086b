package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSettingsFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_TO_CONSOLE", "LOG_TO_FILE", "LOG_FILE", "LOG_FORMAT", "LOG_CALLER"} {
		t.Setenv(k, "")
	}
	s := SettingsFromEnv()
	if s.Level != zapcore.InfoLevel || !s.Console || s.ToFile || s.Format != "legacy" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.FilePath != filepath.Join("logs", "coach.log") {
		t.Fatalf("unexpected file path %q", s.FilePath)
	}
}

func TestSettingsFromEnvUnknownFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("LOG_LEVEL", "warning")
	s := SettingsFromEnv()
	if s.Format != "legacy" || s.Level != zapcore.WarnLevel {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestBuildWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coach.log")
	logger, err := Build(Settings{Level: zapcore.InfoLevel, ToFile: true, FilePath: path, Format: "json"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Info("move_played", zap.String("move", "e2e4"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"move":"e2e4"`) {
		t.Fatalf("log missing field: %s", raw)
	}
}

func TestReplaceRestores(t *testing.T) {
	prev := L()
	logger := zap.NewExample()
	restore := Replace(logger)
	if L() != logger {
		t.Fatal("global logger not replaced")
	}
	restore()
	if L() != prev {
		t.Fatal("global logger not restored")
	}
}
