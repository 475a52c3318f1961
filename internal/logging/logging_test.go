package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gulp-tools/gulp/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gulp.log")
	logger, closer := New(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1})
	logger.Info("import finished", "list_id", 7)
	logger.Debug("not written")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"msg":"import finished"`) || !strings.Contains(text, `"list_id":7`) {
		t.Errorf("unexpected log content: %s", text)
	}
	if strings.Contains(text, "not written") {
		t.Errorf("debug record should be filtered: %s", text)
	}
}

func TestOrDefault(t *testing.T) {
	if OrDefault(nil) != slog.Default() {
		t.Error("nil logger should fall back to slog.Default")
	}
	l := Discard()
	if OrDefault(l) != l {
		t.Error("non-nil logger should be returned unchanged")
	}
}
