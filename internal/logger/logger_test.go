package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		output  string
		wantErr bool
	}{
		{"debug text stderr", "debug", "text", "stderr", false},
		{"info json stdout", "info", "json", "stdout", false},
		{"warning alias", "warning", "text", "stderr", false},
		{"defaults", "", "", "", false},
		{"invalid level", "verbose", "text", "stderr", true},
		{"invalid format", "info", "xml", "stderr", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.format, tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if log.Zap() == nil {
				t.Fatal("Zap() returned nil")
			}
			_ = log.Sync()
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestLoggerToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "planexec.log")

	log, err := New("info", "json", logFile)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Named("cli").With("plan", "q.yaml").Info("query finished", "rows", 3)
	log.Zap().Info("structured", zap.Int("rows", 4))
	log.Debug("below level")
	_ = log.Sync()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	out := string(content)
	for _, want := range []string{"query finished", `"plan":"q.yaml"`, `"rows":3`, "structured", `"logger":"cli"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log file missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, "below level") {
		t.Error("debug entry written at info level")
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info("test")
	log.Debug("test")
	log.Warn("test")
	log.Error("test")
	if log.Zap() == nil {
		t.Fatal("NewNop().Zap() returned nil")
	}
}
