package config

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

func TestLoggerConfig(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantEnc   string
		wantErr   string
	}{
		{"defaults", "", "", zapcore.InfoLevel, "json", ""},
		{"debug json", "debug", "json", zapcore.DebugLevel, "json", ""},
		{"warn console", "warn", "console", zapcore.WarnLevel, "console", ""},
		{"unknown level", "banana", "json", 0, "", `invalid log level "banana"`},
		{"unknown format", "info", "xml", 0, "", `invalid log format "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("logging.level", tt.level)
			v.Set("logging.format", tt.format)

			cfg, err := loggerConfig(v)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loggerConfig: %v", err)
			}
			if got := cfg.Level.Level(); got != tt.wantLevel {
				t.Errorf("level = %v, want %v", got, tt.wantLevel)
			}
			if cfg.Encoding != tt.wantEnc {
				t.Errorf("encoding = %q, want %q", cfg.Encoding, tt.wantEnc)
			}
			if cfg.Sampling != nil {
				t.Error("sampling should be disabled")
			}
		})
	}
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	v := viper.New()
	v.Set("logging.format", "xml")
	if _, err := NewLogger(v); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

// TestNewLogger_NamedAndUnsampled writes well past zap's production
// sampling threshold and expects every entry, under the fleetmap name.
func TestNewLogger_NamedAndUnsampled(t *testing.T) {
	out := filepath.Join(t.TempDir(), "fleetmap.log")
	v := viper.New()
	v.Set("logging.level", "info")
	v.Set("logging.format", "json")
	v.Set("logging.output", out)

	logger, err := NewLogger(v)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	const n = 250
	for i := 0; i < n; i++ {
		logger.Info("tenant cycle unchanged")
	}
	_ = logger.Sync()

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}
		if entry["logger"] != "fleetmap" {
			t.Fatalf("logger = %v, want fleetmap", entry["logger"])
		}
		lines++
	}
	if lines != n {
		t.Errorf("logged %d entries, want %d", lines, n)
	}
}
