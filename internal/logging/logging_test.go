package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Level(t *testing.T) {
	tests := []struct {
		level   string
		want    logrus.Level
		wantErr bool
	}{
		{"", logrus.InfoLevel, false},
		{"debug", logrus.DebugLevel, false},
		{"WARN", logrus.WarnLevel, false},
		{"chatty", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(Config{Level: tt.level, Output: &bytes.Buffer{}})
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer l.Close()
			if l.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", l.GetLevel(), tt.want)
			}
		})
	}
}

func TestNew_Fields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Output: &buf, NoColors: true})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.WithField("label", "A").Info("row written")
	out := buf.String()
	if !strings.Contains(out, "row written") || !strings.Contains(out, "label:A") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestNew_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "fingerspell.log")
	l, err := New(Config{File: file, Output: &bytes.Buffer{}, NoColors: true})
	if err != nil {
		t.Fatal(err)
	}

	l.Warn("camera unplugged")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "camera unplugged") {
		t.Errorf("log file missing entry: %q", data)
	}
}
