package logx

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() {
		log.SetOutput(prev)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) should fail")
	}
}

func TestDebugfGated(t *testing.T) {
	buf := captureLog(t)

	Debugf("[test] hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line printed at info level: %q", buf.String())
	}

	SetLevel(LevelDebug)
	Debugf("[test] shown %d", 1)
	if !strings.Contains(buf.String(), "[test] shown 1") {
		t.Errorf("debug line missing: %q", buf.String())
	}
}

func TestWarnfAboveThreshold(t *testing.T) {
	buf := captureLog(t)
	SetLevel(LevelError)

	Infof("[test] info")
	Warnf("[test] warn")
	if buf.Len() != 0 {
		t.Errorf("lines below error printed: %q", buf.String())
	}
}
