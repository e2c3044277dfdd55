// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevLevel := Writer(), GetLevel()
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(prevOut)
		SetLevel(prevLevel)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected LogLevel
		ok       bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; expected %v, %v", tt.in, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %d", 3)
	Errorf("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below WARN were logged:\n%s", out)
	}
	if !strings.Contains(out, "[WARN]  shown 3") || !strings.Contains(out, "[ERROR] shown 4") {
		t.Errorf("expected WARN and ERROR lines, got:\n%s", out)
	}
}

func TestDebugEnabled(t *testing.T) {
	buf := captureOutput(t, LevelDebug)
	if !Enabled(LevelDebug) {
		t.Fatal("Enabled(LevelDebug) = false at debug level")
	}
	Debugf("Engine: hop %d", 441)
	if !strings.Contains(buf.String(), "[DEBUG] Engine: hop 441") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestFatalfExits(t *testing.T) {
	buf := captureOutput(t, LevelError)
	code := -1
	prevExit := exit
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = prevExit })

	Fatalf("cannot continue: %s", "no device")
	if code != 1 {
		t.Errorf("exit code = %d, expected 1", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] cannot continue: no device") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
