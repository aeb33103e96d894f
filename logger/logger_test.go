package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerOutput(t *testing.T) {
	var out bytes.Buffer
	InitLogger(&Config{
		AppName:      "test",
		Level:        INFO,
		TrackLine:    true,
		DisableColor: true,
		Output:       &out,
	})
	Debug("hidden %d", 1)
	Info("collected %d objects, %d remaining", 3, 4)
	Error("boom")
	CloseLogger()
	text := out.String()
	if strings.Contains(text, "hidden") {
		t.Fatalf("debug message written at INFO level: %q", text)
	}
	if !strings.Contains(text, "[INFO] collected 3 objects, 4 remaining") {
		t.Fatalf("missing info line: %q", text)
	}
	if !strings.Contains(text, "[ERROR] boom") {
		t.Fatalf("missing error line: %q", text)
	}
	if !strings.Contains(text, "logger_test.go:") || !strings.Contains(text, "TestLoggerOutput()") {
		t.Fatalf("missing caller info: %q", text)
	}
}

func TestLoggerNotInitialized(t *testing.T) {
	CloseLogger()
	Info("dropped")
	if IsEnabled(ERROR) {
		t.Fatal("closed logger reports enabled")
	}
}

func TestLoggerTrackThread(t *testing.T) {
	var out bytes.Buffer
	InitLogger(&Config{
		Level:        DEBUG,
		TrackLine:    true,
		TrackThread:  true,
		DisableColor: true,
		Output:       &out,
	})
	Debug("with thread")
	CloseLogger()
	if !strings.Contains(out.String(), "goroutine:") || !strings.Contains(out.String(), "thread:") {
		t.Fatalf("missing thread info: %q", out.String())
	}
}

func TestLookupLevel(t *testing.T) {
	if level, ok := LookupLevel("warn"); !ok || level != WARN {
		t.Fatalf("warn: %d %v", level, ok)
	}
	if _, ok := LookupLevel("inof"); ok {
		t.Fatal("unknown level accepted")
	}
}

func TestStack(t *testing.T) {
	if stack := Stack(); !strings.Contains(stack, "TestStack") {
		t.Fatalf("stack missing caller: %q", stack)
	}
}

func TestParseLevel(t *testing.T) {
	for text, want := range map[string]int{"debug": DEBUG, "Info": INFO, "WARN": WARN, "error": ERROR, "bogus": DEBUG} {
		if got := ParseLevel(text); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", text, got, want)
		}
	}
}
