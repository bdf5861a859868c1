package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewLoggerDefaultsToStdout(t *testing.T) {
	l := NewLogger(INFO, nil)
	if l.output == nil {
		t.Fatal("expected non-nil output")
	}
}

func TestWithFieldsMerges(t *testing.T) {
	l := NewLogger(INFO, nil).WithFields(map[string]interface{}{"a": 1})
	l2 := l.WithFields(map[string]interface{}{"b": 2})
	if len(l2.fields) != 2 {
		t.Fatalf("expected 2 merged fields, got %d", len(l2.fields))
	}
	if l2.fields["a"] != 1 || l2.fields["b"] != 2 {
		t.Fatalf("unexpected fields: %+v", l2.fields)
	}
}

func TestNewWorkerLoggerTagsRankAndSize(t *testing.T) {
	var buf bytes.Buffer
	l := NewWorkerLogger(2, 4)
	l.output = &buf
	l.Info("hello")
	out := buf.String()
	if !strings.Contains(out, "rank=2") || !strings.Contains(out, "size=4") {
		t.Fatalf("expected rank/size fields in output, got %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WARN, &buf)
	l.Debug("should not appear")
	l.Info("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below WARN, got %q", buf.String())
	}
	l.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected WARN message to be logged")
	}
}

func TestLogRoundRecordsOutcome(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(DEBUG, &buf)

	if err := l.LogRound(3, func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "round=3") {
		t.Fatalf("expected round number in log: %q", buf.String())
	}

	buf.Reset()
	wantErr := errors.New("boom")
	if err := l.LogRound(4, func() error { return wantErr }); err != wantErr {
		t.Fatalf("expected LogRound to return the wrapped error")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected error message in log: %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug": DEBUG, "INFO": INFO, "warning": WARN, "ERROR": ERROR, "fatal": FATAL, "nonsense": INFO,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
