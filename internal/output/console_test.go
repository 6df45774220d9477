package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"wafaudit/internal/rules"
)

var errBrokenSink = errors.New("sink broken")

func sampleResult(status rules.Status) rules.Result {
	return rules.Result{
		TestName:       "vm-availability-zones",
		Category:       "Compute",
		SubscriptionID: "s1",
		ResourceName:   "web-01",
		Status:         status,
		Message:        "VM is not deployed into any availability zone",
	}
}

func TestConsoleSinkText(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)

	if err := sink.Write(sampleResult(rules.StatusFail)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := buf.String()
	want := "[FAIL] s1: vm-availability-zones (web-01) - VM is not deployed into any availability zone\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConsoleSinkTextTenantScope(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)

	r := rules.Result{TestName: "identity-fido2-enabled", Status: rules.StatusPass, ResourceName: "fido2"}
	if err := sink.Write(r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "[PASS] tenant: identity-fido2-enabled") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestConsoleSinkTextIgnoresEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)
	if err := sink.Write(Event{Type: "run.started"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("event leaked into text output: %q", buf.String())
	}
}

func TestConsoleSinkStatusFilter(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", []string{"fail", "ERROR"})

	for _, st := range []rules.Status{rules.StatusPass, rules.StatusFail, rules.StatusSkipped, rules.StatusError} {
		if err := sink.Write(sampleResult(st)); err != nil {
			t.Fatalf("Write(%s): %v", st, err)
		}
	}

	got := buf.String()
	if strings.Contains(got, "[PASS]") || strings.Contains(got, "[SKIPPED]") {
		t.Errorf("filtered statuses present: %q", got)
	}
	if !strings.Contains(got, "[FAIL]") || !strings.Contains(got, "[ERROR]") {
		t.Errorf("allowed statuses missing: %q", got)
	}
}

func TestConsoleSinkJSONAggregates(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "json", nil)

	if err := sink.Write(sampleResult(rules.StatusPass)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Write(sampleResult(rules.StatusFail)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("json mode wrote before Close: %q", buf.String())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var results []rules.Result
	if err := json.Unmarshal(buf.Bytes(), &results); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestConsoleSinkNDJSONStreamsEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "ndjson", nil)

	if err := sink.Write(Event{Type: "run.started", Scopes: 2, Rules: 14}); err != nil {
		t.Fatalf("Write(event): %v", err)
	}
	if err := sink.Write(sampleResult(rules.StatusFail)); err != nil {
		t.Fatalf("Write(result): %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line: %v", err)
	}
	if first.Type != "run.started" || first.Scopes != 2 {
		t.Errorf("first event = %+v", first)
	}

	var second Event
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("second line: %v", err)
	}
	if second.Type != "rule.result" {
		t.Errorf("second event type = %q, want rule.result", second.Type)
	}
}

type captureSink struct {
	writes []any
	closed bool
	err    error
}

func (c *captureSink) Write(v any) error {
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, v)
	return nil
}

func (c *captureSink) Close() error {
	c.closed = true
	return c.err
}

func TestManagerFansOut(t *testing.T) {
	m := NewManager()
	a := &captureSink{}
	b := &captureSink{}
	if err := m.AddSink(a); err != nil {
		t.Fatalf("AddSink: %v", err)
	}
	if err := m.AddSink(b); err != nil {
		t.Fatalf("AddSink: %v", err)
	}

	if err := m.Write(sampleResult(rules.StatusPass)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(a.writes) != 1 || len(b.writes) != 1 {
		t.Errorf("writes = %d, %d; want 1 each", len(a.writes), len(b.writes))
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("sinks not closed")
	}
}

func TestManagerAggregatesErrors(t *testing.T) {
	m := NewManager()
	broken := &captureSink{err: errBrokenSink}
	healthy := &captureSink{}
	if err := m.AddSink(broken); err != nil {
		t.Fatalf("AddSink: %v", err)
	}
	if err := m.AddSink(healthy); err != nil {
		t.Fatalf("AddSink: %v", err)
	}

	err := m.Write(sampleResult(rules.StatusPass))
	if err == nil {
		t.Fatal("Write with broken sink succeeded")
	}
	// The healthy sink still receives the write.
	if len(healthy.writes) != 1 {
		t.Errorf("healthy sink writes = %d, want 1", len(healthy.writes))
	}

	if err := m.AddSink(nil); err == nil {
		t.Error("AddSink(nil) succeeded")
	}
}
