package domain

import "testing"

// recordingReporter collects anomaly reports for assertions.
type recordingReporter struct {
	messages []string
	contexts []map[string]any
}

func (r *recordingReporter) Report(message string, context map[string]any) {
	r.messages = append(r.messages, message)
	r.contexts = append(r.contexts, context)
}

func TestNilReporterIsSafe(t *testing.T) {
	report(nil, "ignored", nil)

	called := false
	report(ReporterFunc(func(string, map[string]any) { called = true }), "seen", nil)
	if !called {
		t.Errorf("expected ReporterFunc to be invoked")
	}
}
