package models

import (
	"testing"
)

func TestRunProgress(t *testing.T) {
	tests := []struct {
		total     int
		processed int
		expected  float64
	}{
		{0, 0, 0},
		{10, 0, 0},
		{10, 5, 50},
		{10, 10, 100},
		{3, 1, 100.0 / 3},
	}

	for _, test := range tests {
		run := ImportTaskRun{TotalItems: test.total, ProcessedItems: test.processed}
		if got := run.Progress(); got != test.expected {
			t.Errorf("Progress(%d/%d) = %v, expected %v", test.processed, test.total, got, test.expected)
		}
	}
}

func TestRunFinished(t *testing.T) {
	tests := []struct {
		status   ImportRunStatus
		finished bool
	}{
		{ImportRunStatusPending, false},
		{ImportRunStatusRunning, false},
		{ImportRunStatusCompleted, true},
		{ImportRunStatusFailed, true},
	}

	for _, test := range tests {
		run := ImportTaskRun{Status: test.status}
		if run.Finished() != test.finished {
			t.Errorf("Finished() for %s = %v, expected %v", test.status, run.Finished(), test.finished)
		}
	}
}

func TestImportSettingsScanRoundTrip(t *testing.T) {
	settings := ImportSettings{PageSize: 100, StrictPayload: true, MirrorImages: true, DefaultStock: 5}

	value, err := settings.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}

	var decoded ImportSettings
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if decoded != settings {
		t.Errorf("round trip = %+v, expected %+v", decoded, settings)
	}

	// nil column resets to defaults
	decoded = settings
	if err := decoded.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) returned error: %v", err)
	}
	if decoded != (ImportSettings{}) {
		t.Errorf("Scan(nil) = %+v, expected zero settings", decoded)
	}
}

func TestHasSourceCategory(t *testing.T) {
	tests := []struct {
		id       string
		name     string
		expected bool
	}{
		{"", "", false},
		{"42", "", true},
		{"", "Phones", true},
		{"42", "Phones", true},
	}

	for _, test := range tests {
		task := ImportTask{SourceCategoryID: test.id, SourceCategoryName: test.name}
		if task.HasSourceCategory() != test.expected {
			t.Errorf("HasSourceCategory(%q, %q) = %v, expected %v", test.id, test.name, task.HasSourceCategory(), test.expected)
		}
	}
}
