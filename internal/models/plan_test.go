package models

import "testing"

func TestAggregatePlanStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		expected string
	}{
		{"no sessions", []string{}, StatusPending},
		{"all pending", []string{StatusPending, StatusPending}, StatusPending},
		{"all done", []string{StatusDone, StatusDone, StatusDone}, StatusDone},
		{"single done", []string{StatusDone}, StatusDone},
		{"any in progress wins over pending", []string{StatusPending, StatusInProgress}, StatusInProgress},
		{"in progress beats partial done", []string{StatusDone, StatusInProgress}, StatusInProgress},
		{"partial done without in progress is pending", []string{StatusDone, StatusPending}, StatusPending},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := AggregatePlanStatus(tc.statuses)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestAggregatePlanStatus_RoundTrip(t *testing.T) {
	// Completing every session one by one lands the plan on done, and
	// reopening one drops it back.
	statuses := []string{StatusPending, StatusPending, StatusPending}

	for i := range statuses {
		statuses[i] = StatusDone
		expected := StatusPending
		if i == len(statuses)-1 {
			expected = StatusDone
		}
		if got := AggregatePlanStatus(statuses); got != expected {
			t.Errorf("After completing %d sessions: expected %q, got %q", i+1, expected, got)
		}
	}

	statuses[0] = StatusInProgress
	if got := AggregatePlanStatus(statuses); got != StatusInProgress {
		t.Errorf("After reopening a session: expected %q, got %q", StatusInProgress, got)
	}
}
