package collector

import (
	"testing"
	"time"
)

func TestFailureTrackerNotifiesOnThirdFailure(t *testing.T) {
	var tr FailureTracker
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tr.RecordFailure()
	if tr.ShouldNotify(now) {
		t.Error("should not notify after 1 failure")
	}
	tr.RecordFailure()
	if tr.ShouldNotify(now) {
		t.Error("should not notify after 2 failures")
	}
	tr.RecordFailure()
	if !tr.ShouldNotify(now) {
		t.Error("should notify on 3rd consecutive failure")
	}
}

func TestFailureTrackerThrottlesToOncePerHour(t *testing.T) {
	var tr FailureTracker
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		tr.RecordFailure()
	}
	if !tr.ShouldNotify(now) {
		t.Fatal("expected first notification")
	}

	// Failures keep accumulating within the hour; no repeat notification.
	tr.RecordFailure()
	if tr.ShouldNotify(now.Add(30 * time.Minute)) {
		t.Error("notified again within the hour")
	}

	tr.RecordFailure()
	if !tr.ShouldNotify(now.Add(61 * time.Minute)) {
		t.Error("expected repeat notification after an hour")
	}
}

func TestFailureTrackerSuccessResets(t *testing.T) {
	var tr FailureTracker
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		tr.RecordFailure()
	}
	if !tr.ShouldNotify(now) {
		t.Fatal("expected notification before reset")
	}

	tr.RecordSuccess()
	if tr.Consecutive() != 0 {
		t.Errorf("consecutive = %d after success, want 0", tr.Consecutive())
	}

	// A fresh outage counts from zero and may notify again immediately once it
	// reaches the threshold, even within the previous hour window.
	for i := 0; i < 3; i++ {
		tr.RecordFailure()
	}
	if !tr.ShouldNotify(now.Add(5 * time.Minute)) {
		t.Error("expected notification for a new outage after recovery")
	}
}
