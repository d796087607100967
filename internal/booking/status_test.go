package booking

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Fatalf("%s -> %s should be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusCompleted, StatusCancelled},
		{StatusCompleted, StatusConfirmed},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusConfirmed},
		{StatusConfirmed, StatusPending},
		{StatusPending, StatusPending},
	}
	for _, tt := range denied {
		if CanTransition(tt.from, tt.to) {
			t.Fatalf("%s -> %s should be denied", tt.from, tt.to)
		}
	}

	if CanTransition(Status("UNKNOWN"), StatusConfirmed) {
		t.Fatal("unknown status should have no transitions")
	}
}

func TestIsTerminal(t *testing.T) {
	if StatusPending.IsTerminal() || StatusConfirmed.IsTerminal() {
		t.Fatal("active statuses must not be terminal")
	}
	if !StatusCompleted.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Fatal("completed and cancelled must be terminal")
	}
}

func TestHoldsCapacity(t *testing.T) {
	if !StatusPending.HoldsCapacity() {
		t.Fatal("pending must hold capacity")
	}
	if !StatusConfirmed.HoldsCapacity() {
		t.Fatal("confirmed must hold capacity")
	}
	if StatusCompleted.HoldsCapacity() {
		t.Fatal("completed must not hold capacity")
	}
	if StatusCancelled.HoldsCapacity() {
		t.Fatal("cancelled must not hold capacity")
	}
}
