package instance

import "testing"

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv("HARVESTLINK_INSTANCE_ID", " cron-a ")
	if got := GetID(); got != "cron-a" {
		t.Fatalf("expected cron-a, got %q", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("HARVESTLINK_INSTANCE_ID", "")
	if got := GetID(); got == "" {
		t.Fatal("expected a non-empty instance id")
	}
}
