package migrations

import (
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	data, err := Files.ReadFile("001_bookings.sql")
	if err != nil {
		t.Fatalf("expected embedded migration, got error: %v", err)
	}
	if !strings.Contains(string(data), "bookings_confirm_token_key") {
		t.Fatalf("initial migration must declare the confirm token unique constraint")
	}
}
