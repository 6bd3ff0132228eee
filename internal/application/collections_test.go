package application_test

import (
	"context"
	"testing"

	"github.com/GuelfoNero-beep/D117/internal/persistence"
	"github.com/GuelfoNero-beep/D117/internal/testfixtures"
)

func TestCollectionsSizes(t *testing.T) {
	t.Parallel()

	p := testfixtures.NewPortal(t)
	p.LoginAs(t, "mario", "password")
	if _, err := p.Bookings.Book(context.Background(), p.Session, "evt01"); err != nil {
		t.Fatalf("Book: %v", err)
	}

	want := map[string]int{
		persistence.KeyUsers:       4,
		persistence.KeyEvents:      3,
		persistence.KeyAudioGuides: 3,
		persistence.KeyDirectory:   4,
		persistence.KeyBookings:    1,
		persistence.KeyReferences:  7,
	}
	sizes := p.Collections.Sizes()
	for _, key := range persistence.Keys() {
		if sizes[key] != want[key] {
			t.Fatalf("Sizes()[%s] = %d, want %d", key, sizes[key], want[key])
		}
	}
	if len(sizes) != len(want) {
		t.Fatalf("unexpected keys in %v", sizes)
	}
}
