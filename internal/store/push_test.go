package store

import "testing"

func TestPushCreateRebindsEndpoint(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	if _, err := ps.Create("alice@example.com", "https://push.example/ep1", "p256", "auth"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	sub, err := ps.Create("bob@example.com", "https://push.example/ep1", "p256b", "authb")
	if err != nil {
		t.Fatalf("re-create subscription: %v", err)
	}
	if sub.UserEmail != "bob@example.com" {
		t.Errorf("user email = %q, want bob@example.com", sub.UserEmail)
	}

	subs, err := ps.ListByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("list by email: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("alice still has %d subscriptions, want 0", len(subs))
	}
}

func TestPushListAndDelete(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	if _, err := ps.Create("alice@example.com", "https://push.example/ep1", "k1", "a1"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if _, err := ps.Create("alice@example.com", "https://push.example/ep2", "k2", "a2"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	subs, err := ps.ListByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("list by email: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("len = %d, want 2", len(subs))
	}

	if err := ps.DeleteByEndpoint("https://push.example/ep1"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, err = ps.ListByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("list by email: %v", err)
	}
	if len(subs) != 1 || subs[0].Endpoint != "https://push.example/ep2" {
		t.Errorf("subs = %v, want only ep2", subs)
	}
}
