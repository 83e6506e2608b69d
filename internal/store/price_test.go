package store

import "testing"

func TestPriceOverridesEmpty(t *testing.T) {
	ps := NewPriceStore(setupTestDB(t))

	overrides, err := ps.Overrides()
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if len(overrides) != 0 {
		t.Errorf("overrides = %v, want none", overrides)
	}
}

func TestPriceSetUpserts(t *testing.T) {
	ps := NewPriceStore(setupTestDB(t))

	if err := ps.Set("banners", 8.5); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if err := ps.Set("banners", 9.9); err != nil {
		t.Fatalf("update price: %v", err)
	}

	overrides, err := ps.Overrides()
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if overrides["banners"] != 9.9 {
		t.Errorf("price = %v, want 9.9", overrides["banners"])
	}
	if len(overrides) != 1 {
		t.Errorf("len = %d, want 1", len(overrides))
	}
}
