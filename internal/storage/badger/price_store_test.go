package badger

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/models"
)

func TestPriceStore_SavePrices_SkipsDuplicates(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, arbor.NewLogger())
	ctx := context.Background()

	rec := models.UnifiedPriceRecord{
		CropName:  "Tomato",
		MandiName: "Pune Mandi",
		Date:      "2026-07-30",
		ModalPrice: 1500,
	}

	inserted, err := store.SavePrices(ctx, []models.UnifiedPriceRecord{rec})
	if err != nil {
		t.Fatalf("SavePrices: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 inserted, got %d", inserted)
	}

	inserted, err = store.SavePrices(ctx, []models.UnifiedPriceRecord{rec})
	if err != nil {
		t.Fatalf("SavePrices (duplicate): %v", err)
	}
	if inserted != 0 {
		t.Errorf("expected duplicate to be skipped, got %d inserted", inserted)
	}
}

func TestPriceStore_SavePrices_Empty(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, arbor.NewLogger())

	inserted, err := store.SavePrices(context.Background(), nil)
	if err != nil {
		t.Fatalf("SavePrices: %v", err)
	}
	if inserted != 0 {
		t.Errorf("expected 0 inserted for empty input, got %d", inserted)
	}
}

func TestPriceStore_SavePrices_DistinctRecordsBothInserted(t *testing.T) {
	db := newTestDB(t)
	store := NewPriceStore(db, arbor.NewLogger())
	ctx := context.Background()

	records := []models.UnifiedPriceRecord{
		{CropName: "Tomato", MandiName: "Pune Mandi", Date: "2026-07-30", ModalPrice: 1500},
		{CropName: "Onion", MandiName: "Pune Mandi", Date: "2026-07-30", ModalPrice: 900},
	}

	inserted, err := store.SavePrices(ctx, records)
	if err != nil {
		t.Fatalf("SavePrices: %v", err)
	}
	if inserted != 2 {
		t.Errorf("expected 2 inserted, got %d", inserted)
	}
}
