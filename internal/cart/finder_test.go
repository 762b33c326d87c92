package cart

import (
	"testing"

	"pantry-shop/internal/domain"
)

func storeWithItems(items ...domain.CartItem) *Store {
	s := &Store{cart: cartWith(items...)}
	return s
}

func TestFindItemByVariant(t *testing.T) {
	s := storeWithItems(
		domain.CartItem{ID: "i1", ProductID: "p1", VariantID: "v1", Quantity: 1, RegularPrice: 1},
		domain.CartItem{ID: "i2", ProductID: "p2", VariantID: "v2", Quantity: 1, RegularPrice: 1},
	)

	item := s.FindItemByVariant("v2")
	if item == nil || item.ID != "i2" {
		t.Fatalf("expected i2, got %+v", item)
	}

	if s.FindItemByVariant("missing") != nil {
		t.Fatal("expected nil for unknown variant")
	}
	if s.FindItemByVariant("") != nil {
		t.Fatal("an empty variant id never matches")
	}
}

func TestFindItemRequiresBothIdentifiers(t *testing.T) {
	s := storeWithItems(
		domain.CartItem{ID: "i1", ProductID: "p1", VariantID: "v1", Quantity: 1, RegularPrice: 1},
		domain.CartItem{ID: "i2", ProductID: "p2", VariantID: "v1", Quantity: 1, RegularPrice: 1},
	)

	item := s.FindItem("p2", "v1")
	if item == nil || item.ID != "i2" {
		t.Fatalf("expected i2, got %+v", item)
	}

	if s.FindItem("p1", "v2") != nil {
		t.Fatal("product match alone must not be enough")
	}
}

func TestFindItemEmptyVariantMatchesVariantlessLine(t *testing.T) {
	s := storeWithItems(
		domain.CartItem{ID: "i1", ProductID: "p1", VariantID: "v1", Quantity: 1, RegularPrice: 1},
		domain.CartItem{ID: "i2", ProductID: "p1", Quantity: 1, RegularPrice: 1},
	)

	item := s.FindItem("p1", "")
	if item == nil || item.ID != "i2" {
		t.Fatalf("expected the variantless line, got %+v", item)
	}
}

func TestFindersReturnCopies(t *testing.T) {
	s := storeWithItems(domain.CartItem{ID: "i1", ProductID: "p1", VariantID: "v1", Quantity: 1, RegularPrice: 1})

	item := s.FindItemByVariant("v1")
	item.Quantity = 99

	if s.Cart().Items[0].Quantity != 1 {
		t.Fatal("mutating the returned item must not touch the cache")
	}
}
