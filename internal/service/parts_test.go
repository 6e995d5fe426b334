package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/model"
)

func newTestPartService() (*PartService, *fakePartRepo, *fakeMovementTypes) {
	parts := newFakePartRepo()
	types := newFakeMovementTypes()
	return NewPartService(parts, types, discardLogger()), parts, types
}

func validPart() map[string]any {
	return map[string]any{
		"brand": "Seiko",
		"model": "NH35",
		"price": json.Number("49.99"),
	}
}

// =========================================================================
// PART TYPE TESTS
// =========================================================================

func TestParsePartType(t *testing.T) {
	tests := []struct {
		in      string
		want    model.PartType
		wantErr bool
	}{
		{"movements", model.Movements, false},
		{"movement", model.Movements, false},
		{"  Cases ", model.Cases, false},
		{"crown", model.Crowns, false},
		{"bezels", "", true},
		{"", "", true},
		{"users", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePartType(tt.in)
			if tt.wantErr {
				if !errors.Is(err, apperror.ErrValidation) {
					t.Errorf("ParsePartType(%q) error = %v, want ErrValidation", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParsePartType(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestList_UnknownType(t *testing.T) {
	svc, _, _ := newTestPartService()

	if _, err := svc.List(context.Background(), "bezels"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("List() error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// Create TESTS
// =========================================================================

func TestCreate_Valid(t *testing.T) {
	svc, _, _ := newTestPartService()

	p, err := svc.Create(context.Background(), "dials", validPart(), 7)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !p.OwnedBy(7) {
		t.Errorf("OwnerID = %v, want 7", p.OwnerID)
	}
	if !p.Price.Equal(decimal.RequireFromString("49.99")) {
		t.Errorf("Price = %s, want 49.99", p.Price)
	}
}

func TestCreate_RequiredFields(t *testing.T) {
	for _, missing := range []string{"brand", "model", "price"} {
		t.Run(missing, func(t *testing.T) {
			svc, _, _ := newTestPartService()
			in := validPart()
			delete(in, missing)

			_, err := svc.Create(context.Background(), "cases", in, 1)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Field != missing {
				t.Errorf("Create() error = %v, want validation on %q", err, missing)
			}
		})
	}
}

func TestCreate_EmptyBrandRejected(t *testing.T) {
	svc, _, _ := newTestPartService()
	in := validPart()
	in["brand"] = "   "

	_, err := svc.Create(context.Background(), "cases", in, 1)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create() error = %v, want ErrValidation", err)
	}
}

func TestCreate_DropsUnknownAndProtectedKeys(t *testing.T) {
	svc, repo, _ := newTestPartService()
	in := validPart()
	in["owner_id"] = json.Number("999")
	in["id"] = json.Number("5")
	in["part_type"] = "crowns"
	in["favourite_colour"] = "blue"
	in["power_reserve"] = "42h" // movements only

	if _, err := svc.Create(context.Background(), "straps", in, 1); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, key := range []string{"owner_id", "id", "part_type", "favourite_colour", "power_reserve"} {
		if _, ok := repo.lastFields[key]; ok {
			t.Errorf("field %q reached the repository", key)
		}
	}
}

func TestCreate_NormalizesAliases(t *testing.T) {
	svc, repo, _ := newTestPartService()
	in := validPart()
	in["productURL"] = "https://shop.example.com/nh35"
	in["align_meta"] = map[string]any{"offset": json.Number("2")}

	if _, err := svc.Create(context.Background(), "hands", in, 1); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if got := repo.lastFields["product_link"]; got != "https://shop.example.com/nh35" {
		t.Errorf("product_link = %v", got)
	}
	if got := repo.lastFields["metadata"]; got != `{"offset":2}` {
		t.Errorf("metadata = %v", got)
	}
}

func TestCreate_CanonicalKeyWinsOverAlias(t *testing.T) {
	svc, repo, _ := newTestPartService()
	in := validPart()
	in["product_link"] = "canonical"
	in["product_url"] = "alias"

	svc.Create(context.Background(), "hands", in, 1)

	if got := repo.lastFields["product_link"]; got != "canonical" {
		t.Errorf("product_link = %v, want canonical", got)
	}
}

func TestCreate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
	}{
		{"negative price", "price", json.Number("-1")},
		{"price not a number", "price", "cheap"},
		{"negative dimension", "width_mm", json.Number("-40")},
		{"brand is an object", "brand", map[string]any{"a": 1}},
		{"metadata is a string", "metadata", "not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestPartService()
			in := validPart()
			in[tt.field] = tt.value

			_, err := svc.Create(context.Background(), "cases", in, 1)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Field != tt.field {
				t.Errorf("Create() error = %v, want validation on %q", err, tt.field)
			}
		})
	}
}

func TestCreate_ResolvesMovementType(t *testing.T) {
	svc, repo, types := newTestPartService()
	ctx := context.Background()

	in := validPart()
	in["type_"] = "Automatic"
	if _, err := svc.Create(ctx, "movements", in, 1); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	first := repo.lastFields["movement_type_id"]

	in = validPart()
	in["movement_type"] = "Automatic"
	if _, err := svc.Create(ctx, "movements", in, 1); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if first == nil || repo.lastFields["movement_type_id"] != first {
		t.Errorf("movement_type_id = %v then %v, want the same id", first, repo.lastFields["movement_type_id"])
	}
	if len(types.ids) != 1 {
		t.Errorf("movement types created = %d, want 1", len(types.ids))
	}
}

func TestCreate_IgnoresClientMovementTypeID(t *testing.T) {
	svc, repo, types := newTestPartService()
	ctx := context.Background()

	in := validPart()
	in["movement_type_id"] = json.Number("9999")
	if _, err := svc.Create(ctx, "movements", in, 1); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, ok := repo.lastFields["movement_type_id"]; ok {
		t.Errorf("movement_type_id = %v, want it dropped", repo.lastFields["movement_type_id"])
	}

	in = validPart()
	in["movement_type_id"] = "not-a-number"
	in["movement_type"] = "Manual"
	if _, err := svc.Create(ctx, "movements", in, 1); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := repo.lastFields["movement_type_id"]; got != types.ids["Manual"] {
		t.Errorf("movement_type_id = %v, want the resolved id %v", got, types.ids["Manual"])
	}
}

func TestCreate_MovementTypeIgnoredForOtherTypes(t *testing.T) {
	svc, repo, types := newTestPartService()
	in := validPart()
	in["movement_type"] = "Quartz"

	svc.Create(context.Background(), "dials", in, 1)

	if _, ok := repo.lastFields["movement_type_id"]; ok || len(types.ids) != 0 {
		t.Error("movement type resolved for a dial")
	}
}

func TestCreate_StoreError(t *testing.T) {
	svc, repo, _ := newTestPartService()
	repo.err = errors.New("disk full")

	_, err := svc.Create(context.Background(), "dials", validPart(), 1)
	if err == nil || errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create() error = %v, want a store error", err)
	}
}

// =========================================================================
// Update / Delete TESTS
// =========================================================================

func TestUpdate_OwnerAndStranger(t *testing.T) {
	svc, _, _ := newTestPartService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "crowns", validPart(), 1)

	got, err := svc.Update(ctx, "crowns", p.ID, map[string]any{"model": "Onion"}, 1)
	if err != nil {
		t.Fatalf("Update() by owner error = %v", err)
	}
	if got.Model != "Onion" {
		t.Errorf("Model = %q, want Onion", got.Model)
	}

	_, err = svc.Update(ctx, "crowns", p.ID, map[string]any{"model": "Stolen"}, 2)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() by stranger error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_StripsOwnership(t *testing.T) {
	svc, repo, _ := newTestPartService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "crowns", validPart(), 1)

	if _, err := svc.Update(ctx, "crowns", p.ID, map[string]any{"owner_id": json.Number("2"), "part_type": "dials"}, 1); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(repo.lastFields) != 0 {
		t.Errorf("fields sent to repository = %v, want none", repo.lastFields)
	}
}

func TestUpdate_CannotBlankRequired(t *testing.T) {
	svc, _, _ := newTestPartService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "crowns", validPart(), 1)

	_, err := svc.Update(ctx, "crowns", p.ID, map[string]any{"brand": nil}, 1)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "brand" {
		t.Errorf("Update() error = %v, want validation on brand", err)
	}
}

func TestUpdate_ClearsOptional(t *testing.T) {
	svc, repo, _ := newTestPartService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "crowns", validPart(), 1)

	if _, err := svc.Update(ctx, "crowns", p.ID, map[string]any{"color": nil}, 1); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if v, ok := repo.lastFields["color"]; !ok || v != nil {
		t.Errorf("color = %v (present %v), want explicit nil", v, ok)
	}
}

func TestDelete(t *testing.T) {
	svc, _, _ := newTestPartService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "straps", validPart(), 1)

	if err := svc.Delete(ctx, "straps", p.ID, 2); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() by stranger error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "straps", p.ID, 1); err != nil {
		t.Fatalf("Delete() by owner error = %v", err)
	}
	if err := svc.Delete(ctx, "straps", p.ID, 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// ListByOwner TESTS
// =========================================================================

func TestListByOwner_AllKeysPresent(t *testing.T) {
	svc, _, _ := newTestPartService()
	ctx := context.Background()
	svc.Create(ctx, "dials", validPart(), 1)
	svc.Create(ctx, "dials", validPart(), 1)
	svc.Create(ctx, "dials", validPart(), 2)

	got, err := svc.ListByOwner(ctx, 1)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(got) != len(model.PartTypes) {
		t.Fatalf("ListByOwner() has %d keys, want %d", len(got), len(model.PartTypes))
	}
	for _, pt := range model.PartTypes {
		if got[pt] == nil {
			t.Errorf("ListByOwner()[%s] is nil, want empty slice", pt)
		}
	}
	if len(got[model.Dials]) != 2 {
		t.Errorf("dials = %d, want 2", len(got[model.Dials]))
	}
	if got[model.Dials][0].ID < got[model.Dials][1].ID {
		t.Error("dials not newest first")
	}
}
