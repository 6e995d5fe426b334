package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PartRefs maps a part type to the referenced part id. Absent keys mean the
// build has no part of that type.
type PartRefs map[PartType]int64

// Build is one user's assembled configuration.
//
// TotalPrice is fixed when the build is created. Deleting or re-pricing a
// referenced part later does not change it.
type Build struct {
	ID         int64
	OwnerID    int64
	Refs       PartRefs
	Models     map[PartType]string // model name of each referenced part that still exists
	TotalPrice decimal.Decimal
	Published  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MarshalJSON emits one "<type>_id" and one "<singular>_model" key per part
// type, null when the slot is empty or the part is gone.
func (b Build) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":          b.ID,
		"owner_id":    b.OwnerID,
		"total_price": Money(b.TotalPrice),
		"published":   b.Published,
		"created_at":  b.CreatedAt,
		"updated_at":  b.UpdatedAt,
	}
	for _, t := range PartTypes {
		if id, ok := b.Refs[t]; ok {
			out[t.RefColumn()] = id
		} else {
			out[t.RefColumn()] = nil
		}
		if m, ok := b.Models[t]; ok {
			out[t.ModelColumn()] = m
		} else {
			out[t.ModelColumn()] = nil
		}
	}
	return json.Marshal(out)
}
