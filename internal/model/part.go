// Package model defines the data structures used throughout the application.
package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PartType names one of the six fixed part categories. The string value is
// also the name of the table the parts live in.
type PartType string

const (
	Movements PartType = "movements"
	Cases     PartType = "cases"
	Dials     PartType = "dials"
	Straps    PartType = "straps"
	Hands     PartType = "hands"
	Crowns    PartType = "crowns"
)

// PartTypes lists every category in display order.
var PartTypes = []PartType{Movements, Cases, Dials, Straps, Hands, Crowns}

var singular = map[PartType]string{
	Movements: "movement",
	Cases:     "case",
	Dials:     "dial",
	Straps:    "strap",
	Hands:     "hand",
	Crowns:    "crown",
}

// ParsePartType accepts a table name ("movements") or its singular
// form ("movement").
func ParsePartType(s string) (PartType, bool) {
	for _, t := range PartTypes {
		if s == string(t) || s == singular[t] {
			return t, true
		}
	}
	return "", false
}

// Table returns the SQL table holding parts of this type.
func (t PartType) Table() string { return string(t) }

// Singular returns "movement" for Movements, "case" for Cases and so on.
func (t PartType) Singular() string { return singular[t] }

// RefColumn is the builds column referencing this part type, e.g. "movements_id".
func (t PartType) RefColumn() string { return string(t) + "_id" }

// ModelColumn is the enriched column a build listing carries for this
// type, e.g. "movement_model".
func (t PartType) ModelColumn() string { return singular[t] + "_model" }

// Part is one catalog item. The shared columns are typed fields; the
// variant-specific columns (width_mm, color, power_reserve...) live in
// Attributes, keyed by column name.
//
// OwnerID is nil for seed/catalog rows, which are read-only through the API.
type Part struct {
	ID           int64
	Type         PartType
	Brand        string
	Model        string
	Price        decimal.Decimal
	ImageURL     string
	Description  string
	ProductLink  string
	OwnerID      *int64
	Metadata     json.RawMessage
	MovementType string // joined type name, movements only
	Attributes   map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MarshalJSON flattens Attributes into the top-level object so a part is
// sent to clients exactly like the row it came from.
func (p Part) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Attributes)+14)
	for k, v := range p.Attributes {
		out[k] = encodeValue(v)
	}
	out["id"] = p.ID
	out["part_type"] = p.Type
	out["brand"] = p.Brand
	out["model"] = p.Model
	out["price"] = Money(p.Price)
	out["image_url"] = p.ImageURL
	out["description"] = p.Description
	out["product_link"] = p.ProductLink
	out["owner_id"] = p.OwnerID
	if len(p.Metadata) > 0 {
		out["metadata"] = p.Metadata
	} else {
		out["metadata"] = nil
	}
	if p.Type == Movements {
		out["movement_type"] = p.MovementType
	}
	out["created_at"] = p.CreatedAt
	out["updated_at"] = p.UpdatedAt
	return json.Marshal(out)
}

// OwnedBy reports whether the part belongs to userID.
func (p *Part) OwnedBy(userID int64) bool {
	return p.OwnerID != nil && *p.OwnerID == userID
}

// MovementType is the normalized lookup row for movement kinds
// ("automatic", "manual", "quartz" ...).
type MovementType struct {
	ID   int64  `json:"id"`
	Name string `json:"type_name"`
}

// Money renders a decimal as a JSON number with two fractional digits.
func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func encodeValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return json.Number(d.String())
	}
	return v
}
