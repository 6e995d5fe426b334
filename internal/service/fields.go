package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/model"
)

// Alternate spellings clients send for canonical columns.
var fieldAliases = map[string]string{
	"product_url": "product_link",
	"productURL":  "product_link",
	"productUrl":  "product_link",
	"productLink": "product_link",
	"align_meta":  "metadata",
	"imageUrl":    "image_url",
	"imageURL":    "image_url",
}

// Decimal columns are NUMERIC(12,2).
const decimalScale = 2

var maxDecimal = decimal.New(1, 10)

// Keys naming a movement type by name rather than by id.
var movementTypeKeys = []string{"movement_type", "type_"}

// normalizeKeys rewrites aliases to their canonical names. An explicit
// canonical key wins over any alias.
func normalizeKeys(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if _, isAlias := fieldAliases[k]; !isAlias {
			out[k] = v
		}
	}
	for alias, canonical := range fieldAliases {
		v, ok := in[alias]
		if !ok {
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
	}
	return out
}

// filterFields keeps only columns the part type declares and converts each
// value to the column's kind. Unknown keys are dropped without error, which
// also silently discards owner_id, part_type and id.
func filterFields(t model.PartType, in map[string]any) (model.PartFields, error) {
	out := make(model.PartFields, len(in))
	for _, f := range t.Fields() {
		raw, ok := in[f.Name]
		if !ok {
			continue
		}
		v, err := coerce(f, raw)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func coerce(f model.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	invalid := apperror.ValidationFailed(f.Name, fmt.Sprintf("%s must be a %s", f.Name, f.Kind))

	switch f.Kind {
	case model.KindString:
		switch v := raw.(type) {
		case string:
			return strings.TrimSpace(v), nil
		case json.Number:
			return v.String(), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
		return nil, invalid

	case model.KindDecimal:
		var d decimal.Decimal
		switch v := raw.(type) {
		case json.Number:
			parsed, err := decimal.NewFromString(v.String())
			if err != nil {
				return nil, invalid
			}
			d = parsed
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, nil
			}
			parsed, err := decimal.NewFromString(s)
			if err != nil {
				return nil, invalid
			}
			d = parsed
		case float64:
			d = decimal.NewFromFloat(v)
		case int:
			d = decimal.NewFromInt(int64(v))
		case int64:
			d = decimal.NewFromInt(v)
		case decimal.Decimal:
			d = v
		default:
			return nil, invalid
		}
		if f.NonNegative && d.IsNegative() {
			return nil, apperror.ValidationFailed(f.Name, fmt.Sprintf("%s must not be negative", f.Name))
		}
		if d.Abs().GreaterThanOrEqual(maxDecimal) {
			return nil, apperror.ValidationFailed(f.Name, fmt.Sprintf("%s must be below %s", f.Name, maxDecimal))
		}
		if !d.Equal(d.Round(decimalScale)) {
			return nil, apperror.ValidationFailed(f.Name, fmt.Sprintf("%s allows at most %d decimal places", f.Name, decimalScale))
		}
		return d, nil

	case model.KindInt:
		switch v := raw.(type) {
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, invalid
			}
			return n, nil
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, nil
			}
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, invalid
			}
			return n, nil
		case float64:
			if v != math.Trunc(v) {
				return nil, invalid
			}
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		}
		return nil, invalid

	case model.KindJSON:
		switch v := raw.(type) {
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, invalid
			}
			return string(b), nil
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, nil
			}
			if (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) && json.Valid([]byte(s)) {
				return s, nil
			}
		}
		return nil, invalid
	}

	return nil, invalid
}

// checkRequired enforces required columns. On create every required column
// must be present and non-empty; on update only the ones being written are
// checked, so a partial update cannot blank them out.
func checkRequired(t model.PartType, fields model.PartFields, creating bool) error {
	for _, f := range t.Fields() {
		if !f.Required {
			continue
		}
		v, present := fields[f.Name]
		if !present && !creating {
			continue
		}
		if !present || v == nil || v == "" {
			if creating {
				return apperror.ValidationFailed(f.Name, fmt.Sprintf("%s is required", f.Name))
			}
			return apperror.ValidationFailed(f.Name, fmt.Sprintf("%s cannot be empty", f.Name))
		}
	}
	return nil
}

// parseID accepts the integer forms a JSON body or path segment can carry.
func parseID(field string, raw any) (int64, error) {
	invalid := apperror.ValidationFailed(field, fmt.Sprintf("%s must be a positive integer id", field))

	var n int64
	switch v := raw.(type) {
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, invalid
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, invalid
		}
		n = parsed
	case float64:
		if v != math.Trunc(v) {
			return 0, invalid
		}
		n = int64(v)
	case int64:
		n = v
	case int:
		n = int64(v)
	default:
		return 0, invalid
	}
	if n <= 0 {
		return 0, invalid
	}
	return n, nil
}
