package model

// FieldKind is the value type a part column accepts.
type FieldKind int

const (
	KindString FieldKind = iota
	KindDecimal
	KindInt
	KindJSON
)

func (k FieldKind) String() string {
	switch k {
	case KindDecimal:
		return "decimal"
	case KindInt:
		return "integer"
	case KindJSON:
		return "JSON object or array"
	default:
		return "string"
	}
}

// Field declares one writable part column.
type Field struct {
	Name        string
	Kind        FieldKind
	Required    bool
	NonNegative bool
}

// commonFields are shared by every part table.
var commonFields = []Field{
	{Name: "brand", Kind: KindString, Required: true},
	{Name: "model", Kind: KindString, Required: true},
	{Name: "price", Kind: KindDecimal, Required: true, NonNegative: true},
	{Name: "image_url", Kind: KindString},
	{Name: "description", Kind: KindString},
	{Name: "product_link", Kind: KindString},
	{Name: "metadata", Kind: KindJSON},
}

var variantFields = map[PartType][]Field{
	Movements: {
		{Name: "movement_type_id", Kind: KindInt},
		{Name: "power_reserve", Kind: KindString},
		{Name: "accuracy", Kind: KindString},
		{Name: "diameter_mm", Kind: KindDecimal, NonNegative: true},
		{Name: "height_mm", Kind: KindDecimal, NonNegative: true},
	},
	Cases: {
		{Name: "material", Kind: KindString},
		{Name: "width_mm", Kind: KindDecimal, NonNegative: true},
		{Name: "lug_to_lug_mm", Kind: KindDecimal, NonNegative: true},
		{Name: "thickness_mm", Kind: KindDecimal, NonNegative: true},
	},
	Dials: {
		{Name: "color", Kind: KindString},
		{Name: "material", Kind: KindString},
		{Name: "diameter_mm", Kind: KindDecimal, NonNegative: true},
	},
	Straps: {
		{Name: "color", Kind: KindString},
		{Name: "material", Kind: KindString},
		{Name: "width_mm", Kind: KindDecimal, NonNegative: true},
		{Name: "length_mm", Kind: KindDecimal, NonNegative: true},
	},
	Hands: {
		{Name: "color", Kind: KindString},
		{Name: "material", Kind: KindString},
		{Name: "style", Kind: KindString},
	},
	Crowns: {
		{Name: "color", Kind: KindString},
		{Name: "material", Kind: KindString},
	},
}

// Fields returns every writable column of the part type, common columns first.
func (t PartType) Fields() []Field {
	out := make([]Field, 0, len(commonFields)+len(variantFields[t]))
	out = append(out, commonFields...)
	return append(out, variantFields[t]...)
}

// VariantFields returns only the type-specific columns.
func (t PartType) VariantFields() []Field {
	return variantFields[t]
}

// Field looks up a writable column by name.
func (t PartType) Field(name string) (Field, bool) {
	for _, f := range t.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PartFields is a validated column → value set ready for persistence.
// Values are string, decimal.Decimal, int64, a JSON document as string,
// or nil to clear an optional column.
type PartFields map[string]any
