package points

import "errors"

// ErrUnknownCategory is returned by Resolve when a category name has no entry
// in the table.
var ErrUnknownCategory = errors.New("unknown category")

// DefaultMultiplier applies when a category cannot be resolved.
const DefaultMultiplier = 1.0

// Category describes one recognized SWTD activity class.
type Category struct {
	ID         int
	Name       string
	Multiplier float64
	// RequiresManualPoints marks categories (degrees) whose points are
	// entered by the employee rather than computed from duration.
	RequiresManualPoints bool
}

// MultiplierForID maps a category identifier to its multiplier class.
// Identifiers outside the known range fall back to the default.
func MultiplierForID(id int) float64 {
	switch id {
	case 1:
		return 1.0
	case 2:
		return 0.5
	case 3, 4:
		return 1.5
	case 5, 6:
		return 2.0
	default:
		return DefaultMultiplier
	}
}

// Table is an immutable name-keyed category lookup, built once at startup.
type Table struct {
	byName map[string]Category
}

// NewTable builds a lookup table from the given categories.
func NewTable(categories []Category) Table {
	byName := make(map[string]Category, len(categories))
	for _, c := range categories {
		byName[c.Name] = c
	}
	return Table{byName: byName}
}

// DefaultTable returns the seeded production category set.
func DefaultTable() Table {
	return NewTable([]Category{
		{ID: 1, Name: "Profession or work-relevant webinar", Multiplier: MultiplierForID(1)},
		{ID: 2, Name: "Life-relevant webinar", Multiplier: MultiplierForID(2)},
		{ID: 3, Name: "Profession or work-relevant seminar/workshop", Multiplier: MultiplierForID(3)},
		{ID: 4, Name: "Life-relevant seminar/workshop", Multiplier: MultiplierForID(4)},
		{ID: 5, Name: "Degree (Masters)", Multiplier: MultiplierForID(5), RequiresManualPoints: true},
		{ID: 6, Name: "Degree (Doctorate)", Multiplier: MultiplierForID(6), RequiresManualPoints: true},
	})
}

// Lookup finds a category by exact name. Unknown names yield a zero-ID
// category with the default multiplier; this lenient fallback matches the
// historically observed behavior. Use Resolve when the caller wants to
// surface the miss.
func (t Table) Lookup(name string) Category {
	if c, ok := t.byName[name]; ok {
		return c
	}
	return Category{Name: name, Multiplier: DefaultMultiplier}
}

// Resolve is the strict variant of Lookup.
func (t Table) Resolve(name string) (Category, error) {
	if c, ok := t.byName[name]; ok {
		return c, nil
	}
	return Category{}, ErrUnknownCategory
}

// Categories returns the table contents in unspecified order.
func (t Table) Categories() []Category {
	out := make([]Category, 0, len(t.byName))
	for _, c := range t.byName {
		out = append(out, c)
	}
	return out
}
