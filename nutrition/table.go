package nutrition

import (
	"strings"

	"github.com/rotisserie/eris"
)

var (
	ErrUnknownFood    = eris.New("unknown food")
	ErrUnknownPortion = eris.New("unknown portion")
)

// Table is the immutable, validated reference table. It is safe for concurrent reads.
type Table struct {
	entries []Entry
	byID    map[string]int
}

var defaultTable = MustNewTable(referenceEntries())

// Default returns the built-in reference table.
func Default() *Table {
	return defaultTable
}

// NewTable validates entries and builds a table that preserves their order.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if err := Validate(e); err != nil {
			return nil, err
		}
		if _, dup := t.byID[e.ID]; dup {
			return nil, eris.Errorf("nutrition: duplicate food id %q", e.ID)
		}
		t.byID[e.ID] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// MustNewTable panics if entries are malformed. Used for compiled-in data.
func MustNewTable(entries []Entry) *Table {
	t, err := NewTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks a single entry's invariants.
func Validate(e Entry) error {
	if strings.TrimSpace(e.ID) == "" {
		return eris.New("nutrition: entry has empty id")
	}
	if strings.TrimSpace(e.DisplayName) == "" {
		return eris.Errorf("nutrition: %s: empty display name", e.ID)
	}
	if e.ProteinPer100g < 0 {
		return eris.Errorf("nutrition: %s: negative protein_per_100g %v", e.ID, e.ProteinPer100g)
	}
	if len(e.Portions) == 0 {
		return eris.Errorf("nutrition: %s: no portions", e.ID)
	}
	seen := make(map[string]struct{}, len(e.Portions))
	for _, p := range e.Portions {
		if p.Label == "" {
			return eris.Errorf("nutrition: %s: portion with empty label", e.ID)
		}
		if _, dup := seen[p.Label]; dup {
			return eris.Errorf("nutrition: %s: duplicate portion %q", e.ID, p.Label)
		}
		seen[p.Label] = struct{}{}
		if p.Grams <= 0 {
			return eris.Errorf("nutrition: %s: portion %q has non-positive grams %v", e.ID, p.Label, p.Grams)
		}
	}
	for method, m := range e.PreparationModifiers {
		if m <= 0 || m > MaxModifier {
			return eris.Errorf("nutrition: %s: modifier %q=%v outside (0, %v]", e.ID, method, m, MaxModifier)
		}
	}
	return nil
}

// Entries returns every entry in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// At returns the entry at position i in table order.
func (t *Table) At(i int) *Entry { return &t.entries[i] }

// Lookup finds an entry by food id.
func (t *Table) Lookup(id string) (*Entry, bool) {
	i, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return &t.entries[i], true
}

// ByCategory returns the ids of all entries in a category, in table order.
func (t *Table) ByCategory(c Category) []string {
	var ids []string
	for _, e := range t.entries {
		if e.Category == c {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Calculation is the protein content of one portion of one food.
type Calculation struct {
	FoodID             string  `json:"food_id"`
	FoodName           string  `json:"food_name"`
	PortionLabel       string  `json:"portion_label"`
	PortionDescription string  `json:"portion_description"`
	Grams              float64 `json:"weight_grams"`
	Preparation        string  `json:"preparation"`
	Modifier           float64 `json:"preparation_modifier"`
	ProteinGrams       float64 `json:"protein_grams"`
	ProteinPer100g     float64 `json:"protein_per_100g"`
}

// CalculateProtein returns the protein for a named portion. Unknown preparations use
// DefaultModifier; unknown foods or portions are errors.
func (t *Table) CalculateProtein(foodID, portionLabel, preparation string) (Calculation, error) {
	e, ok := t.Lookup(foodID)
	if !ok {
		return Calculation{}, eris.Wrapf(ErrUnknownFood, "food %q", foodID)
	}
	p, ok := e.Portion(portionLabel)
	if !ok {
		return Calculation{}, eris.Wrapf(ErrUnknownPortion, "food %q portion %q", foodID, portionLabel)
	}
	mod := e.Modifier(preparation)
	return Calculation{
		FoodID:             e.ID,
		FoodName:           e.DisplayName,
		PortionLabel:       p.Label,
		PortionDescription: p.Description,
		Grams:              p.Grams,
		Preparation:        preparation,
		Modifier:           mod,
		ProteinGrams:       e.ProteinGrams(p.Grams, mod),
		ProteinPer100g:     e.ProteinPer100g,
	}, nil
}
