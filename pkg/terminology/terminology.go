// Package terminology maps canonical structure names to standardized
// clinical terminology codes and recommended display colors.
//
// The table is loaded once from an embedded CSV file and is read-only
// thereafter. Structures absent from the table are not an error: callers
// receive a deterministic fallback color and attach no terminology tag.
package terminology

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"segrunner/internal/models"
)

//go:embed data/terminology.csv
var dataFS embed.FS

// Code is one coded concept from a coding scheme, e.g. SNOMED CT.
type Code struct {
	Scheme  string
	Value   string
	Meaning string
}

// IsZero reports whether the code is empty.
func (c Code) IsZero() bool {
	return c.Value == "" && c.Meaning == ""
}

// Entry is the terminology record for one canonical structure name.
type Entry struct {
	// Structure is the canonical structure name, e.g. "kidney_left".
	Structure string

	// Category is the segmentation category, typically
	// SCT 123037004 "Anatomical Structure".
	Category Code

	// Type is the structure type code, e.g. SCT 64033007 "Kidney".
	Type Code

	// TypeModifier is the laterality modifier, if any.
	TypeModifier Code

	// Region is the anatomic region code, if any.
	Region Code

	// RegionModifier is the anatomic region laterality, if any.
	RegionModifier Code

	// Color is the recommended display color.
	Color models.Color
}

// contextName and anatomicContextName identify the terminology contexts the
// host application resolves tags against.
const (
	contextName         = "Segmentation category and type - 3D Slicer General Anatomy list"
	anatomicContextName = "Anatomic codes - DICOM master list"
)

// TagString serializes the entry into the terminology tag format the host
// application attaches to segments. Empty codes serialize as "^^".
func (e Entry) TagString() string {
	var b strings.Builder
	b.WriteString(contextName)
	b.WriteString("~")
	b.WriteString(codeString(e.Category))
	b.WriteString("~")
	b.WriteString(codeString(e.Type))
	b.WriteString("~")
	b.WriteString(codeString(e.TypeModifier))
	b.WriteString("~")
	b.WriteString(anatomicContextName)
	b.WriteString("~")
	b.WriteString(codeString(e.Region))
	b.WriteString("~")
	b.WriteString(codeString(e.RegionModifier))
	return b.String()
}

func codeString(c Code) string {
	if c.IsZero() {
		return "^^"
	}
	return fmt.Sprintf("%s^%s^%s", c.Scheme, c.Value, c.Meaning)
}

// Table is a read-only lookup from canonical structure name to Entry.
type Table struct {
	entries map[string]Entry
}

// NewTable builds a table from the given entries.
func NewTable(entries []Entry) *Table {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		t.entries[e.Structure] = e
	}
	return t
}

// Load parses the embedded terminology table.
func Load() (*Table, error) {
	f, err := dataFS.Open("data/terminology.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded terminology table: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a terminology table from CSV data. The expected columns are:
// structure, category_code, category_meaning, type_code, type_meaning,
// modifier_code, modifier_meaning, region_code, region_meaning, r, g, b.
// Color channels are 0-255 integers.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 12

	// Header row
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("failed to read terminology header: %w", err)
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read terminology row: %w", err)
		}

		e := Entry{
			Structure:    rec[0],
			Category:     sctCode(rec[1], rec[2]),
			Type:         sctCode(rec[3], rec[4]),
			TypeModifier: sctCode(rec[5], rec[6]),
			Region:       sctCode(rec[7], rec[8]),
		}
		if e.Structure == "" {
			return nil, fmt.Errorf("terminology row with empty structure name")
		}
		for i, ch := range rec[9:12] {
			v, err := strconv.Atoi(strings.TrimSpace(ch))
			if err != nil {
				return nil, fmt.Errorf("invalid color channel for %q: %w", e.Structure, err)
			}
			e.Color[i] = float64(v) / 255.0
		}
		entries = append(entries, e)
	}

	return NewTable(entries), nil
}

func sctCode(value, meaning string) Code {
	if value == "" && meaning == "" {
		return Code{}
	}
	return Code{Scheme: "SCT", Value: value, Meaning: meaning}
}

// Lookup returns the entry for a canonical structure name.
func (t *Table) Lookup(structure string) (Entry, bool) {
	e, ok := t.entries[structure]
	return e, ok
}

// Has reports whether the table contains the given structure name.
func (t *Table) Has(structure string) bool {
	_, ok := t.entries[structure]
	return ok
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Color returns the display color for a structure: the terminology color if
// the structure is known, otherwise a fallback color generated from the
// label value.
func (t *Table) Color(structure string, label int) models.Color {
	if e, ok := t.entries[structure]; ok {
		return e.Color
	}
	return FallbackColor(label)
}

// FallbackColor generates a deterministic display color for a label value
// with no terminology entry. Consecutive labels get well-separated hues by
// stepping the hue with the golden ratio.
func FallbackColor(label int) models.Color {
	const goldenRatio = 0.618033988749895
	h := math.Mod(float64(label)*goldenRatio, 1.0)
	return hsvToRGB(h, 0.6, 0.85)
}

// hsvToRGB converts an HSV triplet (each in [0,1]) to RGB.
func hsvToRGB(h, s, v float64) models.Color {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	u := v * (1 - (1-f)*s)
	switch i % 6 {
	case 0:
		return models.Color{v, u, p}
	case 1:
		return models.Color{q, v, p}
	case 2:
		return models.Color{p, v, u}
	case 3:
		return models.Color{p, q, v}
	case 4:
		return models.Color{u, p, v}
	default:
		return models.Color{v, p, q}
	}
}
