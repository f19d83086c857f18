package terminology

import (
	"strings"
	"testing"

	"segrunner/internal/models"
)

func TestLoadEmbeddedTable(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatalf("Failed to load embedded terminology table: %v", err)
	}
	if table.Len() == 0 {
		t.Fatal("Embedded table is empty")
	}

	entry, ok := table.Lookup("spleen")
	if !ok {
		t.Fatal("spleen missing from embedded table")
	}
	if entry.Type.Value != "78961009" || entry.Type.Meaning != "Spleen" {
		t.Errorf("unexpected spleen type code: %+v", entry.Type)
	}
	if entry.Category.Value != "123037004" {
		t.Errorf("unexpected spleen category code: %+v", entry.Category)
	}
	if entry.Color == (models.Color{}) {
		t.Error("spleen entry has no color")
	}
}

func TestLateralityModifiers(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatalf("Failed to load table: %v", err)
	}

	left, _ := table.Lookup("kidney_left")
	right, _ := table.Lookup("kidney_right")
	if left.TypeModifier.Value != "7771000" {
		t.Errorf("kidney_left modifier = %+v, want SCT 7771000 Left", left.TypeModifier)
	}
	if right.TypeModifier.Value != "24028007" {
		t.Errorf("kidney_right modifier = %+v, want SCT 24028007 Right", right.TypeModifier)
	}
	if left.Type.Value != right.Type.Value {
		t.Error("kidney sides should share the same type code")
	}
}

func TestTagString(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatalf("Failed to load table: %v", err)
	}
	entry, _ := table.Lookup("kidney_left")
	tag := entry.TagString()

	want := "Segmentation category and type - 3D Slicer General Anatomy list" +
		"~SCT^123037004^Anatomical Structure" +
		"~SCT^64033007^Kidney" +
		"~SCT^7771000^Left" +
		"~Anatomic codes - DICOM master list" +
		"~^^" +
		"~^^"
	if tag != want {
		t.Errorf("tag mismatch:\n got %s\nwant %s", tag, want)
	}
}

func TestTagStringEmptyModifier(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatalf("Failed to load table: %v", err)
	}
	entry, _ := table.Lookup("liver")
	tag := entry.TagString()
	if !strings.Contains(tag, "~SCT^10200004^Liver~^^~") {
		t.Errorf("liver tag should carry an empty modifier: %s", tag)
	}
}

func TestFallbackColor(t *testing.T) {
	table := NewTable(nil)

	c1 := table.Color("mystery_structure", 5)
	c2 := table.Color("mystery_structure", 5)
	if c1 != c2 {
		t.Error("fallback color must be deterministic for the same label")
	}

	c3 := table.Color("mystery_structure", 6)
	if c1 == c3 {
		t.Error("consecutive labels should get distinct fallback colors")
	}

	for i, ch := range c1 {
		if ch < 0 || ch > 1 {
			t.Errorf("fallback color channel %d out of range: %f", i, ch)
		}
	}
}

func TestParseRejectsBadColor(t *testing.T) {
	csv := "structure,category_code,category_meaning,type_code,type_meaning,modifier_code,modifier_meaning,region_code,region_meaning,r,g,b\n" +
		"thing,123037004,Anatomical Structure,1,Thing,,,,,red,0,0\n"
	if _, err := Parse(strings.NewReader(csv)); err == nil {
		t.Error("expected an error for a non-numeric color channel")
	}
}
