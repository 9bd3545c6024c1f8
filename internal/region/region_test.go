package region

import (
	"errors"
	"testing"

	"github.com/hkuril/WildMaps-processing/internal/dict"
)

func testDicts() *dict.Dictionaries {
	return dict.NewForTest(
		[]string{"Jaguar", "Mountain Tapir"},
		map[string]dict.Span{
			"Central America": {-92, 7, -77, 18},
			"South America":   {-82, -56, -34, 13},
		},
		map[string]dict.SubregionEntry{
			"Tropical Andes": {
				Span: dict.Span{-80, -20, -62, 12},
				Units: []dict.AdminUnit{
					{Code: "PER", Name: "Peru", Span: dict.Span{-81.3, -18.4, -68.7, 0}},
					{Code: "COL", Name: "Colombia", Span: dict.Span{-79, -4.2, -66.9, 12.5}},
					{Code: "ECU", Name: "Ecuador", Span: dict.Span{-81, -5, -75.2, 1.4}},
				},
			},
		},
	)
}

func names(extents []Extent) []string {
	out := make([]string, len(extents))
	for i, e := range extents {
		out[i] = e.Name
	}
	return out
}

func TestResolveNoSubregion(t *testing.T) {
	extents, err := Resolve(testDicts(), []string{"Central America", "South America"}, "none")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"whole", "Central America", "South America"}
	got := names(extents)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("extent %d: got %q want %q", i, got[i], want[i])
		}
	}
	if !extents[0].Unbounded {
		t.Error("whole extent must be unbounded")
	}
	if extents[1].Unbounded || extents[1].Kind != KindRegion {
		t.Errorf("region extent malformed: %+v", extents[1])
	}
}

func TestResolveWithSubregion(t *testing.T) {
	extents, err := Resolve(testDicts(), []string{"South America"}, "Tropical Andes")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// Admin units come last, sorted by code: COL, ECU, PER.
	want := []string{"Tropical Andes", "South America", "Colombia", "Ecuador", "Peru"}
	got := names(extents)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("extent %d: got %q want %q", i, got[i], want[i])
		}
	}
	if extents[0].Kind != KindSubregion || extents[2].Kind != KindAdminUnit {
		t.Errorf("kinds: %q %q", extents[0].Kind, extents[2].Kind)
	}
}

func TestResolveDeterministic(t *testing.T) {
	first, err := Resolve(testDicts(), []string{"South America"}, "Tropical Andes")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := Resolve(testDicts(), []string{"South America"}, "Tropical Andes")
		if err != nil {
			t.Fatal(err)
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d extent %d differs: %+v vs %+v", i, j, first[j], again[j])
			}
		}
	}
}

func TestResolveUnknownRegion(t *testing.T) {
	_, err := Resolve(testDicts(), []string{"Atlantis"}, "none")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Kind != "region" || cfgErr.Name != "Atlantis" {
		t.Errorf("unexpected error detail: %+v", cfgErr)
	}
}

func TestResolveUnknownSubregion(t *testing.T) {
	_, err := Resolve(testDicts(), []string{"South America"}, "Lost Highlands")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Kind != "subregion" {
		t.Errorf("kind = %q", cfgErr.Kind)
	}
}

func TestResolveDedupes(t *testing.T) {
	extents, err := Resolve(testDicts(), []string{"South America", "South America"}, "none")
	if err != nil {
		t.Fatal(err)
	}
	if len(extents) != 2 {
		t.Fatalf("expected dedupe to 2 extents, got %v", names(extents))
	}
}

func TestValidateSpecies(t *testing.T) {
	d := testDicts()
	if err := ValidateSpecies(d, "Jaguar"); err != nil {
		t.Errorf("Jaguar: %v", err)
	}
	err := ValidateSpecies(d, "Unicorn")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Kind != "species" {
		t.Errorf("expected species ConfigError, got %v", err)
	}
}
