// Package dict loads the reference dictionaries used to validate catalog
// rows and to look up the geographic spans of regions, subregions and their
// administrative units. The dictionaries are loaded once at startup and are
// read only afterwards.
package dict

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Span is a lon/lat bounding box: MinLon, MinLat, MaxLon, MaxLat.
type Span [4]float64

// AdminUnit is one administrative unit nested inside a subregion.
type AdminUnit struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Span Span   `json:"span"`
}

// SubregionEntry describes a subregion and the administrative units it
// contains.
type SubregionEntry struct {
	Span  Span        `json:"span"`
	Units []AdminUnit `json:"units"`
}

type regionEntry struct {
	Span Span `json:"span"`
}

// Dictionaries bundles every reference lookup table for one run.
type Dictionaries struct {
	species      map[string]struct{}
	superspecies map[string]struct{}
	regions      map[string]regionEntry
	subregions   map[string]SubregionEntry
}

// Load reads species.json, superspecies.json, region.json and subregion.json
// from dir.
func Load(dir string) (*Dictionaries, error) {
	d := &Dictionaries{}

	var species, superspecies []string
	if err := readJSON(filepath.Join(dir, "species.json"), &species); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "superspecies.json"), &superspecies); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "region.json"), &d.regions); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "subregion.json"), &d.subregions); err != nil {
		return nil, err
	}

	d.species = toSet(species)
	d.superspecies = toSet(superspecies)
	return d, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("dictionary: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("dictionary %s: %w", path, err)
	}
	return nil
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// HasSpecies reports whether name is a known species or superspecies common
// name.
func (d *Dictionaries) HasSpecies(name string) bool {
	if _, ok := d.species[name]; ok {
		return true
	}
	_, ok := d.superspecies[name]
	return ok
}

// Region returns the span of a named region.
func (d *Dictionaries) Region(name string) (Span, bool) {
	e, ok := d.regions[name]
	return e.Span, ok
}

// Subregion returns the entry for a named subregion.
func (d *Dictionaries) Subregion(name string) (SubregionEntry, bool) {
	e, ok := d.subregions[name]
	return e, ok
}

// NewForTest builds an in-memory dictionary set. Test helper.
func NewForTest(species []string, regions map[string]Span, subregions map[string]SubregionEntry) *Dictionaries {
	d := &Dictionaries{
		species:      toSet(species),
		superspecies: map[string]struct{}{},
		regions:      make(map[string]regionEntry, len(regions)),
		subregions:   subregions,
	}
	for name, span := range regions {
		d.regions[name] = regionEntry{Span: span}
	}
	if d.subregions == nil {
		d.subregions = map[string]SubregionEntry{}
	}
	return d
}
