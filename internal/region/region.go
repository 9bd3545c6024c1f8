// Package region resolves a dataset's declared region list and subregion
// into the ordered set of analysis extents that binning runs against.
package region

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hkuril/WildMaps-processing/internal/dict"
)

// Extent kinds, in resolution order.
const (
	KindWhole     = "whole"
	KindSubregion = "subregion"
	KindRegion    = "region"
	KindAdminUnit = "admin_unit"
)

// Extent is one named analysis boundary. Unbounded extents cover the full
// raster footprint and carry no span.
type Extent struct {
	Name      string
	Kind      string
	Span      dict.Span
	Unbounded bool
}

// ConfigError reports a catalog identifier that is absent from the
// reference dictionaries.
type ConfigError struct {
	Kind string // "region", "subregion" or "species"
	Name string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: unknown %s %q", e.Kind, e.Name)
}

// ValidateSpecies checks a common name against the species and superspecies
// dictionaries.
func ValidateSpecies(d *dict.Dictionaries, commonName string) error {
	if !d.HasSpecies(commonName) {
		return &ConfigError{Kind: "species", Name: commonName}
	}
	return nil
}

// Resolve expands the declared regions and subregion into extents.
//
// With subregion "none" the result is the whole raster extent followed by
// one extent per declared region, in catalog order. Otherwise it is the
// subregion, the declared regions, and the subregion's administrative units
// sorted by code. The ordering is fixed so that repeated runs emit
// identical documents.
func Resolve(d *dict.Dictionaries, regions []string, subregion string) ([]Extent, error) {
	var out []Extent

	wholeOnly := subregion == "" || strings.EqualFold(subregion, "none")
	if wholeOnly {
		out = append(out, Extent{Name: "whole", Kind: KindWhole, Unbounded: true})
	} else {
		entry, ok := d.Subregion(subregion)
		if !ok {
			return nil, &ConfigError{Kind: "subregion", Name: subregion}
		}
		out = append(out, Extent{Name: subregion, Kind: KindSubregion, Span: entry.Span})
		units := make([]dict.AdminUnit, len(entry.Units))
		copy(units, entry.Units)
		sort.Slice(units, func(i, j int) bool { return units[i].Code < units[j].Code })
		for _, r := range regions {
			span, ok := d.Region(r)
			if !ok {
				return nil, &ConfigError{Kind: "region", Name: r}
			}
			out = append(out, Extent{Name: r, Kind: KindRegion, Span: span})
		}
		for _, u := range units {
			out = append(out, Extent{Name: u.Name, Kind: KindAdminUnit, Span: u.Span})
		}
		return dedupe(out), nil
	}

	for _, r := range regions {
		span, ok := d.Region(r)
		if !ok {
			return nil, &ConfigError{Kind: "region", Name: r}
		}
		out = append(out, Extent{Name: r, Kind: KindRegion, Span: span})
	}
	return dedupe(out), nil
}

// dedupe drops repeated (kind, name) pairs, keeping the first occurrence so
// ordering stays stable.
func dedupe(extents []Extent) []Extent {
	seen := make(map[string]struct{}, len(extents))
	out := extents[:0]
	for _, e := range extents {
		k := e.Kind + "\x00" + e.Name
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}
