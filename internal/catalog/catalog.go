// Package catalog parses the dataset catalog CSV that drives a processing
// run. Each row describes one SDM raster together with the metadata needed
// to key its outputs.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Dataset is one catalog row. Identity for output keying is
// (Folder, CommonName, Region, Subregion).
type Dataset struct {
	Folder        string
	InputFileName string
	CommonName    string
	Region        string // semicolon separated list
	Subregion     string
	Band          int
	SourceLink    string
	SourceText    string
	Ignore        bool
}

// Regions splits the semicolon separated region list, preserving catalog
// order and dropping empty entries.
func (d Dataset) Regions() []string {
	var out []string
	for _, r := range strings.Split(d.Region, ";") {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

var keyClean = regexp.MustCompile(`[^A-Za-z0-9]+`)

func sanitize(s string) string {
	return strings.Trim(keyClean.ReplaceAllString(s, "_"), "_")
}

// Key returns the identity string used to name every output artifact of this
// dataset. When the dataset has no subregion the region list takes its place
// so that continental and subregional runs of the same species never collide.
func (d Dataset) Key() string {
	middle := d.Subregion
	if strings.EqualFold(d.Subregion, "none") || d.Subregion == "" {
		middle = d.Region
	}
	return sanitize(d.Folder) + "_" + sanitize(middle) + "_" + sanitize(d.CommonName)
}

var requiredColumns = []string{
	"folder", "input_file_name", "common_name", "region", "subregion", "band",
}

// Parse reads the catalog CSV at path. Rows flagged in the ignore column are
// returned with Ignore set rather than dropped, so callers can report them.
func Parse(path string) ([]Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()
	return parse(f, path)
}

func parse(r io.Reader, path string) ([]Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog %s: reading header: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("catalog %s: missing column %q", path, name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var datasets []Dataset
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("catalog %s line %d: %w", path, line, err)
		}
		band := 1
		if v := field(row, "band"); v != "" {
			band, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("catalog %s line %d: band %q is not an integer", path, line, v)
			}
		}
		d := Dataset{
			Folder:        field(row, "folder"),
			InputFileName: field(row, "input_file_name"),
			CommonName:    field(row, "common_name"),
			Region:        field(row, "region"),
			Subregion:     field(row, "subregion"),
			Band:          band,
			SourceLink:    field(row, "source_link"),
			SourceText:    field(row, "source_text"),
			Ignore:        truthy(field(row, "ignore")),
		}
		if d.Folder == "" || d.InputFileName == "" || d.CommonName == "" {
			return nil, fmt.Errorf("catalog %s line %d: folder, input_file_name and common_name are required", path, line)
		}
		datasets = append(datasets, d)
	}
	return datasets, nil
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
