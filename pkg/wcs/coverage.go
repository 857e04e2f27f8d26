package wcs

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// BBox is a geographic extent [x-min, y-min, x-max, y-max].
type BBox [4]float64

func (b BBox) XMin() float64 { return b[0] }
func (b BBox) YMin() float64 { return b[1] }
func (b BBox) XMax() float64 { return b[2] }
func (b BBox) YMax() float64 { return b[3] }

// Valid reports whether min ≤ max on both axes.
func (b BBox) Valid() bool {
	return b[0] <= b[2] && b[1] <= b[3]
}

// String renders the box as "xmin, ymin, xmax, ymax".
func (b BBox) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ", ")
}

// Coverage describes one requestable model variable, e.g.
// UKPPBEST_High_cloud_cover. A coverage from GetCapabilities carries only
// Name, Label and BBox; DescribeCoverage fills every field.
type Coverage struct {
	Name  string
	Label string
	BBox  *BBox

	DimRuns        []string
	DimForecasts   []string
	Times          []string
	Elevations     []string
	CRSs           []string
	Formats        []string
	Interpolations []string
}

func (c *Coverage) String() string {
	if c == nil {
		return ""
	}
	return c.Name
}

// Info renders every populated attribute as an upper-case labelled block.
func (c *Coverage) Info() string {
	var b strings.Builder
	writeInfo(&b, "name", c.Name)
	writeInfo(&b, "label", c.Label)
	if c.BBox != nil {
		writeInfo(&b, "bbox", c.BBox.String())
	}
	writeInfoList(&b, "dim_runs", c.DimRuns)
	writeInfoList(&b, "dim_forecasts", c.DimForecasts)
	writeInfoList(&b, "times", c.Times)
	writeInfoList(&b, "elevations", c.Elevations)
	writeInfoList(&b, "CRSs", c.CRSs)
	writeInfoList(&b, "formats", c.Formats)
	writeInfoList(&b, "interpolations", c.Interpolations)
	return b.String()
}

func writeInfo(b *strings.Builder, name, val string) {
	if val == "" {
		return
	}
	fmt.Fprintf(b, "*** %s ***\n%s\n\n", strings.ToUpper(name), val)
}

func writeInfoList(b *strings.Builder, name string, vals []string) {
	if vals == nil {
		return
	}
	fmt.Fprintf(b, "*** %s ***\n%s\n\n", strings.ToUpper(name), strings.Join(vals, "\n"))
}

// Equal compares every field. Two coverages sharing a name but populated by
// different requests are not equal.
func (c *Coverage) Equal(o *Coverage) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Name != o.Name || c.Label != o.Label {
		return false
	}
	if (c.BBox == nil) != (o.BBox == nil) || (c.BBox != nil && *c.BBox != *o.BBox) {
		return false
	}
	return equalList(c.DimRuns, o.DimRuns) &&
		equalList(c.DimForecasts, o.DimForecasts) &&
		equalList(c.Times, o.Times) &&
		equalList(c.Elevations, o.Elevations) &&
		equalList(c.CRSs, o.CRSs) &&
		equalList(c.Formats, o.Formats) &&
		equalList(c.Interpolations, o.Interpolations)
}

// equalList keeps nil (not populated) distinct from empty (populated, no values).
func equalList(a, b []string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return slices.Equal(a, b)
}

// CoverageList is an ordered collection of coverages. Elements are shared
// by reference, never copied.
type CoverageList struct {
	items []*Coverage
}

// NewCoverageList builds a list from zero or more coverages. A nil member
// is rejected.
func NewCoverageList(covs ...*Coverage) (*CoverageList, error) {
	for i, c := range covs {
		if c == nil {
			return nil, validationErr("coverage list", "item %d is nil, not a Coverage", i)
		}
	}
	return &CoverageList{items: slices.Clone(covs)}, nil
}

// CoverageListFrom builds a list from an untyped slice, rejecting any member
// that is not a *Coverage or Coverage.
func CoverageListFrom(items []any) (*CoverageList, error) {
	covs := make([]*Coverage, 0, len(items))
	for i, it := range items {
		switch c := it.(type) {
		case *Coverage:
			if c == nil {
				return nil, validationErr("coverage list", "item %d is nil, not a Coverage", i)
			}
			covs = append(covs, c)
		case Coverage:
			covs = append(covs, &c)
		case *CoverageList:
			return nil, validationErr("coverage list", "item %d is a CoverageList, not a Coverage", i)
		default:
			return nil, validationErr("coverage list", "item %d has type %T, not Coverage", i, it)
		}
	}
	return &CoverageList{items: covs}, nil
}

func (l *CoverageList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At returns the i-th coverage. Negative indexes count from the end.
func (l *CoverageList) At(i int) (*Coverage, error) {
	idx, err := l.index(i)
	if err != nil {
		return nil, err
	}
	return l.items[idx], nil
}

// Set replaces the i-th coverage.
func (l *CoverageList) Set(i int, c *Coverage) error {
	if c == nil {
		return validationErr("coverage list", "cannot store a nil Coverage")
	}
	idx, err := l.index(i)
	if err != nil {
		return err
	}
	l.items[idx] = c
	return nil
}

// Delete removes the i-th coverage.
func (l *CoverageList) Delete(i int) error {
	idx, err := l.index(i)
	if err != nil {
		return err
	}
	l.items = slices.Delete(l.items, idx, idx+1)
	return nil
}

// Append adds coverages at the end.
func (l *CoverageList) Append(covs ...*Coverage) error {
	for i, c := range covs {
		if c == nil {
			return validationErr("coverage list", "item %d is nil, not a Coverage", i)
		}
	}
	l.items = append(l.items, covs...)
	return nil
}

// Concat returns a new list holding l's coverages followed by o's.
func (l *CoverageList) Concat(o *CoverageList) *CoverageList {
	out := make([]*Coverage, 0, l.Len()+o.Len())
	if l != nil {
		out = append(out, l.items...)
	}
	if o != nil {
		out = append(out, o.items...)
	}
	return &CoverageList{items: out}
}

// All iterates index/coverage pairs in order.
func (l *CoverageList) All() iter.Seq2[int, *Coverage] {
	return func(yield func(int, *Coverage) bool) {
		if l == nil {
			return
		}
		for i, c := range l.items {
			if !yield(i, c) {
				return
			}
		}
	}
}

// Slice returns a copy of the backing slice.
func (l *CoverageList) Slice() []*Coverage {
	if l == nil {
		return nil
	}
	return slices.Clone(l.items)
}

// Names returns every coverage name in order.
func (l *CoverageList) Names() []string {
	names := make([]string, 0, l.Len())
	for _, c := range l.All() {
		names = append(names, c.Name)
	}
	return names
}

// String lists coverages as "index: name" lines.
func (l *CoverageList) String() string {
	var b strings.Builder
	for i, c := range l.All() {
		fmt.Fprintf(&b, "%d: %s\n", i, c)
	}
	return b.String()
}

func (l *CoverageList) index(i int) (int, error) {
	n := l.Len()
	idx := i
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return 0, validationErr("coverage list", "index %d out of range for list of length %d", i, n)
	}
	return idx, nil
}
