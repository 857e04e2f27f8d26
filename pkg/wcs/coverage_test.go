package wcs

import (
	"strings"
	"testing"
)

func sampleCoverage(name string) *Coverage {
	return &Coverage{
		Name:           name,
		Label:          "Temperature",
		BBox:           &BBox{-12, 48, 5, 61},
		DimRuns:        []string{"2015-04-21T00:00:00Z"},
		DimForecasts:   []string{"PT0H", "PT1H"},
		Times:          []string{},
		Elevations:     []string{"1.5"},
		CRSs:           []string{"EPSG:4326"},
		Formats:        []string{"NetCDF3"},
		Interpolations: []string{"bilinear"},
	}
}

func TestCoverage_StringIsName(t *testing.T) {
	c := sampleCoverage("UKPPBEST_Temperature")
	if c.String() != "UKPPBEST_Temperature" {
		t.Fatalf("String()=%q", c.String())
	}
	var nilCov *Coverage
	if nilCov.String() != "" {
		t.Fatalf("nil coverage should render empty")
	}
}

func TestCoverage_Info(t *testing.T) {
	info := sampleCoverage("UKPPBEST_Temperature").Info()
	for _, want := range []string{
		"*** NAME ***\nUKPPBEST_Temperature\n\n",
		"*** LABEL ***\nTemperature\n\n",
		"*** BBOX ***\n-12, 48, 5, 61\n\n",
		"*** DIM_FORECASTS ***\nPT0H\nPT1H\n\n",
		"*** CRSS ***\nEPSG:4326\n\n",
		"*** INTERPOLATIONS ***\nbilinear\n\n",
	} {
		if !strings.Contains(info, want) {
			t.Fatalf("Info() missing %q:\n%s", want, info)
		}
	}
	if strings.Index(info, "NAME") > strings.Index(info, "BBOX") {
		t.Fatalf("name must come before bbox:\n%s", info)
	}

	brief := (&Coverage{Name: "n", Label: "l", BBox: &BBox{0, 0, 1, 1}}).Info()
	if strings.Contains(brief, "DIM_RUNS") || strings.Contains(brief, "FORMATS") {
		t.Fatalf("unpopulated attributes must be skipped:\n%s", brief)
	}
}

func TestCoverage_EqualIsFieldWise(t *testing.T) {
	a := sampleCoverage("X")
	b := sampleCoverage("X")
	if !a.Equal(b) {
		t.Fatalf("identical coverages should be equal")
	}

	brief := &Coverage{Name: "X", Label: a.Label, BBox: a.BBox}
	if a.Equal(brief) {
		t.Fatalf("a brief coverage must not equal a described one with the same name")
	}

	b.BBox = &BBox{-12, 48, 5, 60}
	if a.Equal(b) {
		t.Fatalf("bbox difference should break equality")
	}

	c := sampleCoverage("X")
	c.Times = nil
	if a.Equal(c) {
		t.Fatalf("nil and empty lists should differ")
	}

	var n1, n2 *Coverage
	if !n1.Equal(n2) || a.Equal(nil) {
		t.Fatalf("nil handling wrong")
	}
}

func TestBBox(t *testing.T) {
	b := BBox{1, 2, 3, 4}
	if b.XMin() != 1 || b.YMin() != 2 || b.XMax() != 3 || b.YMax() != 4 {
		t.Fatalf("accessors wrong: %v", b)
	}
	if !b.Valid() || (BBox{3, 2, 1, 4}).Valid() || (BBox{1, 4, 3, 2}).Valid() {
		t.Fatalf("Valid wrong")
	}
	if b.String() != "1, 2, 3, 4" {
		t.Fatalf("String()=%q", b.String())
	}
}

func TestCoverageList_Construction(t *testing.T) {
	empty, err := NewCoverageList()
	if err != nil || empty.Len() != 0 {
		t.Fatalf("empty list: %v %v", empty, err)
	}

	one, err := NewCoverageList(sampleCoverage("a"))
	if err != nil || one.Len() != 1 {
		t.Fatalf("one: %v", err)
	}

	if _, err := NewCoverageList(sampleCoverage("a"), nil); err == nil {
		t.Fatalf("nil member should be rejected")
	} else {
		mustValidation(t, err)
	}

	from, err := CoverageListFrom([]any{sampleCoverage("a"), *sampleCoverage("b")})
	if err != nil {
		t.Fatalf("CoverageListFrom: %v", err)
	}
	if got := strings.Join(from.Names(), ","); got != "a,b" {
		t.Fatalf("names=%s", got)
	}

	for _, bad := range [][]any{{"a"}, {1}, {one}, {(*Coverage)(nil)}} {
		_, err := CoverageListFrom(bad)
		mustValidation(t, err)
	}
}

func TestCoverageList_IndexOps(t *testing.T) {
	l, _ := NewCoverageList(sampleCoverage("a"), sampleCoverage("b"), sampleCoverage("c"))

	c, err := l.At(-1)
	if err != nil || c.Name != "c" {
		t.Fatalf("At(-1)=%v, %v", c, err)
	}
	if _, err := l.At(3); err == nil {
		t.Fatalf("At(3) should fail")
	}
	if _, err := l.At(-4); err == nil {
		t.Fatalf("At(-4) should fail")
	}

	if err := l.Set(1, sampleCoverage("B")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mustValidation(t, l.Set(0, nil))

	if err := l.Delete(0); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := strings.Join(l.Names(), ","); got != "B,c" {
		t.Fatalf("after delete names=%s", got)
	}

	if err := l.Append(sampleCoverage("d")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	mustValidation(t, l.Append(nil))
	if l.Len() != 3 {
		t.Fatalf("len=%d want 3", l.Len())
	}
}

func TestCoverageList_ConcatIsNewList(t *testing.T) {
	a, _ := NewCoverageList(sampleCoverage("a"), sampleCoverage("b"))
	b, _ := NewCoverageList(sampleCoverage("c"))

	ab := a.Concat(b)
	if ab.Len() != a.Len()+b.Len() {
		t.Fatalf("len=%d want %d", ab.Len(), a.Len()+b.Len())
	}
	if err := ab.Delete(0); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("Concat must not share the backing array with its inputs")
	}

	first, _ := a.At(0)
	got, _ := a.Concat(nil).At(0)
	if got != first {
		t.Fatalf("elements are shared by reference")
	}
}

func TestCoverageList_IterationAndString(t *testing.T) {
	l, _ := NewCoverageList(sampleCoverage("a"), sampleCoverage("b"))
	var seen []string
	for i, c := range l.All() {
		seen = append(seen, c.Name)
		if i == 0 && c.Name != "a" {
			t.Fatalf("order wrong")
		}
	}
	if len(seen) != 2 {
		t.Fatalf("iterated %d items", len(seen))
	}
	if l.String() != "0: a\n1: b\n" {
		t.Fatalf("String()=%q", l.String())
	}

	s := l.Slice()
	s[0] = nil
	if c, _ := l.At(0); c == nil {
		t.Fatalf("Slice must return a copy")
	}

	var nilList *CoverageList
	if nilList.Len() != 0 || nilList.String() != "" {
		t.Fatalf("nil list should behave as empty")
	}
}
