package wcs

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Query keys understood by GetCoverage.
const (
	KeyFormat        = "FORMAT"
	KeyCRS           = "CRS"
	KeyElevation     = "ELEVATION"
	KeyBBox          = "BBOX"
	KeyDimRun        = "DIM_RUN"
	KeyTime          = "TIME"
	KeyDimForecast   = "DIM_FORECAST"
	KeyWidth         = "WIDTH"
	KeyHeight        = "HEIGHT"
	KeyResX          = "RESX"
	KeyResY          = "RESY"
	KeyResZ          = "RESZ"
	KeyInterpolation = "INTERPOLATION"
)

var queryKeys = []string{
	KeyFormat, KeyCRS, KeyElevation, KeyBBox, KeyDimRun, KeyTime, KeyDimForecast,
	KeyWidth, KeyHeight, KeyResX, KeyResY, KeyResZ, KeyInterpolation,
}

// Query is a normalized GetCoverage parameter set keyed by protocol name.
type Query map[string]string

// Clone returns an independent copy.
func (q Query) Clone() Query {
	if q == nil {
		return Query{}
	}
	return maps.Clone(q)
}

// Keys returns the present keys in sorted order.
func (q Query) Keys() []string {
	return slices.Sorted(maps.Keys(q))
}

// Values renders the query as URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	for k, val := range q {
		v.Set(k, val)
	}
	return v
}

// validate rejects keys outside the GetCoverage vocabulary.
func (q Query) validate() error {
	for k := range q {
		if !slices.Contains(queryKeys, k) {
			return validationErr("query", "unknown parameter %q; valid parameters are %s", k, strings.Join(queryKeys, ", "))
		}
	}
	return nil
}

// Params is the loosely typed input to BuildQuery. A nil or empty field is
// not sent. Numeric fields accept ints, floats and numeric strings.
type Params struct {
	Format    string
	CRS       string
	Elevation string

	// BBox is [x-min, y-min, x-max, y-max].
	BBox []any

	// DimRun is the model run time, Time the forecast validity time; both
	// accept most conventional date spellings.
	DimRun string
	Time   string
	// DimForecast is the offset from DimRun as a duration string, e.g. "PT36H".
	DimForecast any

	// Width/Height are grid point counts, ResX/ResY/ResZ grid spacings.
	Width  any
	Height any
	ResX   any
	ResY   any
	ResZ   any

	Interpolation string
}

// BuildQuery validates p and returns the parameter set for GetCoverage with
// only the supplied fields present. It does not check availability against
// the server.
func BuildQuery(p Params) (Query, error) {
	q := Query{}
	setString(q, KeyFormat, p.Format)
	setString(q, KeyCRS, p.CRS)
	setString(q, KeyElevation, p.Elevation)

	if p.BBox != nil {
		bbox, err := NormalizeBBox(p.BBox)
		if err != nil {
			return nil, err
		}
		q[KeyBBox] = bbox
	}

	hasRun := strings.TrimSpace(p.DimRun) != ""
	hasTime := strings.TrimSpace(p.Time) != ""
	hasForecast := supplied(p.DimForecast)
	if hasRun && hasTime && hasForecast {
		return nil, validationErr("time", "cannot use more than 2 of dim_run, dim_forecast or time parameters together")
	}
	if hasRun {
		v, err := NormalizeTime(p.DimRun)
		if err != nil {
			return nil, err
		}
		q[KeyDimRun] = v
	}
	if hasTime {
		v, err := NormalizeTime(p.Time)
		if err != nil {
			return nil, err
		}
		q[KeyTime] = v
	}
	if hasForecast {
		v, err := NormalizeForecastOffset(p.DimForecast)
		if err != nil {
			return nil, err
		}
		q[KeyDimForecast] = v
	}

	if err := setGrid(q, KeyWidth, p.Width, KeyResX, p.ResX); err != nil {
		return nil, err
	}
	if err := setGrid(q, KeyHeight, p.Height, KeyResY, p.ResY); err != nil {
		return nil, err
	}
	if supplied(p.ResZ) {
		size, err := NormalizeGridSize(p.ResZ)
		if err != nil {
			return nil, err
		}
		q[KeyResZ] = formatFloat(size)
	}

	setString(q, KeyInterpolation, p.Interpolation)
	return q, nil
}

func setString(q Query, key, v string) {
	if v = strings.TrimSpace(v); v != "" {
		q[key] = v
	}
}

// setGrid handles one axis: a point count and a spacing, which are
// mutually exclusive since one implies the other.
func setGrid(q Query, countKey string, count any, sizeKey string, size any) error {
	hasCount, hasSize := supplied(count), supplied(size)
	if hasCount && hasSize {
		return validationErr("grid", "cannot specify %s and %s together; one implies the other",
			strings.ToLower(countKey), strings.ToLower(sizeKey))
	}
	if hasCount {
		n, err := NormalizeGridCount(count)
		if err != nil {
			return err
		}
		q[countKey] = strconv.Itoa(n)
	}
	if hasSize {
		f, err := NormalizeGridSize(size)
		if err != nil {
			return err
		}
		q[sizeKey] = formatFloat(f)
	}
	return nil
}

func supplied(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	default:
		return true
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NormalizeBBox checks a [x-min, y-min, x-max, y-max] box and returns it in
// the comma separated form the service expects, keeping each value's own
// spelling.
func NormalizeBBox(bbox []any) (string, error) {
	if len(bbox) != 4 {
		return "", validationErr("bbox", "bbox must contain 4 values, %d found", len(bbox))
	}
	nums := make([]Numeric, len(bbox))
	for i, v := range bbox {
		n, err := ParseNumeric(v)
		if err != nil {
			return "", &Error{Kind: KindValidation, Op: "bbox", Msg: "all bbox values must be numbers", Err: err}
		}
		nums[i] = n
	}
	if nums[0].Value > nums[2].Value || nums[1].Value > nums[3].Value {
		return "", validationErr("bbox", "bbox min value larger than max; format must be [x-min, y-min, x-max, y-max]")
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = n.Text
	}
	return strings.Join(parts, ","), nil
}

// NormalizeTime parses a free-form date/time and returns it as
// "YYYY-MM-DDTHH:MM:SSZ". A zone in the input is dropped, not converted.
func NormalizeTime(s string) (string, error) {
	t, err := parseFreeformTime(s)
	if err != nil {
		return "", &Error{Kind: KindValidation, Op: "time", Msg: "invalid time argument given: " + s, Err: err}
	}
	out := t.Format(wcsTimeLayout)
	if !strings.HasSuffix(out, "Z") {
		out += "Z"
	}
	return out, nil
}

// NormalizeForecastOffset accepts only a duration string such as "PT36H";
// bare numbers are rejected because the caller must give the full syntax.
func NormalizeForecastOffset(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", validationErr("dim_forecast", "dim_forecast must be given as a string, got %T", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", validationErr("dim_forecast", "dim_forecast must not be empty")
	}
	return s, nil
}

// NormalizeGridCount coerces a width/height to an integer. Floats must have
// no fractional part; strings must spell an integer.
func NormalizeGridCount(v any) (int, error) {
	n, err := ParseNumeric(v)
	if err != nil {
		return 0, &Error{Kind: KindValidation, Op: "grid", Msg: "width/height values must be integer like", Err: err}
	}
	if _, isString := v.(string); isString && !n.Integer {
		return 0, validationErr("grid", "width/height values must be integer like, got %q", n.Text)
	}
	if !n.IsIntegral() {
		return 0, validationErr("grid", "width/height values must be integer like, got %s", n.Text)
	}
	if n.Value <= 0 {
		return 0, validationErr("grid", "width/height values must be positive, got %s", n.Text)
	}
	return int(n.Value), nil
}

// NormalizeGridSize coerces a resx/resy/resz value to a float.
func NormalizeGridSize(v any) (float64, error) {
	n, err := ParseNumeric(v)
	if err != nil {
		return 0, &Error{Kind: KindValidation, Op: "grid", Msg: "resx/resy values must be float like", Err: err}
	}
	if n.Value <= 0 {
		return 0, validationErr("grid", "resx/resy values must be positive, got %s", n.Text)
	}
	return n.Value, nil
}
