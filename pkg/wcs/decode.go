package wcs

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/informaticslab/bds-wcs/internal/core/observability"
	"github.com/informaticslab/bds-wcs/internal/xmltree"
)

// XML namespaces of WCS 1.0 payloads and of the exception documents the
// service may return in their place.
const (
	NamespaceWCS   = "http://www.opengis.net/wcs"
	NamespaceOWS   = "http://www.opengis.net/ows"
	NamespaceOWS11 = "http://www.opengis.net/ows/1.1"
	NamespaceOGC   = "http://www.opengis.net/ogc"
)

// Axis describer names.
const (
	AxisDimRun      = "DIM_RUN"
	AxisDimForecast = "DIM_FORECAST"
	AxisTime        = "TIME"
	AxisElevation   = "ELEVATION"
)

var (
	pathName            = xmltree.ParsePath("name")
	pathLabel           = xmltree.ParsePath("label")
	pathEnvelope        = xmltree.ParsePath("lonLatEnvelope")
	pathOffering        = xmltree.ParsePath("CoverageOffering")
	pathContentOffering = xmltree.ParsePath("ContentMetadata/CoverageOffering|CoverageOfferingBrief")
	pathAxes            = xmltree.ParsePath("rangeSet/RangeSet/axisDescription/AxisDescription")
	pathSingleValues    = xmltree.ParsePath("values/singleValue")
	pathCRSs            = xmltree.ParsePath("supportedCRSs/requestCRSs")
	pathFormats         = xmltree.ParsePath("supportedFormats/formats")
	pathInterpolations  = xmltree.ParsePath("supportedInterpolations/interpolationMethod")
	pathOWSException    = xmltree.ParsePath("Exception/ExceptionText")
	pathOGCException    = xmltree.ParsePath("ServiceException")
)

// Decoder turns WCS XML payloads into coverages. The zero value logs to
// slog.Default and reads the WCS namespace.
type Decoder struct {
	Logger    *slog.Logger
	Namespace string
}

func (d *Decoder) logger() *slog.Logger {
	if d == nil || d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d *Decoder) ns() string {
	if d == nil || d.Namespace == "" {
		return NamespaceWCS
	}
	return d.Namespace
}

// DecodeCapabilities reads a GetCapabilities document. Each coverage has
// only its name, label and bbox populated.
func (d *Decoder) DecodeCapabilities(data []byte) (*CoverageList, error) {
	root, err := d.parse(data)
	if err != nil {
		return nil, err
	}
	ns := d.ns()
	elems := root.FindAll(ns, pathContentOffering)
	covs := make([]*Coverage, 0, len(elems))
	for _, el := range elems {
		cov, err := d.decodeBrief(el)
		if err != nil {
			return nil, err
		}
		covs = append(covs, cov)
	}
	return &CoverageList{items: covs}, nil
}

// DecodeDescribeCoverage reads a DescribeCoverage document holding exactly
// one coverage offering.
func (d *Decoder) DecodeDescribeCoverage(data []byte) (*Coverage, error) {
	root, err := d.parse(data)
	if err != nil {
		return nil, err
	}
	ns := d.ns()
	el, err := single(root, ns, pathOffering)
	if err != nil {
		return nil, err
	}
	cov, err := d.decodeBrief(el)
	if err != nil {
		return nil, err
	}

	axes := []struct {
		name string
		dst  *[]string
	}{
		{AxisDimRun, &cov.DimRuns},
		{AxisDimForecast, &cov.DimForecasts},
		{AxisTime, &cov.Times},
		{AxisElevation, &cov.Elevations},
	}
	for _, a := range axes {
		vals, err := d.axisValues(el, a.name)
		if err != nil {
			return nil, err
		}
		*a.dst = vals
	}

	if cov.CRSs, err = d.texts(el, ns, pathCRSs); err != nil {
		return nil, err
	}
	if cov.Formats, err = d.texts(el, ns, pathFormats); err != nil {
		return nil, err
	}
	if cov.Interpolations, err = d.texts(el, ns, pathInterpolations); err != nil {
		return nil, err
	}
	return cov, nil
}

// CheckException returns a protocol error if data is an exception document,
// nil if it is some other well-formed XML, and a malformed-response error if
// it cannot be parsed at all.
func (d *Decoder) CheckException(data []byte) error {
	root, err := xmltree.ParseBytes(data)
	if err != nil {
		return &Error{Kind: KindMalformedResponse, Msg: "response is not well-formed XML", Payload: data, Err: err}
	}
	return d.checkException(root)
}

func (d *Decoder) parse(data []byte) (*xmltree.Node, error) {
	root, err := xmltree.ParseBytes(data)
	if err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Msg: "response is not well-formed XML", Payload: data, Err: err}
	}
	if err := d.checkException(root); err != nil {
		return nil, err
	}
	return root, nil
}

// checkException must run before any data path is read: a failed request
// still comes back as HTTP 200 with an XML body.
func (d *Decoder) checkException(root *xmltree.Node) error {
	for _, ns := range []string{NamespaceOWS, NamespaceOWS11} {
		if !root.Is(ns, "ExceptionReport") {
			continue
		}
		msg, err := d.text(root, ns, pathOWSException)
		if err != nil {
			return err
		}
		code := ""
		if exc := root.FindAll(ns, xmltree.ParsePath("Exception")); len(exc) > 0 {
			code = exc[0].Attr("exceptionCode")
		}
		return &Error{Kind: KindProtocol, Msg: msg, Code: code}
	}
	if root.Is(NamespaceOGC, "ServiceExceptionReport") {
		el, err := single(root, NamespaceOGC, pathOGCException)
		if err != nil {
			return err
		}
		msg, err := d.nodeTexts([]*xmltree.Node{el}, pathOGCException.Qualified(NamespaceOGC))
		if err != nil {
			return err
		}
		return &Error{Kind: KindProtocol, Msg: msg[0], Code: el.Attr("code")}
	}
	return nil
}

func (d *Decoder) decodeBrief(el *xmltree.Node) (*Coverage, error) {
	ns := d.ns()
	name, err := d.text(el, ns, pathName)
	if err != nil {
		return nil, err
	}
	label, err := d.text(el, ns, pathLabel)
	if err != nil {
		return nil, err
	}
	bbox, err := envelope(el, ns)
	if err != nil {
		return nil, err
	}
	return &Coverage{Name: name, Label: label, BBox: bbox}, nil
}

// envelope reads lonLatEnvelope: its first child holds the longitude
// min/max pair, the second the latitude min/max pair.
func envelope(el *xmltree.Node, ns string) (*BBox, error) {
	env, err := single(el, ns, pathEnvelope)
	if err != nil {
		return nil, err
	}
	if len(env.Children) < 2 {
		return nil, malformedErr("%s must hold 2 coordinate elements, found %d", pathEnvelope.Qualified(ns), len(env.Children))
	}
	lons, err := coordPair(env.Children[0])
	if err != nil {
		return nil, err
	}
	lats, err := coordPair(env.Children[1])
	if err != nil {
		return nil, err
	}
	bbox := BBox{lons[0], lats[0], lons[1], lats[1]}
	if !bbox.Valid() {
		return nil, malformedErr("lonLatEnvelope min value larger than max: [%s]", bbox)
	}
	return &bbox, nil
}

func coordPair(n *xmltree.Node) ([2]float64, error) {
	var out [2]float64
	fields := strings.Fields(n.Text)
	if len(fields) < 2 {
		return out, malformedErr("<%s> must hold two numbers, got %q", n.Name.Local, n.TrimmedText())
	}
	for i := range out {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return out, &Error{Kind: KindMalformedResponse, Msg: "<" + n.Name.Local + "> holds a non-numeric coordinate", Err: err}
		}
		out[i] = f
	}
	return out, nil
}

// axisValues returns the enumerated values of the named axis describer, or
// an empty list when the coverage has no such axis.
func (d *Decoder) axisValues(el *xmltree.Node, name string) ([]string, error) {
	ns := d.ns()
	for _, axis := range el.FindAll(ns, pathAxes) {
		got, err := d.text(axis, ns, pathName)
		if err != nil {
			return nil, err
		}
		if got == name {
			return d.texts(axis, ns, pathSingleValues)
		}
	}
	return []string{}, nil
}

// single enforces that path matches exactly one element.
func single(root *xmltree.Node, ns string, p xmltree.Path) (*xmltree.Node, error) {
	elems := root.FindAll(ns, p)
	if len(elems) != 1 {
		return nil, malformedErr("expected to find exactly 1 %s element, but found %d instead", p.Qualified(ns), len(elems))
	}
	return elems[0], nil
}

func (d *Decoder) text(root *xmltree.Node, ns string, p xmltree.Path) (string, error) {
	el, err := single(root, ns, p)
	if err != nil {
		return "", err
	}
	vals, err := d.nodeTexts([]*xmltree.Node{el}, p.Qualified(ns))
	if err != nil {
		return "", err
	}
	return vals[0], nil
}

func (d *Decoder) texts(root *xmltree.Node, ns string, p xmltree.Path) ([]string, error) {
	return d.nodeTexts(root.FindAll(ns, p), p.Qualified(ns))
}

// nodeTexts collects trimmed texts. All empty is an error; some empty is
// tolerated with a warning and the empty ones are dropped.
func (d *Decoder) nodeTexts(elems []*xmltree.Node, path string) ([]string, error) {
	out := make([]string, 0, len(elems))
	for _, el := range elems {
		if t := el.TrimmedText(); t != "" {
			out = append(out, t)
		}
	}
	empty := len(elems) - len(out)
	switch {
	case empty == 0:
		return out, nil
	case len(out) == 0:
		return nil, malformedErr("%s element(s) do not contain text", path)
	default:
		observability.IncDecodeWarning()
		d.logger().LogAttrs(context.Background(), slog.LevelWarn,
			"some elements contain no text; dropping them",
			slog.String("path", path),
			slog.Int("with_text", len(out)),
			slog.Int("total", len(elems)))
		return out, nil
	}
}
