// Package ogc builds WCS 1.0 key-value-pair requests.
package ogc

import (
	"net/url"
	"strings"
)

const (
	RequestGetCapabilities  = "GetCapabilities"
	RequestDescribeCoverage = "DescribeCoverage"
	RequestGetCoverage      = "GetCoverage"
)

// Fixed protocol keys. The API key is lower case on the wire.
const (
	ParamKey      = "key"
	ParamService  = "SERVICE"
	ParamVersion  = "VERSION"
	ParamRequest  = "REQUEST"
	ParamCoverage = "COVERAGE"
)

const redacted = "REDACTED"

// Service identifies the endpoint and protocol every request is sent with.
type Service struct {
	APIKey  string
	Name    string
	Version string
}

// ServiceEndpoint joins the service root and a model feed, e.g.
// ".../services/" + "UKPPBEST".
func ServiceEndpoint(base, feed string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Trim(feed, "/")
}

// BaseParams returns the parameters sent with every request.
func BaseParams(s Service) url.Values {
	params := url.Values{}
	params.Set(ParamKey, s.APIKey)
	params.Set(ParamService, s.Name)
	params.Set(ParamVersion, s.Version)
	return params
}

// BuildParams adds the operation, an optional coverage name and any extra
// query keys to the base parameters. Extra keys never override the fixed
// ones.
func BuildParams(s Service, request, coverage string, extra url.Values) url.Values {
	params := BaseParams(s)
	params.Set(ParamRequest, request)
	if coverage != "" {
		params.Set(ParamCoverage, coverage)
	}
	for k, vs := range extra {
		if params.Has(k) {
			continue
		}
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	return params
}

// RedactURL renders u with the API key value replaced.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	if !q.Has(ParamKey) {
		return u.String()
	}
	q.Set(ParamKey, redacted)
	cp := *u
	cp.RawQuery = q.Encode()
	return cp.String()
}
