package ogc

import (
	"net/url"
	"strings"
	"testing"
)

func TestServiceEndpoint(t *testing.T) {
	cases := map[string]string{
		"https://dataservices-beta.metoffice.gov.uk/services/": "https://dataservices-beta.metoffice.gov.uk/services/UKPPBEST",
		"https://dataservices-beta.metoffice.gov.uk/services":  "https://dataservices-beta.metoffice.gov.uk/services/UKPPBEST",
	}
	for base, want := range cases {
		if got := ServiceEndpoint(base, "UKPPBEST"); got != want {
			t.Fatalf("ServiceEndpoint(%q) got %q want %q", base, got, want)
		}
		if _, err := url.Parse(ServiceEndpoint(base, "UKPPBEST")); err != nil {
			t.Fatalf("invalid URL: %v", err)
		}
	}
}

func TestBuildParams_DescribeCoverage(t *testing.T) {
	s := Service{APIKey: "secret", Name: "WCS", Version: "1.0"}
	v := BuildParams(s, RequestDescribeCoverage, "UKPPBEST_Temperature", nil)
	assertHas := func(k, want string) {
		if got := v.Get(k); got != want {
			t.Fatalf("param %q got %q want %q", k, got, want)
		}
	}
	assertHas("key", "secret")
	assertHas("SERVICE", "WCS")
	assertHas("VERSION", "1.0")
	assertHas("REQUEST", "DescribeCoverage")
	assertHas("COVERAGE", "UKPPBEST_Temperature")
}

func TestBuildParams_ExtraCannotOverrideFixedKeys(t *testing.T) {
	s := Service{APIKey: "secret", Name: "WCS", Version: "1.0"}
	extra := url.Values{"BBOX": {"1,2,3,4"}, "REQUEST": {"GetCapabilities"}, "key": {"other"}}
	v := BuildParams(s, RequestGetCoverage, "c", extra)
	if v.Get("REQUEST") != "GetCoverage" || v.Get("key") != "secret" {
		t.Fatalf("fixed keys overridden: %v", v)
	}
	if v.Get("BBOX") != "1,2,3,4" {
		t.Fatalf("extra key dropped: %v", v)
	}
}

func TestBuildParams_CapabilitiesHasNoCoverage(t *testing.T) {
	v := BuildParams(Service{APIKey: "k", Name: "WCS", Version: "1.0"}, RequestGetCapabilities, "", nil)
	if v.Has("COVERAGE") {
		t.Fatalf("COVERAGE should be absent: %v", v)
	}
}

func TestRedactURL(t *testing.T) {
	u, _ := url.Parse("https://example.test/services/UKPPBEST?key=secret&REQUEST=GetCapabilities")
	got := RedactURL(u)
	if strings.Contains(got, "secret") {
		t.Fatalf("key leaked: %s", got)
	}
	if !strings.Contains(got, "key=REDACTED") || !strings.Contains(got, "REQUEST=GetCapabilities") {
		t.Fatalf("unexpected redaction: %s", got)
	}
	if u.Query().Get("key") != "secret" {
		t.Fatalf("RedactURL must not mutate its input")
	}

	plain, _ := url.Parse("https://example.test/x?a=1")
	if RedactURL(plain) != plain.String() {
		t.Fatalf("URL without key should be unchanged")
	}
	if RedactURL(nil) != "" {
		t.Fatalf("nil URL should render empty")
	}
}
