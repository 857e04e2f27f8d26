package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func gatheredNames(t *testing.T, p *Provider) map[string]bool {
	t.Helper()
	mfs, err := p.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := map[string]bool{}
	for _, mf := range mfs {
		out[mf.GetName()] = true
	}
	return out
}

func TestInit_DefaultsAndRuntimeCollectors(t *testing.T) {
	p := Init(Config{})

	names := gatheredNames(t, p)
	for _, want := range []string{"go_goroutines", "app_build_info"} {
		if !names[want] {
			t.Fatalf("expected %s to be registered; have %v", want, names)
		}
	}
	if v := testutil.ToFloat64(p.buildInfo.WithLabelValues("dev", "", "", "")); v != 1 {
		t.Fatalf("build info for empty version should be labelled dev, got %v", v)
	}
}

func TestProvider_RegisterExtraCollector(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "1.2.3"}})

	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "bds_test_uploads_total", Help: "test"})
	p.Register(c)
	c.Add(3)

	if !gatheredNames(t, p)["bds_test_uploads_total"] {
		t.Fatalf("registered collector not gathered")
	}
	if got := testutil.ToFloat64(c); got != 3 {
		t.Fatalf("counter=%v want 3", got)
	}

	other := Init(Config{})
	if gatheredNames(t, other)["bds_test_uploads_total"] {
		t.Fatalf("providers must not share a registry")
	}
}
