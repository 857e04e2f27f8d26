package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/informaticslab/bds-wcs/internal/wcstest"
)

func setupEnv(t *testing.T, srv *wcstest.Server) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BDS_API_KEY", wcstest.APIKey)
	t.Setenv("BDS_BASE_URL", srv.BaseURL())
	t.Setenv("BDS_MODEL_FEED", "UKPPBEST")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_TEXTFILE", filepath.Join(dir, "bds.prom"))
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCapabilitiesCommand(t *testing.T) {
	srv := wcstest.NewServer()
	defer srv.Close()
	dir := setupEnv(t, srv)

	code, out, errOut := runCLI(t, "capabilities")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "0: UKPPBEST_Low_cloud_cover\n1: UKPPBEST_Temperature\n" {
		t.Fatalf("stdout=%q", out)
	}
	if ua := srv.LastHeader().Get("User-Agent"); !strings.HasPrefix(ua, "bds/") {
		t.Fatalf("user agent=%q", ua)
	}

	prom, err := os.ReadFile(filepath.Join(dir, "bds.prom"))
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), "wcs_requests_total") {
		t.Fatalf("metrics textfile lacks request counter:\n%s", prom)
	}
}

func TestDescribeCommand(t *testing.T) {
	srv := wcstest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)

	code, out, errOut := runCLI(t, "describe", "UKPPBEST_Temperature", "--model-feed", "UKPPBEST")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "*** DIM_FORECASTS ***\nPT0H\nPT1H\nPT2H\n") {
		t.Fatalf("stdout=%q", out)
	}
}

func TestGetCommand(t *testing.T) {
	srv := wcstest.NewServer()
	defer srv.Close()
	dir := setupEnv(t, srv)
	path := filepath.Join(dir, "out", "temp.nc")

	code, out, errOut := runCLI(t, "get", "UKPPBEST_Temperature",
		"--format", "NetCDF3", "--bbox=-5, 50, 2, 56", "--time", "21/4/2015", "--width", "10", "-o", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	want := wcstest.Fixture("coverage.nc")
	if !strings.Contains(out, "wrote "+strconv.Itoa(len(want))+" bytes") {
		t.Fatalf("stdout=%q", out)
	}
	got, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("file content mismatch: %v", err)
	}

	q := srv.LastRequest()
	if q.Get("BBOX") != "-5,50,2,56" || q.Get("TIME") != "2015-04-21T00:00:00Z" || q.Get("WIDTH") != "10" {
		t.Fatalf("query=%v", q)
	}
	if q.Has("HEIGHT") || q.Has("DIM_RUN") {
		t.Fatalf("unset flags were sent: %v", q)
	}
}

func TestGetCommand_Errors(t *testing.T) {
	srv := wcstest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)

	if code, _, errOut := runCLI(t, "get", "X"); code != 1 || !strings.Contains(errOut, "--out is required") {
		t.Fatalf("missing --out: exit %d %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "get", "X", "-o", "x.nc", "--bbox", "10,20,1,2"); code != 1 || !strings.Contains(errOut, "bbox") {
		t.Fatalf("bad bbox: exit %d %q", code, errOut)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Fatalf("invalid invocations reached the server: %d", n)
	}
}

func TestUploadCommand_MemBucket(t *testing.T) {
	srv := wcstest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)

	code, out, errOut := runCLI(t, "upload", "UKPPBEST_Temperature", "--bucket", "mem://coverages")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "to UKPPBEST_Temperature.nc") {
		t.Fatalf("stdout=%q", out)
	}

	code, _, errOut = runCLI(t, "upload", "UKPPBEST_Temperature", "--bucket", "mem://coverages", "--create-bucket")
	if code != 1 || !strings.Contains(errOut, "only applies to s3") {
		t.Fatalf("create on mem bucket: exit %d %q", code, errOut)
	}
}

func TestConfigErrors(t *testing.T) {
	srv := wcstest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)

	if code, _, errOut := runCLI(t, "capabilities", "--model-feed", "NOPE"); code != 1 || !strings.Contains(errOut, "invalid config") {
		t.Fatalf("bad feed: exit %d %q", code, errOut)
	}

	t.Setenv("BDS_API_KEY", "wrong")
	code, _, errOut := runCLI(t, "validate-key")
	if code != 1 || !strings.Contains(errOut, "incorrect API key") {
		t.Fatalf("wrong key: exit %d %q", code, errOut)
	}
	if strings.Contains(errOut, "key=wrong") {
		t.Fatalf("key leaked into the error: %q", errOut)
	}
}
