// Package wcstest runs an in-process stand-in for the beta data services
// WCS endpoint, serving canned documents.
package wcstest

import (
	"embed"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

//go:embed testdata
var fixtures embed.FS

const (
	APIKey          = "test-key"
	ContentTypeXML  = "text/xml;charset=UTF-8"
	ContentTypeData = "application/x-netcdf"
)

// Fixture returns the named file under testdata.
func Fixture(name string) []byte {
	b, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		panic(err)
	}
	return b
}

// Reply is a canned response.
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
}

// Server answers GET /services/{feed}. Replies can be overridden per
// REQUEST value; an unknown key always gets 403.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	replies  map[string]Reply
	requests []url.Values
	headers  []http.Header
	paths    []string
}

func NewServer() *Server {
	s := &Server{replies: map[string]Reply{
		"GetCapabilities":  {Status: http.StatusOK, ContentType: ContentTypeXML, Body: Fixture("capabilities.xml")},
		"DescribeCoverage": {Status: http.StatusOK, ContentType: ContentTypeXML, Body: Fixture("describe_coverage.xml")},
		"GetCoverage":      {Status: http.StatusOK, ContentType: ContentTypeData, Body: Fixture("coverage.nc")},
	}}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/services/{feed}", s.handle)
	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the service root to hand to the client.
func (s *Server) BaseURL() string { return s.URL + "/services/" }

// SetReply overrides the response to one REQUEST value.
func (s *Server) SetReply(request string, r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[request] = r
}

// Requests returns the query of every request received so far.
func (s *Server) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent query, or nil.
func (s *Server) LastRequest() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// LastHeader returns the headers of the most recent request, or nil.
func (s *Server) LastHeader() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.headers) == 0 {
		return nil
	}
	return s.headers[len(s.headers)-1]
}

// LastPath returns the path of the most recent request.
func (s *Server) LastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.paths) == 0 {
		return ""
	}
	return s.paths[len(s.paths)-1]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	s.requests = append(s.requests, q)
	s.headers = append(s.headers, r.Header.Clone())
	s.paths = append(s.paths, r.URL.Path)
	reply, ok := s.replies[q.Get("REQUEST")]
	s.mu.Unlock()

	if q.Get("key") != APIKey {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if !ok {
		w.Header().Set("Content-Type", ContentTypeXML)
		_, _ = w.Write(Fixture("exception.xml"))
		return
	}
	if reply.ContentType != "" {
		w.Header().Set("Content-Type", reply.ContentType)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(reply.Body)
}
