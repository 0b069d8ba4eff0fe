package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/arvelo/siteplot/internal/model"
)

func testGeocoder(t *testing.T, handler http.Handler) (*Geocoder, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGeocoder(NewClient(""), nil)
	g.baseURL = srv.URL
	g.limiter = rate.NewLimiter(rate.Inf, 1)
	return g, srv
}

func TestResolveAllShortCircuitsLocated(t *testing.T) {
	var calls atomic.Int64
	g, _ := testGeocoder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `[{"lat":"39.7","lon":"-105.0"}]`)
	}))

	in := []model.Project{
		{ID: "a", Address: "100 Main St", Lat: 39.1, Lng: -104.1, HasCoord: true},
		{ID: "b", Address: "200 Main St", Lat: 39.2, Lng: -104.2, HasCoord: true},
	}

	out := g.ResolveAll(context.Background(), in)

	if got := calls.Load(); got != 0 {
		t.Fatalf("expected zero requests for located projects, got %d", got)
	}
	if len(out) != len(in) {
		t.Fatalf("length changed: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("project %d changed: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestResolveAllPreservesOrder(t *testing.T) {
	// Later addresses answer faster, so completion order inverts input
	// order; output order must still be positional.
	coords := map[string]string{
		"addr-0": `[{"lat":"10","lon":"-100"}]`,
		"addr-1": `[{"lat":"20","lon":"-101"}]`,
		"addr-2": `[{"lat":"30","lon":"-102"}]`,
	}
	delays := map[string]time.Duration{
		"addr-0": 60 * time.Millisecond,
		"addr-1": 30 * time.Millisecond,
		"addr-2": 0,
	}
	g, _ := testGeocoder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		time.Sleep(delays[q])
		fmt.Fprint(w, coords[q])
	}))

	in := []model.Project{
		{ID: "p0", Address: "addr-0"},
		{ID: "p1", Address: "addr-1"},
		{ID: "p2", Address: "addr-2"},
	}

	out := g.ResolveAll(context.Background(), in)

	wantLats := []float64{10, 20, 30}
	for i, p := range out {
		if p.ID != in[i].ID {
			t.Fatalf("order broken at %d: got id %s want %s", i, p.ID, in[i].ID)
		}
		if !p.HasCoord || p.Lat != wantLats[i] {
			t.Errorf("project %s: got lat %v (located=%v), want %v", p.ID, p.Lat, p.HasCoord, wantLats[i])
		}
	}
}

func TestResolveAllIsolatesFailures(t *testing.T) {
	g, _ := testGeocoder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "bad-server":
			w.WriteHeader(http.StatusInternalServerError)
		case "no-results":
			fmt.Fprint(w, `[]`)
		case "garbage":
			fmt.Fprint(w, `{not json`)
		default:
			fmt.Fprint(w, `[{"lat":"39.75","lon":"-105.0"}]`)
		}
	}))

	in := []model.Project{
		{ID: "ok1", Address: "1600 Glenarm Pl"},
		{ID: "err", Address: "bad-server"},
		{ID: "empty", Address: "no-results"},
		{ID: "parse", Address: "garbage"},
		{ID: "blank", Address: "   "},
		{ID: "ok2", Address: "1700 Glenarm Pl"},
	}

	out := g.ResolveAll(context.Background(), in)

	if len(out) != len(in) {
		t.Fatalf("length changed: got %d want %d", len(out), len(in))
	}
	for _, p := range out {
		switch p.ID {
		case "ok1", "ok2":
			if !p.HasCoord || p.Lat != 39.75 {
				t.Errorf("%s should have resolved, got %+v", p.ID, p)
			}
		default:
			if p.HasCoord {
				t.Errorf("%s should be unlocated, got coord (%v, %v)", p.ID, p.Lng, p.Lat)
			}
		}
	}
}

func TestResolveTakesFirstCandidate(t *testing.T) {
	g, _ := testGeocoder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"lat":"1","lon":"2"},{"lat":"9","lon":"9"}]`)
	}))

	lng, lat, err := g.Resolve(context.Background(), "somewhere")
	if err != nil {
		t.Fatal(err)
	}
	if lat != 1 || lng != 2 {
		t.Fatalf("got (%v, %v), want first candidate (2, 1)", lng, lat)
	}
}
