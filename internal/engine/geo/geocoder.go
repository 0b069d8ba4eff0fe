package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/arvelo/siteplot/internal/model"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocoder resolves free-text addresses to coordinates via OSM Nominatim.
type Geocoder struct {
	baseURL     string
	client      *Client
	limiter     *rate.Limiter
	logger      *log.Logger
	concurrency int
}

func NewGeocoder(client *Client, logger *log.Logger) *Geocoder {
	return &Geocoder{
		baseURL: nominatimBaseURL,
		client:  client,
		// Nominatim usage policy: at most one request per second
		limiter:     rate.NewLimiter(rate.Limit(1), 1),
		logger:      logger,
		concurrency: 8,
	}
}

// Resolve geocodes a single address, consuming the first candidate only.
func (g *Geocoder) Resolve(ctx context.Context, address string) (lng, lat float64, err error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	u := g.baseURL + "/search?" + url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	body, err := g.client.Get(ctx, u)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, 0, fmt.Errorf("decoding geocoding response: %w", err)
	}

	if len(results) == 0 {
		return 0, 0, fmt.Errorf("address %q not found", address)
	}

	lat, err = strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude from geocoder: %w", err)
	}
	lng, err = strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude from geocoder: %w", err)
	}

	return lng, lat, nil
}

// ResolveAll geocodes every project that has an address but no coordinate.
// Lookups run concurrently; the returned slice preserves input length and
// order regardless of completion order. A failed lookup leaves its project
// unchanged and never aborts the batch. Projects that already carry a
// coordinate issue no request at all.
func (g *Geocoder) ResolveAll(ctx context.Context, projects []model.Project) []model.Project {
	out := make([]model.Project, len(projects))
	copy(out, projects)

	var wg sync.WaitGroup
	sem := make(chan struct{}, g.concurrency)

	for i := range out {
		if out[i].HasCoord {
			continue
		}
		if strings.TrimSpace(out[i].Address) == "" {
			g.logf("SKIP id=%s no address", out[i].ID)
			continue
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			lng, lat, err := g.Resolve(ctx, out[idx].Address)
			if err != nil {
				g.logf("GEOCODE id=%s err=%v", out[idx].ID, err)
				return
			}
			out[idx].Lng = lng
			out[idx].Lat = lat
			out[idx].HasCoord = true
		}(i)
	}

	wg.Wait()
	return out
}

func (g *Geocoder) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf(format, args...)
	}
}
