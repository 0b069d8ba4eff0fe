package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/url"

	"github.com/paulmach/orb"
)

const (
	overpassBaseURL = "https://overpass-api.de/api/interpreter"

	// Fixed search radius around the marker coordinate.
	footprintRadiusM = 25

	// Degree-to-feet conversion for the planar area estimate. Latitude
	// degrees are ~364,000 ft everywhere; longitude degrees shrink with
	// the cosine of the latitude band.
	feetPerDegree = 364000.0

	// Synthetic lot substituted when no building is found: half-width of
	// the square ring in degrees, and the nominal area it stands for.
	// The area is a constant, not recomputed from the ring.
	syntheticHalfWidthDeg = 0.0001
	syntheticLotSqFt      = 5000.0
)

// Footprint is the result of a building-footprint lookup.
// Ring is nil when the lookup itself failed ("no data"), which is distinct
// from Approximate ("synthetic data").
type Footprint struct {
	Ring        orb.Ring // closed: first vertex repeated at the end
	Centroid    orb.Point
	AreaSqFt    float64
	Approximate bool
}

type overpassResponse struct {
	Elements []struct {
		Type     string `json:"type"`
		Geometry []struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"geometry"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// FootprintResolver looks up building outlines near a coordinate via the
// Overpass API.
type FootprintResolver struct {
	baseURL string
	client  *Client
	logger  *log.Logger
}

func NewFootprintResolver(client *Client, logger *log.Logger) *FootprintResolver {
	return &FootprintResolver{
		baseURL: overpassBaseURL,
		client:  client,
		logger:  logger,
	}
}

// Resolve fetches the first building footprint within the search radius of
// (lng, lat). Zero candidates yield a synthetic square lot centered on the
// input; a transport or parse error yields an empty Footprint.
func (r *FootprintResolver) Resolve(ctx context.Context, lng, lat float64) Footprint {
	query := fmt.Sprintf(`[out:json];way["building"](around:%d,%f,%f);out geom;`,
		footprintRadiusM, lat, lng)
	u := r.baseURL + "?" + url.Values{"data": {query}}.Encode()

	body, err := r.client.Get(ctx, u)
	if err != nil {
		r.logf("FOOTPRINT lng=%f lat=%f err=%v", lng, lat, err)
		return Footprint{}
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		r.logf("FOOTPRINT lng=%f lat=%f decode err=%v", lng, lat, err)
		return Footprint{}
	}

	for _, el := range resp.Elements {
		if len(el.Geometry) < 3 {
			continue
		}
		ring := make(orb.Ring, 0, len(el.Geometry)+1)
		for _, v := range el.Geometry {
			ring = append(ring, orb.Point{v.Lon, v.Lat})
		}
		ring = closeRing(ring)
		return Footprint{
			Ring:     ring,
			Centroid: ringCentroid(ring),
			AreaSqFt: ringAreaSqFt(ring),
		}
	}

	// No building nearby: substitute a square lot around the marker.
	return syntheticFootprint(lng, lat)
}

func syntheticFootprint(lng, lat float64) Footprint {
	h := syntheticHalfWidthDeg
	ring := orb.Ring{
		{lng - h, lat - h},
		{lng + h, lat - h},
		{lng + h, lat + h},
		{lng - h, lat + h},
		{lng - h, lat - h},
	}
	return Footprint{
		Ring:        ring,
		Centroid:    orb.Point{lng, lat},
		AreaSqFt:    syntheticLotSqFt,
		Approximate: true,
	}
}

// closeRing ensures the first vertex is repeated as the last.
func closeRing(ring orb.Ring) orb.Ring {
	if len(ring) == 0 {
		return ring
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// ringAreaSqFt runs a planar shoelace accumulation over the vertices after
// converting degrees to feet at the ring's latitude band. Deliberately an
// approximation, not a geodesic area.
func ringAreaSqFt(ring orb.Ring) float64 {
	if len(ring) < 4 {
		return 0
	}
	cosLat := math.Cos(ring[0][1] * math.Pi / 180)

	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		x0 := ring[i][0] * feetPerDegree * cosLat
		y0 := ring[i][1] * feetPerDegree
		x1 := ring[i+1][0] * feetPerDegree * cosLat
		y1 := ring[i+1][1] * feetPerDegree
		sum += x0*y1 - x1*y0
	}
	return math.Abs(sum) / 2
}

// ringCentroid is the arithmetic mean of the non-duplicated vertices.
func ringCentroid(ring orb.Ring) orb.Point {
	n := len(ring) - 1
	if n <= 0 {
		return orb.Point{}
	}
	var sx, sy float64
	for _, p := range ring[:n] {
		sx += p[0]
		sy += p[1]
	}
	return orb.Point{sx / float64(n), sy / float64(n)}
}

func (r *FootprintResolver) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
