package geo

import "math"

// Fit thresholds: coordinate sets spreading wider than this get a capped
// zoom and extra padding so the whole set stays visible.
const (
	wideLatSpread = 10.0
	wideLngSpread = 15.0

	tightPadding = 0.05
	widePadding  = 0.12

	wideMaxZoom = 5.0
)

// Fit is a computed viewport: bounding box, padding fraction, and an
// optional zoom ceiling (0 means unconstrained).
type Fit struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
	Padding        float64
	MaxZoom        float64
	Wide           bool
}

// FitViewport computes the minimal bounding box over the points and picks
// the fit policy from its spread. Returns ok=false for an empty set, in
// which case the viewport must be left untouched.
func FitViewport(lats, lngs []float64) (Fit, bool) {
	if len(lats) == 0 || len(lats) != len(lngs) {
		return Fit{}, false
	}

	f := Fit{
		MinLat: lats[0], MaxLat: lats[0],
		MinLng: lngs[0], MaxLng: lngs[0],
	}
	for i := range lats {
		f.MinLat = math.Min(f.MinLat, lats[i])
		f.MaxLat = math.Max(f.MaxLat, lats[i])
		f.MinLng = math.Min(f.MinLng, lngs[i])
		f.MaxLng = math.Max(f.MaxLng, lngs[i])
	}

	latSpread := f.MaxLat - f.MinLat
	lngSpread := f.MaxLng - f.MinLng

	if latSpread > wideLatSpread || lngSpread > wideLngSpread {
		f.Wide = true
		f.Padding = widePadding
		f.MaxZoom = wideMaxZoom
	} else {
		f.Padding = tightPadding
	}

	return f, true
}
