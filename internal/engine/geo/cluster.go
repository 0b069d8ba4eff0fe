package geo

import (
	"fmt"

	"github.com/arvelo/siteplot/internal/model"
)

// ClusterByCoord groups located projects by exact coordinate identity.
// Members keep their input order; cluster order follows the first
// appearance of each coordinate key. Unlocated projects are dropped.
func ClusterByCoord(projects []model.Project) []model.Cluster {
	byKey := make(map[string]int)
	var clusters []model.Cluster

	for _, p := range projects {
		if !p.Located() {
			continue
		}
		key := p.Key()
		idx, ok := byKey[key]
		if !ok {
			idx = len(clusters)
			byKey[key] = idx
			clusters = append(clusters, model.Cluster{
				Key: key,
				Lat: p.Lat,
				Lng: p.Lng,
			})
		}
		clusters[idx].Members = append(clusters[idx].Members, p)
	}

	for i := range clusters {
		clusters[i].Dominant = dominantStatus(clusters[i].Members)
	}

	return clusters
}

// dominantStatus picks the most frequent status among members. Ties break
// to the status seen first while counting, so first-appearance order must
// be tracked explicitly rather than relying on map iteration.
func dominantStatus(members []model.Project) model.Status {
	counts := make(map[model.Status]int)
	var seen []model.Status

	for _, m := range members {
		if counts[m.Status] == 0 {
			seen = append(seen, m.Status)
		}
		counts[m.Status]++
	}

	var dominant model.Status
	best := 0
	for _, s := range seen {
		if counts[s] > best {
			best = counts[s]
			dominant = s
		}
	}
	return dominant
}

// MarkerDescriptor describes how a cluster should be drawn, independent of
// any rendering toolkit.
type MarkerDescriptor struct {
	Glyph rune
	Color string // hex color, from the dominant status
	Badge string // member count for aggregated markers, empty otherwise
	Label string
}

var statusColors = map[model.Status]string{
	model.StatusPlanned:   "#06B6D4",
	model.StatusActive:    "#22C55E",
	model.StatusOnHold:    "#F59E0B",
	model.StatusCompleted: "#7C3AED",
	model.StatusCancelled: "#EF4444",
}

// StatusColor returns the marker color for a status.
func StatusColor(s model.Status) string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return "#6B7280"
}

// Describe converts a cluster into its render descriptor. Single-member
// clusters render as plain markers; larger ones carry a member-count badge.
func Describe(c model.Cluster) MarkerDescriptor {
	d := MarkerDescriptor{
		Glyph: '●',
		Color: StatusColor(c.Dominant),
		Label: c.Members[0].Name,
	}
	if len(c.Members) > 1 {
		d.Glyph = '◉'
		d.Badge = fmt.Sprintf("%d", len(c.Members))
		d.Label = fmt.Sprintf("%s +%d", c.Members[0].Name, len(c.Members)-1)
	}
	return d
}
