package views

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/arvelo/siteplot/internal/model"
)

func writeProjectsCSV(path string, projects []model.Project) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{
		"id", "name", "owner", "status", "value", "cost",
		"start_date", "address", "lat", "lng",
	})

	for _, p := range projects {
		lat, lng := "", ""
		if p.HasCoord {
			lat = fmt.Sprintf("%.6f", p.Lat)
			lng = fmt.Sprintf("%.6f", p.Lng)
		}
		w.Write([]string{
			p.ID,
			p.Name,
			p.Owner,
			string(p.Status),
			fmt.Sprintf("%.2f", p.Value),
			fmt.Sprintf("%.2f", p.Cost),
			p.StartDate.Format("2006-01-02"),
			p.Address,
			lat,
			lng,
		})
	}

	return nil
}
