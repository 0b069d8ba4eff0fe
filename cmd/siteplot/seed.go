package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/arvelo/siteplot/internal/engine/storage"
	"github.com/arvelo/siteplot/internal/model"
	"github.com/arvelo/siteplot/internal/tui/views"
)

func runSeed(args []string) error {
	var dbPath, org string

	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "siteplot.db", "Path to the database to create")
	fs.StringVar(&org, "org", views.DefaultOrg, "Org scope for the seeded projects")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: siteplot seed [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n  siteplot seed -db ./demo.db\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	date := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}

	projects := []model.Project{
		{ID: "p-001", Name: "Larimer St Lofts", Owner: "Halvorsen Group", Status: model.StatusActive,
			Value: 2400000, Cost: 1850000, StartDate: date("2026-03-01"),
			Address: "2134 Larimer St, Denver, CO"},
		{ID: "p-002", Name: "Union Station Annex", Owner: "Halvorsen Group", Status: model.StatusPlanned,
			Value: 5100000, Cost: 4300000, StartDate: date("2026-09-15"),
			Address: "1701 Wynkoop St, Denver, CO"},
		{ID: "p-003", Name: "Golden Triangle Retrofit", Owner: "Meridian Build Co", Status: model.StatusOnHold,
			Value: 880000, Cost: 790000, StartDate: date("2025-11-10"),
			Address: "", Lat: 39.7341, Lng: -104.9924, HasCoord: true},
		{ID: "p-004", Name: "Boulder Depot Renovation", Owner: "Meridian Build Co", Status: model.StatusActive,
			Value: 1350000, Cost: 990000, StartDate: date("2026-01-20"),
			Address: "2366 Junction Pl, Boulder, CO"},
		{ID: "p-005", Name: "Cherry Creek Office Fit-out", Owner: "Westline Partners", Status: model.StatusCompleted,
			Value: 640000, Cost: 410000, StartDate: date("2025-05-02"),
			Address: "100 Fillmore St, Denver, CO"},
		{ID: "p-006", Name: "Fillmore Plaza Lobby", Owner: "Westline Partners", Status: model.StatusActive,
			Value: 275000, Cost: 236000, StartDate: date("2026-06-01"),
			Address: "100 Fillmore St, Denver, CO"},
	}

	for _, p := range projects {
		if err := store.Insert(org, p); err != nil {
			return fmt.Errorf("seeding %s: %w", p.ID, err)
		}
	}

	fmt.Fprintf(os.Stderr, "Seeded %d projects into %s (org=%s)\n", len(projects), dbPath, org)
	return nil
}
