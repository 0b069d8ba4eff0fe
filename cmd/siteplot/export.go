package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arvelo/siteplot/internal/engine/storage"
	"github.com/arvelo/siteplot/internal/tui/views"
)

func runExport(args []string) error {
	var dbPath, outputPath, org string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to .db file (required)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: same dir as db)")
	fs.StringVar(&org, "org", views.DefaultOrg, "Org scope to export")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: siteplot export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  siteplot export -db ./demo.db\n")
		fmt.Fprintf(os.Stderr, "  siteplot export -db demo.db -output projects.csv\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+".csv")
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	projects, err := store.ListByOrg(org)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}
	if len(projects) == 0 {
		return fmt.Errorf("no projects found for org %q", org)
	}

	f, err := os.Create(outputPath)
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

	fmt.Fprintf(os.Stderr, "Exported %d projects to %s\n", len(projects), outputPath)
	return nil
}
