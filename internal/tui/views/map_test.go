package views

import (
	"testing"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/arvelo/siteplot/internal/engine/interact"
	"github.com/arvelo/siteplot/internal/model"
	"github.com/arvelo/siteplot/internal/tui/components"
)

func dragTestModel(t *testing.T, projects []model.Project) MapModel {
	t.Helper()
	m := MapModel{
		filter:       textinput.New(),
		cursor:       -1,
		interactions: interact.NewTable(),
		dragged:      make(map[string][2]float64),
		mapview:      components.NewMapView(40, 12),
		located:      projects,
	}
	m.rebuild()
	return m
}

func activateFirst(t *testing.T, m MapModel) MapModel {
	t.Helper()
	if len(m.clusters) == 0 {
		t.Fatal("no clusters to activate")
	}
	m.interactions.Activate(m.clusters[0].Key)
	m.dragMode = true
	return m
}

func dragKey(t *testing.T, m MapModel, key string) MapModel {
	t.Helper()
	mm, _ := m.handleDragKey(key)
	return mm.(MapModel)
}

func TestDragStepKeepsDragModeAndActivation(t *testing.T) {
	m := activateFirst(t, dragTestModel(t, []model.Project{
		{ID: "a", Name: "A", Status: model.StatusActive, Lat: 39.74, Lng: -104.99, HasCoord: true},
	}))

	m = dragKey(t, m, "up")

	if !m.dragMode {
		t.Fatal("one drag step must not leave drag mode")
	}
	step := 0.0005
	lat := 39.74 + step
	wantKey := model.CoordKey(-104.99, lat)
	if got := m.interactions.Activated(); got != wantKey {
		t.Errorf("activation key %q, want %q", got, wantKey)
	}
	if !m.hasCluster(wantKey) {
		t.Error("moved marker missing from the rebuilt clusters")
	}

	// A second step continues from the overridden position.
	m = dragKey(t, m, "up")
	if !m.dragMode {
		t.Fatal("drag mode lost on the second step")
	}
	lat += step
	wantKey = model.CoordKey(-104.99, lat)
	if got := m.interactions.Activated(); got != wantKey {
		t.Errorf("second step key %q, want %q", got, wantKey)
	}
}

func TestDragMovesWholeCluster(t *testing.T) {
	m := activateFirst(t, dragTestModel(t, []model.Project{
		{ID: "a", Name: "A", Status: model.StatusActive, Lat: 39.74, Lng: -104.99, HasCoord: true},
		{ID: "b", Name: "B", Status: model.StatusPlanned, Lat: 39.74, Lng: -104.99, HasCoord: true},
	}))

	m = dragKey(t, m, "right")

	if len(m.clusters) != 1 {
		t.Fatalf("drag split the cluster: %d clusters", len(m.clusters))
	}
	if got := len(m.clusters[0].Members); got != 2 {
		t.Fatalf("cluster lost members: %d", got)
	}
	step := 0.0005
	wantKey := model.CoordKey(-104.99+step, 39.74)
	if m.clusters[0].Key != wantKey {
		t.Errorf("cluster key %q, want %q", m.clusters[0].Key, wantKey)
	}
}

func TestDragExitKeys(t *testing.T) {
	m := activateFirst(t, dragTestModel(t, []model.Project{
		{ID: "a", Name: "A", Status: model.StatusActive, Lat: 39.74, Lng: -104.99, HasCoord: true},
	}))

	m = dragKey(t, m, "g")
	if m.dragMode {
		t.Fatal("g must leave drag mode")
	}
	if m.interactions.Activated() == "" {
		t.Error("leaving drag mode must keep the detail panel open")
	}
}
