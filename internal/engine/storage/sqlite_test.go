package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/arvelo/siteplot/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustInsert(t *testing.T, s *Store, org string, p model.Project) {
	t.Helper()
	if err := s.Insert(org, p); err != nil {
		t.Fatal(err)
	}
}

func TestInsertAndGetByID(t *testing.T) {
	s := testStore(t)

	start, _ := time.Parse(dateLayout, "2026-03-15")
	p := model.Project{
		ID: "p-1", Name: "Cherry Creek Lofts", Owner: "Arvelo Dev",
		Status: model.StatusActive, Value: 4_200_000, Cost: 3_500_000,
		StartDate: start, Address: "100 Fillmore St, Denver, CO",
	}
	mustInsert(t, s, "acme", p)

	got, err := s.GetByID("p-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != p {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, p)
	}
}

func TestListByOrgFiltersAndOrders(t *testing.T) {
	s := testStore(t)

	mustInsert(t, s, "acme", model.Project{ID: "a", Name: "A", Status: model.StatusPlanned, Address: "1 First St"})
	mustInsert(t, s, "acme", model.Project{ID: "b", Name: "B", Status: model.StatusActive, Lat: 39.7, Lng: -105.0, HasCoord: true})
	mustInsert(t, s, "acme", model.Project{ID: "c", Name: "C", Status: model.StatusPlanned}) // unmappable
	mustInsert(t, s, "other", model.Project{ID: "d", Name: "D", Status: model.StatusPlanned, Address: "other org"})

	projects, err := s.ListByOrg("acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 || projects[0].ID != "a" || projects[1].ID != "b" {
		t.Fatalf("mappable projects: %+v", projects)
	}

	excluded, err := s.ListExcluded("acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(excluded) != 1 || excluded[0].ID != "c" {
		t.Fatalf("excluded projects: %+v", excluded)
	}
}

func TestUpdateScopedToOrg(t *testing.T) {
	s := testStore(t)
	mustInsert(t, s, "acme", model.Project{ID: "a", Name: "Before", Status: model.StatusPlanned, Address: "1 First St"})

	// Wrong org must not touch the row.
	if err := s.Update("other", model.Project{ID: "a", Name: "Hijacked", Status: model.StatusActive, Address: "1 First St"}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetByID("a")
	if got.Name != "Before" {
		t.Fatalf("cross-org update leaked: %+v", got)
	}

	if err := s.Update("acme", model.Project{ID: "a", Name: "After", Status: model.StatusActive, Address: "1 First St"}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetByID("a")
	if got.Name != "After" || got.Status != model.StatusActive {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestDeleteAndCount(t *testing.T) {
	s := testStore(t)
	mustInsert(t, s, "acme", model.Project{ID: "a", Name: "A", Status: model.StatusPlanned, Address: "x"})
	mustInsert(t, s, "acme", model.Project{ID: "b", Name: "B", Status: model.StatusPlanned, Address: "y"})

	if err := s.Delete("acme", "a"); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Count("acme"); err != nil || n != 1 {
		t.Fatalf("count after delete: %d err=%v", n, err)
	}
	if _, err := s.GetByID("a"); err == nil {
		t.Error("deleted row still readable")
	}
}

func TestMutationsPublishToFeed(t *testing.T) {
	s := testStore(t)
	ch := s.Feed().Subscribe("acme")
	defer s.Feed().Unsubscribe("acme", ch)

	start, _ := time.Parse(dateLayout, "2026-01-05")
	p := model.Project{ID: "p-1", Name: "Depot Yard", Status: model.StatusPlanned, StartDate: start, Address: "9 Rail Spur"}
	mustInsert(t, s, "acme", p)

	e := <-ch
	if e.Type != model.EventInsert || e.ID != "p-1" || e.Name != "Depot Yard" {
		t.Fatalf("insert event: %+v", e)
	}
	if e.New != nil {
		t.Error("insert events carry a partial payload only")
	}

	p.Name = "Depot Yard Phase 2"
	if err := s.Update("acme", p); err != nil {
		t.Fatal(err)
	}
	e = <-ch
	if e.Type != model.EventUpdate || e.New == nil || e.New.Name != "Depot Yard Phase 2" {
		t.Fatalf("update event: %+v", e)
	}

	if err := s.Delete("acme", "p-1"); err != nil {
		t.Fatal(err)
	}
	e = <-ch
	if e.Type != model.EventDelete || e.Name != "Depot Yard Phase 2" {
		t.Fatalf("delete event should carry the last known name: %+v", e)
	}
}
