package reconcile

import (
	"errors"
	"testing"

	"github.com/arvelo/siteplot/internal/model"
)

type fakeSource struct {
	records map[string]model.Project
	err     error
}

func (f *fakeSource) GetByID(id string) (model.Project, error) {
	if f.err != nil {
		return model.Project{}, f.err
	}
	p, ok := f.records[id]
	if !ok {
		return model.Project{}, errors.New("not found")
	}
	return p, nil
}

func TestApplyInsertFetchesFullRecord(t *testing.T) {
	full := model.Project{ID: "p-9", Name: "Harbor Tower", Status: model.StatusPlanned, Address: "1 Pier Way"}
	r := New(&fakeSource{records: map[string]model.Project{"p-9": full}}, nil)

	out, notice, err := r.Apply(nil, model.ChangeEvent{Type: model.EventInsert, ID: "p-9"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != full {
		t.Fatalf("collection after insert: %+v", out)
	}
	if notice == nil || notice.Text != "Added Harbor Tower" {
		t.Errorf("notice: %+v", notice)
	}
}

func TestApplyInsertFetchFailure(t *testing.T) {
	r := New(&fakeSource{err: errors.New("db gone")}, nil)

	before := []model.Project{{ID: "a"}}
	out, notice, err := r.Apply(before, model.ChangeEvent{Type: model.EventInsert, ID: "p-9"})
	if err == nil {
		t.Fatal("expected fetch error to surface")
	}
	if len(out) != 1 {
		t.Errorf("failed insert must not change the collection: %+v", out)
	}
	if notice != nil {
		t.Errorf("failed insert must not produce a notice: %+v", notice)
	}
}

func TestApplyUpdateReplacesInPlace(t *testing.T) {
	margin := 22.5
	before := []model.Project{
		{ID: "a", Name: "First"},
		{ID: "b", Name: "Old Name", Status: model.StatusPlanned, Value: 100, Cost: 80,
			Lat: 39.7, Lng: -105.0, HasCoord: true, Margin: &margin},
		{ID: "c", Name: "Third"},
	}
	r := New(&fakeSource{}, nil)

	out, notice, err := r.Apply(before, model.ChangeEvent{
		Type: model.EventUpdate, ID: "b",
		New: &model.Project{ID: "b", Name: "New Name", Status: model.StatusActive, Value: 200, Cost: 150},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out[1].Name != "New Name" || out[1].Status != model.StatusActive || out[1].Value != 200 || out[1].Cost != 150 {
		t.Errorf("fields not replaced: %+v", out[1])
	}
	// Position and the client-derived state survive the rewrite.
	if out[1].Lat != 39.7 || out[1].Lng != -105.0 || !out[1].HasCoord {
		t.Errorf("coordinate lost on coordless update: %+v", out[1])
	}
	if out[1].Margin != &margin {
		t.Error("margin pointer must be preserved")
	}
	// Order stays positional.
	if out[0].ID != "a" || out[2].ID != "c" {
		t.Errorf("order changed: %+v", out)
	}
	if notice == nil || notice.Text != "Updated New Name" {
		t.Errorf("notice: %+v", notice)
	}
}

func TestApplyUpdateWithCoordinateMoves(t *testing.T) {
	before := []model.Project{{ID: "b", Name: "B", Lat: 1, Lng: 2, HasCoord: true}}
	r := New(&fakeSource{}, nil)

	out, _, err := r.Apply(before, model.ChangeEvent{
		Type: model.EventUpdate, ID: "b",
		New: &model.Project{ID: "b", Name: "B", Lat: 40.0, Lng: -104.9, HasCoord: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Lat != 40.0 || out[0].Lng != -104.9 {
		t.Errorf("located update must move the project: %+v", out[0])
	}
}

func TestApplyUpdateUnknownIDIsNoop(t *testing.T) {
	before := []model.Project{{ID: "a"}}
	r := New(&fakeSource{}, nil)

	out, notice, err := r.Apply(before, model.ChangeEvent{
		Type: model.EventUpdate, ID: "ghost", New: &model.Project{ID: "ghost"},
	})
	if err != nil || notice != nil {
		t.Fatalf("unknown id must be silent: notice=%+v err=%v", notice, err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("collection changed: %+v", out)
	}
}

func TestApplyDelete(t *testing.T) {
	before := []model.Project{
		{ID: "a", Name: "First"},
		{ID: "b", Name: "Doomed"},
		{ID: "c", Name: "Third"},
	}
	r := New(&fakeSource{}, nil)

	out, notice, err := r.Apply(before, model.ChangeEvent{Type: model.EventDelete, ID: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "c" {
		t.Errorf("collection after delete: %+v", out)
	}
	if notice == nil || notice.Text != "Removed Doomed" {
		t.Errorf("notice: %+v", notice)
	}

	out, notice, err = r.Apply(out, model.ChangeEvent{Type: model.EventDelete, ID: "b"})
	if err != nil || notice != nil || len(out) != 2 {
		t.Errorf("repeated delete must be a no-op: %+v notice=%+v err=%v", out, notice, err)
	}
}

func TestApplyInsertThenDelete(t *testing.T) {
	full := model.Project{ID: "x", Name: "Pop-up"}
	r := New(&fakeSource{records: map[string]model.Project{"x": full}}, nil)

	out, _, err := r.Apply(nil, model.ChangeEvent{Type: model.EventInsert, ID: "x"})
	if err != nil {
		t.Fatal(err)
	}
	out, _, err = r.Apply(out, model.ChangeEvent{Type: model.EventDelete, ID: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("insert then delete must leave the collection empty: %+v", out)
	}
}

func TestApplyUnknownEventType(t *testing.T) {
	before := []model.Project{{ID: "a"}}
	r := New(&fakeSource{}, nil)

	out, notice, err := r.Apply(before, model.ChangeEvent{Type: "TRUNCATE", ID: "a"})
	if err != nil || notice != nil || len(out) != 1 {
		t.Errorf("unknown event type must be ignored: %+v notice=%+v err=%v", out, notice, err)
	}
}
