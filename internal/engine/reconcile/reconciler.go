package reconcile

import (
	"fmt"
	"log"
	"time"

	"github.com/arvelo/siteplot/internal/model"
)

// NoticeTTL is how long a transient notice stays visible.
const NoticeTTL = 4 * time.Second

// Notice is a transient message about an applied change. A new notice
// replaces whatever is currently shown; notices never queue.
type Notice struct {
	Kind model.EventType
	Text string
}

// Source fetches full records for insert events, whose feed payload is
// only partial.
type Source interface {
	GetByID(id string) (model.Project, error)
}

// Reconciler applies change-feed events to the locally held collection.
type Reconciler struct {
	source Source
	logger *log.Logger
}

func New(source Source, logger *log.Logger) *Reconciler {
	return &Reconciler{source: source, logger: logger}
}

// Apply folds one event into the collection and returns the new collection
// plus the notice to display. Events are applied in delivery order; racing
// events for one id resolve last-applied-wins. Updates and deletes for an
// unknown id are no-ops. The returned error is only non-nil when the
// full-record fetch behind an insert fails.
func (r *Reconciler) Apply(projects []model.Project, e model.ChangeEvent) ([]model.Project, *Notice, error) {
	switch e.Type {
	case model.EventInsert:
		full, err := r.source.GetByID(e.ID)
		if err != nil {
			return projects, nil, fmt.Errorf("fetching inserted project %s: %w", e.ID, err)
		}
		projects = append(projects, full)
		return projects, &Notice{Kind: e.Type, Text: "Added " + full.Name}, nil

	case model.EventUpdate:
		if e.New == nil {
			r.logf("FEED update without payload id=%s", e.ID)
			return projects, nil, nil
		}
		for i := range projects {
			if projects[i].ID != e.ID {
				continue
			}
			// Replace mutable fields in place, keeping position and the
			// client-derived margin.
			projects[i].Name = e.New.Name
			projects[i].Owner = e.New.Owner
			projects[i].Status = e.New.Status
			projects[i].Value = e.New.Value
			projects[i].Cost = e.New.Cost
			projects[i].StartDate = e.New.StartDate
			projects[i].Address = e.New.Address
			if e.New.HasCoord {
				projects[i].Lat = e.New.Lat
				projects[i].Lng = e.New.Lng
				projects[i].HasCoord = true
			}
			return projects, &Notice{Kind: e.Type, Text: "Updated " + projects[i].Name}, nil
		}
		r.logf("FEED update for unknown id=%s", e.ID)
		return projects, nil, nil

	case model.EventDelete:
		for i := range projects {
			if projects[i].ID != e.ID {
				continue
			}
			name := projects[i].Name
			projects = append(projects[:i], projects[i+1:]...)
			return projects, &Notice{Kind: e.Type, Text: "Removed " + name}, nil
		}
		r.logf("FEED delete for unknown id=%s", e.ID)
		return projects, nil, nil
	}

	r.logf("FEED unknown event type %q id=%s", e.Type, e.ID)
	return projects, nil, nil
}

func (r *Reconciler) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
