package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arvelo/siteplot/internal/model"
)

const dateLayout = "2006-01-02"

// Store holds projects in a sqlite file and publishes mutations to a feed.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	feed *Feed
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db, feed: NewFeed()}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		org TEXT NOT NULL,
		name TEXT NOT NULL,
		owner TEXT,
		status TEXT NOT NULL,
		value REAL,
		cost REAL,
		start_date TEXT,
		address TEXT,
		lat REAL,
		lng REAL,
		has_coord INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_projects_org ON projects(org);
	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Feed returns the change feed fed by this store's mutations.
func (s *Store) Feed() *Feed {
	return s.feed
}

// ListByOrg returns the mappable projects of an org in insertion order.
// Records with neither an address nor a coordinate are filtered out here;
// ListExcluded surfaces them for diagnostics.
func (s *Store) ListByOrg(org string) ([]model.Project, error) {
	rows, err := s.db.Query(`
		SELECT id, name, owner, status, value, cost, start_date, address, lat, lng, has_coord
		FROM projects
		WHERE org = ? AND (address != '' OR has_coord = 1)
		ORDER BY rowid`, org)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			continue
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ExcludedProject is the narrow record shape used for diagnostic logging
// of projects the primary query filters out.
type ExcludedProject struct {
	ID      string
	Status  model.Status
	Address string
}

// ListExcluded returns org projects that ListByOrg would not.
func (s *Store) ListExcluded(org string) ([]ExcludedProject, error) {
	rows, err := s.db.Query(`
		SELECT id, status, address FROM projects
		WHERE org = ? AND address = '' AND has_coord = 0
		ORDER BY rowid`, org)
	if err != nil {
		return nil, fmt.Errorf("listing excluded projects: %w", err)
	}
	defer rows.Close()

	var out []ExcludedProject
	for rows.Next() {
		var e ExcludedProject
		if err := rows.Scan(&e.ID, &e.Status, &e.Address); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetByID fetches one full record, as required after an insert event.
func (s *Store) GetByID(id string) (model.Project, error) {
	row := s.db.QueryRow(`
		SELECT id, name, owner, status, value, cost, start_date, address, lat, lng, has_coord
		FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

func (s *Store) Insert(org string, p model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO projects (id, org, name, owner, status, value, cost, start_date, address, lat, lng, has_coord)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, org, p.Name, p.Owner, string(p.Status), p.Value, p.Cost,
		p.StartDate.Format(dateLayout), p.Address, p.Lat, p.Lng, boolToInt(p.HasCoord))
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}

	s.feed.Publish(model.ChangeEvent{Type: model.EventInsert, Org: org, ID: p.ID, Name: p.Name})
	return nil
}

func (s *Store) Update(org string, p model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE projects SET name=?, owner=?, status=?, value=?, cost=?, start_date=?, address=?, lat=?, lng=?, has_coord=?
		WHERE id=? AND org=?`,
		p.Name, p.Owner, string(p.Status), p.Value, p.Cost, p.StartDate.Format(dateLayout),
		p.Address, p.Lat, p.Lng, boolToInt(p.HasCoord), p.ID, org)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}

	updated := p
	s.feed.Publish(model.ChangeEvent{Type: model.EventUpdate, Org: org, ID: p.ID, Name: p.Name, New: &updated})
	return nil
}

func (s *Store) Delete(org, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var name string
	s.db.QueryRow(`SELECT name FROM projects WHERE id=? AND org=?`, id, org).Scan(&name)

	_, err := s.db.Exec(`DELETE FROM projects WHERE id=? AND org=?`, id, org)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}

	s.feed.Publish(model.ChangeEvent{Type: model.EventDelete, Org: org, ID: id, Name: name})
	return nil
}

func (s *Store) Count(org string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM projects WHERE org = ?", org).Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (model.Project, error) {
	var p model.Project
	var status, startDate string
	var hasCoord int
	err := row.Scan(&p.ID, &p.Name, &p.Owner, &status, &p.Value, &p.Cost, &startDate,
		&p.Address, &p.Lat, &p.Lng, &hasCoord)
	if err != nil {
		return model.Project{}, err
	}
	p.Status = model.Status(status)
	p.HasCoord = hasCoord != 0
	if t, err := time.Parse(dateLayout, startDate); err == nil {
		p.StartDate = t
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
