// Package audit persists a record of every completed root run, the way
// backend/psql.Backend persists session and job history: one row per
// run, written through gorp against a Postgres DSN.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"gopkg.in/gorp.v1"
)

// Run is one completed root invocation, keyed by the root worker's id.
type Run struct {
	RootID    string `db:"root_id"`
	Name      string `db:"name"`
	StartedAt int64  `db:"started_at"`
	EndedAt   int64  `db:"ended_at"`
	LeafCount int    `db:"leaf_count"`
	Leaves    []byte `db:"leaves"`
	Error     string `db:"error"`
}

var schema = []struct {
	name       string
	table      interface{}
	primaryKey []string
}{
	{"branch_run", Run{}, []string{"RootID"}},
}

// Sink writes completed Run records to Postgres.
type Sink struct {
	db    *sql.DB
	dbMap *gorp.DbMap
}

// Open connects to dsn and ensures the schema's table mapping is
// registered. It does not create the table; migrations are out of scope
// here the same way heim-upgradedb is a separate binary from the server
// that uses the schema it creates.
func Open(dsn string) (*Sink, error) {
	parsed, err := url.Parse(dsn)
	if err == nil && parsed.User != nil {
		parsed.User = url.UserPassword(parsed.User.Username(), "xxxxxx")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("audit: connecting to %s: %w", parsed, err)
	}

	dbMap := &gorp.DbMap{Db: db, Dialect: gorp.PostgresDialect{}}
	for _, item := range schema {
		dbMap.AddTableWithName(item.table, item.name).SetKeys(false, item.primaryKey...)
	}

	return &Sink{db: db, dbMap: dbMap}, nil
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error { return s.db.Close() }

// Record inserts or replaces the row for run.RootID.
func (s *Sink) Record(run Run) error {
	existing, err := s.dbMap.Get(Run{}, run.RootID)
	if err != nil {
		return fmt.Errorf("audit: lookup %s: %w", run.RootID, err)
	}
	if existing != nil {
		_, err = s.dbMap.Update(&run)
	} else {
		err = s.dbMap.Insert(&run)
	}
	if err != nil {
		return fmt.Errorf("audit: persisting %s: %w", run.RootID, err)
	}
	return nil
}

// RunFromResult builds a Run ready for Record from a completed root's
// observed outcome. The leaf values themselves are marshaled via
// MarshalLeaves and stored alongside the count, since gorp's table
// mapping cannot itself be generic over the tree's element type.
func RunFromResult[T any](name, rootID string, started, ended time.Time, values []T, runErr error) Run {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	leaves, err := MarshalLeaves(values)
	if err != nil {
		leaves = nil
	}
	return Run{
		RootID:    rootID,
		Name:      name,
		StartedAt: started.UnixNano(),
		EndedAt:   ended.UnixNano(),
		LeafCount: len(values),
		Leaves:    leaves,
		Error:     errText,
	}
}

// MarshalLeaves encodes a tree's leaf values as a JSON side document,
// kept separate from Run since the leaf type is generic and gorp
// mappings cannot be.
func MarshalLeaves[T any](values []T) ([]byte, error) {
	return json.Marshal(values)
}
