// Package store archives decode sessions in SQLite. Each session gets a UUID
// and keeps its summary counters, instrument attributes, channel schema with
// summary statistics, and every sample.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/ocean.telemetry/internal/model"
	"github.com/banshee-data/ocean.telemetry/internal/session"
	"github.com/banshee-data/ocean.telemetry/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite session archive. It implements session.Sink.
type Store struct {
	*sql.DB
	Clock timeutil.Clock
}

var _ session.Sink = (*Store)(nil)

// Open opens or creates the archive at path and migrates it to the latest
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	s := &Store{DB: db, Clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// MigrateUp runs all pending migrations up to the latest version.
// Returns nil if no migrations were needed (already at latest version).
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty state.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger interface
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	diagf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// Stats summarises every element of a channel.
type Stats struct {
	Min, Max, Mean, StdDev float64
	// N is the number of elements, rows times width.
	N int
}

// ChannelStats computes statistics over all values of h. Stats with N of
// zero are returned for an empty channel; StdDev is zero below two values.
func ChannelStats(m *model.Model, h model.Handle) Stats {
	var values []float64
	for i := 0; ; i++ {
		col := m.Column(h, i)
		if col == nil {
			break
		}
		values = append(values, col...)
	}
	if len(values) == 0 {
		return Stats{}
	}
	st := Stats{N: len(values), Min: floats.Min(values), Max: floats.Max(values)}
	if len(values) < 2 {
		st.Mean = values[0]
		return st
	}
	st.Mean, st.StdDev = stat.MeanStdDev(values, nil)
	return st
}

func nullFloat(v float64, ok bool) sql.NullFloat64 {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// WriteSession stores res in one transaction and returns nil only when every
// row was written.
func (s *Store) WriteSession(ctx context.Context, res *session.Result) error {
	_, err := s.writeSession(ctx, res)
	return err
}

// SaveSession stores res and returns the new session id.
func (s *Store) SaveSession(ctx context.Context, res *session.Result) (string, error) {
	return s.writeSession(ctx, res)
}

func (s *Store) writeSession(ctx context.Context, res *session.Result) (string, error) {
	if res == nil || res.Model == nil {
		return "", errors.New("store: session has no model")
	}
	id := uuid.NewString()

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sum := res.Summary
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (
			session_id, source, stored_at, frames_accepted, checksum_failures,
			unknown_type_skips, context_not_ready_skips, decode_errors,
			truncated, aborted, fatal_error, bytes_scanned, elapsed_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, res.Source, s.Clock.Now().UnixNano(), sum.FramesAccepted, sum.ChecksumFailures,
		sum.UnknownTypeSkips, sum.ContextNotReadySkips, sum.DecodeErrors,
		sum.Truncated, sum.Aborted, sum.FatalError, sum.BytesScanned, int64(sum.Elapsed))
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	attrs := res.Model.Attributes()
	for _, k := range res.Model.AttributeKeys() {
		v := attrs[k]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attributes (session_id, key, value) VALUES (?, ?, ?)`, id, k, v); err != nil {
			return "", fmt.Errorf("insert attribute %s: %w", k, err)
		}
	}

	sampleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (session_id, channel, row_index, t_unix_nano, element, value)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare samples: %w", err)
	}
	defer sampleStmt.Close()

	for i, ch := range res.Model.ListChannels() {
		h := model.Handle(i)
		st := ChannelStats(res.Model, h)
		ok := st.N > 0
		_, err := tx.ExecContext(ctx, `
			INSERT INTO channels (
				session_id, name, element_type, width, unit, timebase, row_count,
				min_value, max_value, mean_value, std_dev
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, ch.Name, ch.Type.String(), ch.Type.Width, ch.Unit, string(ch.Timebase), ch.Rows,
			nullFloat(st.Min, ok), nullFloat(st.Max, ok), nullFloat(st.Mean, ok), nullFloat(st.StdDev, ok))
		if err != nil {
			return "", fmt.Errorf("insert channel %s: %w", ch.Name, err)
		}

		row := 0
		for t, values := range res.Model.ReadChannel(h) {
			for e, v := range values {
				if _, err := sampleStmt.ExecContext(ctx, id, ch.Name, row, t.UnixNano(), e, v); err != nil {
					return "", fmt.Errorf("insert sample %s[%d]: %w", ch.Name, row, err)
				}
			}
			row++
		}
		tracef("session %s channel %s: %d rows", id, ch.Name, row)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	diagf("stored %s as session %s (%d channels)", res.Source, id, len(res.Model.ListChannels()))
	return id, nil
}

// SessionRecord is a stored session summary.
type SessionRecord struct {
	ID       string
	Source   string
	StoredAt time.Time
	Summary  session.Summary
}

// Sessions lists stored sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT session_id, source, stored_at, frames_accepted, checksum_failures,
			unknown_type_skips, context_not_ready_skips, decode_errors,
			truncated, aborted, fatal_error, bytes_scanned, elapsed_ns
		FROM sessions ORDER BY stored_at, source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var storedAt, elapsed int64
		if err := rows.Scan(&r.ID, &r.Source, &storedAt,
			&r.Summary.FramesAccepted, &r.Summary.ChecksumFailures,
			&r.Summary.UnknownTypeSkips, &r.Summary.ContextNotReadySkips, &r.Summary.DecodeErrors,
			&r.Summary.Truncated, &r.Summary.Aborted, &r.Summary.FatalError,
			&r.Summary.BytesScanned, &elapsed); err != nil {
			return nil, err
		}
		r.StoredAt = time.Unix(0, storedAt).UTC()
		r.Summary.Elapsed = time.Duration(elapsed)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ChannelRecord is a stored channel with its statistics. Stats are invalid
// for channels without rows.
type ChannelRecord struct {
	model.ChannelInfo
	Min, Max, Mean, StdDev sql.NullFloat64
}

// Channels lists the channels of a stored session in name order.
func (s *Store) Channels(ctx context.Context, sessionID string) ([]ChannelRecord, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT name, width, unit, timebase, row_count, min_value, max_value, mean_value, std_dev
		FROM channels WHERE session_id = ? ORDER BY name`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChannelRecord
	for rows.Next() {
		var c ChannelRecord
		var width int
		var timebase string
		if err := rows.Scan(&c.Name, &width, &c.Unit, &timebase, &c.Rows,
			&c.Min, &c.Max, &c.Mean, &c.StdDev); err != nil {
			return nil, err
		}
		c.Type = model.Array(width)
		c.Timebase = model.Timebase(timebase)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Samples returns the stored rows of one channel in row order.
func (s *Store) Samples(ctx context.Context, sessionID, channel string) ([]time.Time, [][]float64, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT row_index, t_unix_nano, value FROM samples
		WHERE session_id = ? AND channel = ?
		ORDER BY row_index, element`, sessionID, channel)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var times []time.Time
	var values [][]float64
	last := -1
	for rows.Next() {
		var idx int
		var ts int64
		var v float64
		if err := rows.Scan(&idx, &ts, &v); err != nil {
			return nil, nil, err
		}
		if idx != last {
			times = append(times, time.Unix(0, ts).UTC())
			values = append(values, nil)
			last = idx
		}
		values[len(values)-1] = append(values[len(values)-1], v)
	}
	return times, values, rows.Err()
}

// Attributes returns the stored attributes of a session.
func (s *Store) Attributes(ctx context.Context, sessionID string) (map[string]string, error) {
	rows, err := s.QueryContext(ctx, `SELECT key, value FROM attributes WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
