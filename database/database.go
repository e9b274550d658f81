package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/abiiranathan/pdfhighlight/coords"
	"github.com/abiiranathan/pdfhighlight/highlight"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a reading does not exist.
var ErrNotFound = errors.New("database: not found")

// Batch sizes keep each statement under the SQLITE_MAX_VARIABLE_NUMBER
// limit of 999.
const (
	readingBatchSize   = 300 // 3 columns
	highlightBatchSize = 90  // 10 columns
)

// Store keeps readings and their highlight records in SQLite.
type Store struct {
	db *sql.DB
}

// Connect to sqlite3 database.
func Connect(dbname string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbname)
	if err != nil {
		return nil, fmt.Errorf("database: unable to connect: %w", err)
	}

	// ping the database to ensure we are connected.
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: unable to ping: %w", err)
	}

	// Enable foreign key constraints and WAL mode.
	_, err = db.Exec(`PRAGMA foreign_keys = ON ; PRAGMA journal_mode = WAL`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("database: unable to set pragma: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateTables() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS readings(
		id INTEGER NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		path TEXT NOT NULL UNIQUE
	)
	`)
	if err != nil {
		return fmt.Errorf("database: create readings: %w", err)
	}

	// position is the record's index in its set; LoadHighlights returns
	// records in that order so ids stay stable across a round trip.
	_, err = s.db.Exec(`
	CREATE TABLE IF NOT EXISTS highlights(
		reading_id INTEGER NOT NULL REFERENCES readings(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		fragment TEXT NOT NULL,
		page INTEGER NOT NULL,
		char_start INTEGER NOT NULL,
		char_end INTEGER NOT NULL,
		start_x REAL NOT NULL,
		start_y REAL NOT NULL,
		end_x REAL NOT NULL,
		end_y REAL NOT NULL,
		PRIMARY KEY(reading_id, position)
	)
	`)
	if err != nil {
		return fmt.Errorf("database: create highlights: %w", err)
	}
	return nil
}

func (s *Store) GetReadings(ctx context.Context) ([]Reading, error) {
	query := `SELECT id, name, path FROM readings ORDER BY name`

	readings := []Reading{}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("database: list readings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ID, &r.Name, &r.Path); err != nil {
			return nil, fmt.Errorf("database: list readings: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: list readings: %w", err)
	}
	return readings, nil
}

func (s *Store) GetReading(ctx context.Context, id int) (Reading, error) {
	query := `SELECT id, name, path FROM readings WHERE id=$1 LIMIT 1`
	return s.scanReading(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetReadingByPath(ctx context.Context, path string) (Reading, error) {
	query := `SELECT id, name, path FROM readings WHERE path=$1 LIMIT 1`
	return s.scanReading(s.db.QueryRowContext(ctx, query, path))
}

func (s *Store) scanReading(row *sql.Row) (r Reading, err error) {
	err = row.Scan(&r.ID, &r.Name, &r.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("database: get reading: %w", err)
	}
	return r, nil
}

// InsertReadings inserts readings in batches inside one transaction. It
// fails on the first conflict; use InsertOneByOne to skip known paths.
func (s *Store) InsertReadings(ctx context.Context, readings []Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := 0; i < len(readings); i += readingBatchSize {
		batch := readings[i:min(i+readingBatchSize, len(readings))]
		placeholders, args := readingValueTuple(batch)
		query := fmt.Sprintf("INSERT INTO readings (id, name, path) VALUES %s", placeholders)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("database: insert readings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("Inserted %d readings into the database\n", len(readings))
	return nil
}

// InsertOneByOne registers the PDFs at paths, ignoring paths already
// registered. It returns the number of new readings.
func (s *Store) InsertOneByOne(ctx context.Context, paths []string) (int, error) {
	query := `INSERT INTO readings (id, name, path) VALUES ($1, $2, $3) ON CONFLICT(path) DO NOTHING`
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for _, path := range paths {
		res, err := tx.ExecContext(ctx, query, PathID(path), filepath.Base(path), path)
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
				log.Printf("reading id of %s collides with another path\n", path)
				continue
			}
			return 0, fmt.Errorf("database: insert reading %s: %w", path, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

// SaveHighlights replaces the records stored for readingID.
func (s *Store) SaveHighlights(ctx context.Context, readingID int, records []highlight.Record) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings WHERE id=$1`, readingID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("database: save highlights: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: reading %d", ErrNotFound, readingID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM highlights WHERE reading_id=$1`, readingID); err != nil {
		return fmt.Errorf("database: clear highlights: %w", err)
	}

	for i := 0; i < len(records); i += highlightBatchSize {
		end := min(i+highlightBatchSize, len(records))
		placeholders, args := highlightValueTuple(readingID, i, records[i:end])
		query := fmt.Sprintf(`INSERT INTO highlights (reading_id, position, fragment, page,
			char_start, char_end, start_x, start_y, end_x, end_y) VALUES %s`, placeholders)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
				return fmt.Errorf("%w: reading %d", ErrNotFound, readingID)
			}
			return fmt.Errorf("database: insert highlights: %w", err)
		}
	}
	return tx.Commit()
}

// LoadHighlights returns the records stored for readingID in their
// original order.
func (s *Store) LoadHighlights(ctx context.Context, readingID int) ([]highlight.Record, error) {
	if _, err := s.GetReading(ctx, readingID); err != nil {
		return nil, err
	}

	query := `SELECT fragment, page, char_start, char_end, start_x, start_y, end_x, end_y
		FROM highlights WHERE reading_id=$1 ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query, readingID)
	if err != nil {
		return nil, fmt.Errorf("database: load highlights: %w", err)
	}
	defer rows.Close()

	records := []highlight.Record{}
	for rows.Next() {
		var (
			r highlight.Record
			n coords.Normalized
		)
		err := rows.Scan(&r.Fragment, &r.Page, &r.CharStart, &r.CharEnd,
			&n.StartX, &n.StartY, &n.EndX, &n.EndY)
		if err != nil {
			return nil, fmt.Errorf("database: load highlights: %w", err)
		}
		r.Normalized = n
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: load highlights: %w", err)
	}
	return records, nil
}

func readingValueTuple(readings []Reading) (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(readings)*3)
	for i, r := range readings {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, r.ID, r.Name, r.Path)
	}
	return b.String(), args
}

func highlightValueTuple(readingID, offset int, records []highlight.Record) (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(records)*10)
	for i, r := range records {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, readingID, offset+i, r.Fragment, r.Page, r.CharStart, r.CharEnd,
			r.StartX, r.StartY, r.EndX, r.EndY)
	}
	return b.String(), args
}
