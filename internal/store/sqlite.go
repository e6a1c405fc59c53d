package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourorg/apicheck/pkg/types"
)

// ErrRunNotFound is returned when a run id has no stored row.
var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			suite TEXT NOT NULL,
			base_url TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			total INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS check_results (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			check_id TEXT NOT NULL,
			name TEXT NOT NULL,
			success INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			status INTEGER NOT NULL,
			detail TEXT NOT NULL,
			value TEXT NOT NULL,
			request TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY(run_id, seq)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores the report and its results in one transaction. A report
// without an id gets the next run_YYYYMMDD_NNN id of its start day.
func (s *SQLiteStore) SaveRun(rep *types.RunReport) (string, error) {
	if rep.StartedAt.IsZero() {
		rep.StartedAt = time.Now().UTC()
	}
	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if rep.ID == "" {
		id, err := nextRunID(tx, rep.StartedAt.UTC())
		if err != nil {
			return "", err
		}
		rep.ID = id
	}

	_, err = tx.Exec(`INSERT INTO runs(id,suite,base_url,started_at,duration_ms,passed,total) VALUES(?,?,?,?,?,?,?)`,
		rep.ID, rep.Suite, rep.BaseURL, rep.StartedAt.UTC(), rep.Duration.Milliseconds(), rep.Passed(), rep.Total())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO check_results(run_id,seq,check_id,name,success,outcome,status,detail,value,request,duration_ms) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for i, r := range rep.Results {
		if _, err := stmt.Exec(rep.ID, i+1, r.ID, r.Name, r.Success, string(r.Outcome), r.Status, r.Detail, r.Value, r.Request, r.Duration.Milliseconds()); err != nil {
			return "", fmt.Errorf("insert result %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return rep.ID, nil
}

func nextRunID(tx *sql.Tx, day time.Time) (string, error) {
	prefix := fmt.Sprintf("run_%s_", day.Format("20060102"))
	rows, err := tx.Query(`SELECT id FROM runs WHERE id LIKE ?`, prefix+"%")
	if err != nil {
		return "", err
	}
	defer rows.Close()
	maxN := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		var n int
		_, _ = fmt.Sscanf(id, prefix+"%03d", &n)
		if n > maxN {
			maxN = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, maxN+1), nil
}

func (s *SQLiteStore) GetRun(id string) (*types.RunReport, error) {
	row := s.db.QueryRow(`SELECT id,suite,base_url,started_at,duration_ms FROM runs WHERE id=?`, id)
	var out types.RunReport
	var durMs int64
	if err := row.Scan(&out.ID, &out.Suite, &out.BaseURL, &out.StartedAt, &durMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	out.Duration = time.Duration(durMs) * time.Millisecond

	rows, err := s.db.Query(`SELECT check_id,name,success,outcome,status,detail,value,request,duration_ms FROM check_results WHERE run_id=? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out.Results = make([]types.CheckResult, 0)
	for rows.Next() {
		var r types.CheckResult
		var outcome string
		var ms int64
		if err := rows.Scan(&r.ID, &r.Name, &r.Success, &outcome, &r.Status, &r.Detail, &r.Value, &r.Request, &ms); err != nil {
			return nil, err
		}
		r.Outcome = types.Outcome(outcome)
		r.Duration = time.Duration(ms) * time.Millisecond
		out.Results = append(out.Results, r)
	}
	return &out, rows.Err()
}

func (s *SQLiteStore) ListRuns() ([]types.RunSummary, error) {
	rows, err := s.db.Query(`SELECT id,suite,base_url,started_at,duration_ms,passed,total FROM runs ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.RunSummary
	for rows.Next() {
		var r types.RunSummary
		var durMs int64
		if err := rows.Scan(&r.ID, &r.Suite, &r.BaseURL, &r.StartedAt, &durMs, &r.Passed, &r.Total); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM check_results WHERE run_id=?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}
