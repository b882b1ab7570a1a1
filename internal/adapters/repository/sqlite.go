package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/stagepay/internal/domain/model"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteStore is a durable Store backed by a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and brings its
// schema up to date.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers; every check-then-write below runs
	// in a transaction on it.
	db.SetMaxOpenConns(1)

	if _, err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateCompetition(ctx context.Context, c model.Competition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := statusTx(ctx, tx, c.ID); err == nil {
		return fmt.Errorf("competition %q: %w", c.ID, ErrExists)
	} else if !isNotFound(err) {
		return err
	}

	var completedAt any
	if !c.CompletedAt.IsZero() {
		completedAt = c.CompletedAt.UTC().Format(timeLayout)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO competitions(id,name,status,prize_pool,created_at,completed_at,seq)
VALUES (?,?,?,?,?,?,(SELECT COALESCE(MAX(seq),0)+1 FROM competitions))`,
		c.ID, c.Name, string(c.Status), c.PrizePool, c.CreatedAt.UTC().Format(timeLayout), completedAt)
	if err != nil {
		return err
	}
	for i, p := range c.Roster {
		if _, err := tx.ExecContext(ctx, `INSERT INTO participants(competition_id,participant_id,position) VALUES (?,?,?)`,
			c.ID, p, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Competition(ctx context.Context, id string) (model.Competition, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Competition{}, err
	}
	defer tx.Rollback()
	return loadCompetition(ctx, tx, id)
}

func (s *SQLiteStore) ListCompetitions(ctx context.Context) ([]model.Competition, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM competitions ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := make([]model.Competition, 0, len(ids))
	for _, id := range ids {
		c, err := loadCompetition(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SQLiteStore) AddParticipant(ctx context.Context, competitionID, participantID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireActive(ctx, tx, competitionID); err != nil {
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM participants WHERE competition_id=? AND participant_id=?`,
		competitionID, participantID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("participant %q: %w", participantID, ErrDuplicateParticipant)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO participants(competition_id,participant_id,position)
VALUES (?,?,(SELECT COALESCE(MAX(position),-1)+1 FROM participants WHERE competition_id=?))`,
		competitionID, participantID, competitionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, e model.EngagementEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireActive(ctx, tx, e.CompetitionID); err != nil {
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM events WHERE competition_id=? AND event_id=?`,
		e.CompetitionID, e.EventID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("event %q: %w", e.EventID, ErrExists)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(competition_id,event_id,participant_id,kind,ts) VALUES (?,?,?,?,?)`,
		e.CompetitionID, e.EventID, e.ParticipantID, string(e.Kind), e.TS.UTC().Format(timeLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Events(ctx context.Context, competitionID string) ([]model.EngagementEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := statusTx(ctx, tx, competitionID); err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, `SELECT event_id,participant_id,kind,ts FROM events WHERE competition_id=? ORDER BY seq ASC`,
		competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EngagementEvent
	for rows.Next() {
		e := model.EngagementEvent{CompetitionID: competitionID}
		var kind, ts string
		if err := rows.Scan(&e.EventID, &e.ParticipantID, &kind, &ts); err != nil {
			return nil, err
		}
		e.Kind = model.EventKind(kind)
		if e.TS, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("event %q timestamp: %w", e.EventID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Complete(ctx context.Context, id string, winners []model.Winner, at time.Time, scored int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireActive(ctx, tx, id); err != nil {
		return err
	}
	var logged int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE competition_id=?`, id).Scan(&logged); err != nil {
		return err
	}
	if logged != scored {
		return fmt.Errorf("competition %q: scored %d of %d events: %w", id, scored, logged, ErrLogAdvanced)
	}
	for _, w := range winners {
		if _, err := tx.ExecContext(ctx, `INSERT INTO winners(competition_id,rank,participant_id,score,share,prize_exact) VALUES (?,?,?,?,?,?)`,
			id, w.Rank, w.ParticipantID, w.Score, w.Share, w.Prize.Exact); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE competitions SET status=?, completed_at=? WHERE id=?`,
		string(model.StatusCompleted), at.UTC().Format(timeLayout), id); err != nil {
		return err
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func statusTx(ctx context.Context, tx *sql.Tx, id string) (model.CompetitionStatus, error) {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM competitions WHERE id=?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("competition %q: %w", id, ErrNotFound)
	}
	return model.CompetitionStatus(status), err
}

func requireActive(ctx context.Context, tx *sql.Tx, id string) error {
	status, err := statusTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if status == model.StatusCompleted {
		return fmt.Errorf("competition %q: %w", id, ErrCompleted)
	}
	return nil
}

func loadCompetition(ctx context.Context, tx *sql.Tx, id string) (model.Competition, error) {
	var (
		c           model.Competition
		status      string
		createdAt   string
		completedAt sql.NullString
	)
	err := tx.QueryRowContext(ctx, `SELECT id,name,status,prize_pool,created_at,completed_at FROM competitions WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &status, &c.PrizePool, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return c, fmt.Errorf("competition %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return c, err
	}
	c.Status = model.CompetitionStatus(status)
	if c.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return c, fmt.Errorf("competition %q created_at: %w", id, err)
	}
	if completedAt.Valid {
		if c.CompletedAt, err = time.Parse(timeLayout, completedAt.String); err != nil {
			return c, fmt.Errorf("competition %q completed_at: %w", id, err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT participant_id FROM participants WHERE competition_id=? ORDER BY position ASC`, id)
	if err != nil {
		return c, err
	}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return c, err
		}
		c.Roster = append(c.Roster, p)
	}
	if err := rows.Close(); err != nil {
		return c, err
	}

	rows, err = tx.QueryContext(ctx, `SELECT rank,participant_id,score,share,prize_exact FROM winners WHERE competition_id=? ORDER BY rank ASC`, id)
	if err != nil {
		return c, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			w     model.Winner
			exact float64
		)
		if err := rows.Scan(&w.Rank, &w.ParticipantID, &w.Score, &w.Share, &exact); err != nil {
			return c, err
		}
		w.Prize = model.NewMoney(exact)
		c.Winners = append(c.Winners, w)
	}
	return c, rows.Err()
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
