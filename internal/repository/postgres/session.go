package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
)

type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `id, scenario, participants, n_steps, steps, status, agreement, utilities,
		welfare, nash, pareto_distance, error_details, duration_ms, created_at`

var eventColumns = []string{"session_id", "seq", "step", "negotiator", "action", "outcome", "relative_time", "at"}

func (r *SessionRepo) Save(ctx context.Context, rec *domain.SessionRecord, trace []domain.TraceEntry) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = tx.Exec(ctx, query,
		rec.ID,
		rec.Scenario,
		rec.Participants,
		rec.NSteps,
		rec.Steps,
		rec.Status.String(),
		nullOutcome(rec.Agreement),
		nonNilFloats(rec.Utilities),
		rec.Welfare,
		rec.Nash,
		rec.ParetoDistance,
		nullString(rec.ErrorDetails),
		rec.Duration.Milliseconds(),
		rec.CreatedAt,
	)
	if err != nil {
		if isDuplicateError(err) {
			return domain.ErrDuplicateSession
		}
		return fmt.Errorf("insert session: %w", err)
	}

	if len(trace) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"session_events"}, eventColumns,
			pgx.CopyFromSlice(len(trace), func(i int) ([]any, error) {
				e := trace[i]
				return []any{rec.ID, i, e.Step, e.Negotiator, string(e.Action), nullOutcome(e.Outcome), e.RelativeTime, e.At}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy session events: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.SessionRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	rec, err := scanSession(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	return rec, nil
}

func (r *SessionRepo) ListRecent(ctx context.Context, limit int) ([]domain.SessionRecord, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		ORDER BY created_at DESC, id
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *SessionRepo) ListByScenario(ctx context.Context, scenario string, limit int) ([]domain.SessionRecord, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE scenario = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, scenario, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("list sessions by scenario: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *SessionRepo) Trace(ctx context.Context, sessionID string) ([]domain.TraceEntry, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, sessionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	query := `
		SELECT step, negotiator, action, outcome, relative_time, at
		FROM session_events
		WHERE session_id = $1
		ORDER BY seq
	`

	rows, err := r.db.Pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session trace: %w", err)
	}
	defer rows.Close()

	var trace []domain.TraceEntry
	for rows.Next() {
		var e domain.TraceEntry
		var action string
		var outcome []string
		if err := rows.Scan(&e.Step, &e.Negotiator, &action, &outcome, &e.RelativeTime, &e.At); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		e.Action = domain.TraceAction(action)
		if outcome != nil {
			e.Outcome = domain.Outcome(outcome)
		}
		trace = append(trace, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return trace, nil
}

func (r *SessionRepo) CountByStatus(ctx context.Context) (map[domain.SessionStatus]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.SessionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.SessionStatus(status)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return counts, nil
}

func scanSession(row pgx.Row) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	var status string
	var agreement []string
	var errorDetails *string
	var durationMS int64
	err := row.Scan(
		&rec.ID,
		&rec.Scenario,
		&rec.Participants,
		&rec.NSteps,
		&rec.Steps,
		&status,
		&agreement,
		&rec.Utilities,
		&rec.Welfare,
		&rec.Nash,
		&rec.ParetoDistance,
		&errorDetails,
		&durationMS,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.SessionStatus(status)
	if agreement != nil {
		rec.Agreement = domain.Outcome(agreement)
	}
	if errorDetails != nil {
		rec.ErrorDetails = *errorDetails
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}

func scanSessions(rows pgx.Rows) ([]domain.SessionRecord, error) {
	var sessions []domain.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sessions, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullOutcome - NULL в колонке, если исхода нет
func nullOutcome(o domain.Outcome) []string {
	if o == nil {
		return nil
	}
	return []string(o)
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}

// limitOrAll - LIMIT NULL в postgres значит без ограничения
func limitOrAll(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

// isDuplicateError checks if the error is a PostgreSQL unique constraint violation
func isDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
