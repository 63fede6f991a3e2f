package audit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const timelineColumns = `id, actor_id, actor_email, role, action, entity, entity_id, description, client_ip, occurred_at`

// PGStore writes and reads audit_traces.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a new PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Record persists the entry.
func (s *PGStore) Record(ctx context.Context, entry Entry) error {
	if s == nil || s.pool == nil {
		return errors.New("audit: store not initialised")
	}
	entry = Prepare(entry)
	if entry.Action == "" {
		return errors.New("audit: entry requires an action")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO audit_traces (`+timelineColumns+`)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
ON CONFLICT (id) DO NOTHING`,
		entry.ID, entry.ActorID, entry.ActorEmail, entry.Role, string(entry.Action),
		entry.Entity, entry.EntityID, entry.Description, entry.ClientIP, entry.At)
	return err
}

// TimelineWindow returns up to limit rows after offset, newest first.
func (s *PGStore) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	where, args := timelineWhere(filters)
	args = append(args, limit, offset)
	query := `SELECT ` + timelineColumns + ` FROM audit_traces` + where +
		` ORDER BY occurred_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// TimelineAll returns every matching row, newest first.
func (s *PGStore) TimelineAll(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	where, args := timelineWhere(filters)
	rows, err := s.pool.Query(ctx, `SELECT `+timelineColumns+` FROM audit_traces`+where+` ORDER BY occurred_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func timelineWhere(f TimelineFilters) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if !f.From.IsZero() {
		add("occurred_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		add("occurred_at < ?", f.To)
	}
	if actor := strings.TrimSpace(f.Actor); actor != "" {
		add("(actor_email = ? OR actor_id = ?)", actor)
	}
	if action := strings.TrimSpace(f.Action); action != "" {
		add("action = ?", strings.ToUpper(action))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var actorID, actorEmail, clientIP *string
		var action string
		var at time.Time
		if err := rows.Scan(&e.ID, &actorID, &actorEmail, &e.Role, &action, &e.Entity, &e.EntityID, &e.Description, &clientIP, &at); err != nil {
			return nil, err
		}
		e.ActorID = deref(actorID)
		e.ActorEmail = deref(actorEmail)
		e.ClientIP = deref(clientIP)
		e.Action = Action(action)
		e.At = at
		out = append(out, e)
	}
	return out, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
