package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docsentry/docsentry/internal/db"
)

// Store persists sessions and turns. Turns append in strict arrival
// order per session; an exchange (user turn plus reply) commits in a
// single transaction.
type Store struct {
	db *db.DB
}

// NewStore creates a store over an opened database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateSession starts a new conversation for a user.
func (s *Store) CreateSession(ctx context.Context, userID string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at) VALUES (?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// GetSession loads a session by id, or nil if it does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, COALESCE(checkpoint_turn_id, '') FROM sessions WHERE id = ?`, id)

	var sess Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.Checkpoint); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return &sess, nil
}

// AppendExchange commits the turns of one conversational exchange
// atomically and advances the session checkpoint to the last turn. Either
// every turn becomes visible or none do.
func (s *Store) AppendExchange(ctx context.Context, sessionID string, turns ...*Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning commit: %w", err)
	}
	defer tx.Rollback()

	var seq int
	var lastNS sql.NullInt64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1), MAX(created_at_ns) FROM turns WHERE session_id = ?`, sessionID)
	if err := row.Scan(&seq, &lastNS); err != nil {
		return fmt.Errorf("reading turn sequence: %w", err)
	}

	now := time.Now().UnixNano()
	if lastNS.Valid && now <= lastNS.Int64 {
		now = lastNS.Int64 + 1
	}

	for i, turn := range turns {
		turn.ID = uuid.NewString()
		turn.SessionID = sessionID
		turn.Seq = seq + 1 + i
		// Strictly increasing within the session, even when the clock
		// does not move between turns.
		turn.CreatedAt = time.Unix(0, now+int64(i))

		refs, err := json.Marshal(turn.ChunkRefs)
		if err != nil {
			return fmt.Errorf("marshalling chunk refs: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO turns (id, session_id, seq, role, content, created_at_ns, chunk_refs, function_result)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			turn.ID, turn.SessionID, turn.Seq, string(turn.Role), turn.Content,
			turn.CreatedAt.UnixNano(), string(refs), turn.FunctionResult)
		if err != nil {
			return fmt.Errorf("inserting turn: %w", err)
		}
	}

	last := turns[len(turns)-1]
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET checkpoint_turn_id = ? WHERE id = ?`, last.ID, sessionID); err != nil {
		return fmt.Errorf("advancing checkpoint: %w", err)
	}

	return tx.Commit()
}

// Turns returns a session's turns in commit order.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, role, content, created_at_ns, chunk_refs, COALESCE(function_result, '')
		 FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// TurnsForUser returns every turn across all of a user's sessions,
// ordered by session then sequence.
func (s *Store) TurnsForUser(ctx context.Context, userID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.session_id, t.seq, t.role, t.content, t.created_at_ns, t.chunk_refs, COALESCE(t.function_result, '')
		 FROM turns t JOIN sessions s ON s.id = t.session_id
		 WHERE s.user_id = ? ORDER BY t.session_id, t.seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("loading turns for user %s: %w", userID, err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	var turns []Turn
	for rows.Next() {
		var t Turn
		var role, refs string
		var ns int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Seq, &role, &t.Content, &ns, &refs, &t.FunctionResult); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Role = Role(role)
		t.CreatedAt = time.Unix(0, ns)
		if err := json.Unmarshal([]byte(refs), &t.ChunkRefs); err != nil {
			return nil, fmt.Errorf("parsing chunk refs: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
