package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generation is one completed portrait or blog post.
type Generation struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Email     string    `json:"email,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	WordCount int       `json:"word_count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerationQuery filters history listings. Zero values match everything.
type GenerationQuery struct {
	Kind  string
	Email string
	Since time.Time
	Limit int
}

func (q GenerationQuery) whereClause() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if kind := strings.TrimSpace(q.Kind); kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, kind)
	}
	if email := strings.TrimSpace(q.Email); email != "" {
		clauses = append(clauses, "email = ?")
		args = append(args, strings.ToLower(email))
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, q.Since.Unix())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// RecordGeneration inserts g, filling ID and CreatedAt when unset.
func (s *Store) RecordGeneration(ctx context.Context, g Generation) (Generation, error) {
	if s == nil || s.DB == nil {
		return Generation{}, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(g.Kind) == "" {
		return Generation{}, errors.New("generation kind is required")
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO generations (id, kind, email, subject, image_url, word_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.Kind, nullString(g.Email), nullString(g.Subject), nullString(g.ImageURL), g.WordCount, g.CreatedAt.Unix())
	if err != nil {
		return Generation{}, fmt.Errorf("record generation: %w", err)
	}
	return g, nil
}

// ListGenerations returns matching rows, newest first.
func (s *Store) ListGenerations(ctx context.Context, q GenerationQuery) ([]Generation, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := q.whereClause()
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, kind, email, subject, image_url, word_count, created_at
		FROM generations
		%s
		ORDER BY created_at DESC, id
		LIMIT ?
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	result := []Generation{}
	for rows.Next() {
		var (
			g         Generation
			email     sql.NullString
			subject   sql.NullString
			imageURL  sql.NullString
			wordCount sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(&g.ID, &g.Kind, &email, &subject, &imageURL, &wordCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan generations: %w", err)
		}
		g.Email = email.String
		g.Subject = subject.String
		g.ImageURL = imageURL.String
		g.WordCount = int(wordCount.Int64)
		g.CreatedAt = time.Unix(createdAt, 0).UTC()
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return result, nil
}

// CountGenerations counts rows matching q (Limit is ignored).
func (s *Store) CountGenerations(ctx context.Context, q GenerationQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := q.whereClause()
	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM generations %s`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return count, nil
}

// PruneGenerations deletes rows created before cutoff.
func (s *Store) PruneGenerations(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM generations WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune generations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune generations: %w", err)
	}
	return affected, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Recorder is the write side of the history store.
type Recorder interface {
	RecordGeneration(ctx context.Context, g Generation) (Generation, error)
}
