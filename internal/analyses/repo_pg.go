package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, user_id, file_name, file_url, storage_key, file_type, mime_type,
       sentiment_label, sentiment_score, authenticity_label, authenticity_score, details, created_at`

// Create inserts a new analysis and returns it with id and created_at assigned by the database.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	const query = `
INSERT INTO analysis_results (
	user_id, file_name, file_url, storage_key, file_type, mime_type,
	sentiment_label, sentiment_score, authenticity_label, authenticity_score, details
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at`
	details, err := json.Marshal(analysis.Details)
	if err != nil {
		return Analysis{}, storageErr("marshal details", err)
	}
	err = r.DB.QueryRowContext(ctx, query,
		analysis.OwnerID,
		analysis.FileName,
		analysis.FileURL,
		analysis.StorageKey,
		analysis.FileType,
		analysis.MIMEType,
		nullString(analysis.SentimentLabel),
		nullInt(analysis.SentimentScore),
		nullString(analysis.AuthenticityLabel),
		nullInt(analysis.AuthenticityScore),
		details,
	).Scan(&analysis.ID, &analysis.CreatedAt)
	if err != nil {
		return Analysis{}, storageErr("insert analysis", err)
	}
	analysis.CreatedAt = analysis.CreatedAt.UTC()
	return analysis, nil
}

// GetByID returns an analysis by id.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Analysis, error) {
	query := `SELECT ` + selectColumns + ` FROM analysis_results WHERE id = $1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, storageErr("get analysis", err)
	}
	return a, nil
}

// ListByOwner returns the owner's analyses, newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Analysis, error) {
	query := `SELECT ` + selectColumns + `
FROM analysis_results
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, storageErr("list analyses", err)
	}
	defer rows.Close()

	out := make([]Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, storageErr("scan analysis", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list analyses", err)
	}
	return out, nil
}

// LatestByOwner returns the owner's newest analysis.
func (r *PGRepo) LatestByOwner(ctx context.Context, ownerID string) (Analysis, error) {
	query := `SELECT ` + selectColumns + `
FROM analysis_results
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, storageErr("latest analysis", err)
	}
	return a, nil
}

// Delete removes the analysis. Deleting a missing id is not an error.
func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM analysis_results WHERE id = $1`, id); err != nil {
		return storageErr("delete analysis", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var sentimentLabel, authenticityLabel sql.NullString
	var sentimentScore, authenticityScore sql.NullInt64
	var details []byte
	if err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.FileName,
		&a.FileURL,
		&a.StorageKey,
		&a.FileType,
		&a.MIMEType,
		&sentimentLabel,
		&sentimentScore,
		&authenticityLabel,
		&authenticityScore,
		&details,
		&a.CreatedAt,
	); err != nil {
		return Analysis{}, err
	}
	a.SentimentLabel = stringPtr(sentimentLabel)
	a.SentimentScore = intPtr(sentimentScore)
	a.AuthenticityLabel = stringPtr(authenticityLabel)
	a.AuthenticityScore = intPtr(authenticityScore)
	a.CreatedAt = a.CreatedAt.UTC()
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return Analysis{}, err
		}
	}
	return a, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
