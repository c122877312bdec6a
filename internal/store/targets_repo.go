package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Vsjangal/httpsched/internal/core"
)

// CreateTarget inserts a new Target row, stamping created_at/updated_at.
func (s *Store) CreateTarget(ctx context.Context, t *core.Target) error {
	now := nowUTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	headers, err := encodeJSONMap(t.Headers)
	if err != nil {
		return err
	}
	body, err := encodeJSONMap(t.BodyTemplate)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO targets (id, name, url, method, headers, body_template, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.URL, t.Method, headers, body, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	return nil
}

// GetTarget fetches a Target by ID.
func (s *Store) GetTarget(ctx context.Context, id string) (*core.Target, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, url, method, headers, body_template, created_at, updated_at
		FROM targets WHERE id = ?
	`, id)
	target, err := scanTarget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	return target, nil
}

// ListTargets returns all targets ordered by most recently created.
func (s *Store) ListTargets(ctx context.Context) ([]*core.Target, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, url, method, headers, body_template, created_at, updated_at
		FROM targets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var targets []*core.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// UpdateTarget overwrites a Target's mutable fields.
func (s *Store) UpdateTarget(ctx context.Context, t *core.Target) error {
	t.UpdatedAt = nowUTC()
	headers, err := encodeJSONMap(t.Headers)
	if err != nil {
		return err
	}
	body, err := encodeJSONMap(t.BodyTemplate)
	if err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE targets SET name = ?, url = ?, method = ?, headers = ?, body_template = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, t.URL, t.Method, headers, body, formatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update target: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	return wrapNotFound(ErrTargetNotFound, rows)
}

// DeleteTarget removes a Target; ON DELETE CASCADE removes dependent
// schedules, runs, and attempts.
func (s *Store) DeleteTarget(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	return wrapNotFound(ErrTargetNotFound, rows)
}

func scanTarget(scanner interface{ Scan(dest ...any) error }) (*core.Target, error) {
	var (
		id, name, url, method string
		headers, body         sql.NullString
		createdAt, updatedAt  string
	)
	if err := scanner.Scan(&id, &name, &url, &method, &headers, &body, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan target: %w", err)
	}
	headerMap, err := decodeJSONStringMap(headers)
	if err != nil {
		return nil, err
	}
	bodyMap, err := decodeJSONAnyMap(body)
	if err != nil {
		return nil, err
	}
	return &core.Target{
		ID:           id,
		Name:         name,
		URL:          url,
		Method:       method,
		Headers:      headerMap,
		BodyTemplate: bodyMap,
		CreatedAt:    mustParseTime(createdAt),
		UpdatedAt:    mustParseTime(updatedAt),
	}, nil
}
