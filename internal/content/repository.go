package content

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"hexmap-server/internal/shared/database"
	"hexmap-server/internal/shared/errors"
)

type Repository struct {
	db        *database.DB
	logger    *slog.Logger
	batchSize int
}

func NewRepository(db *database.DB, logger *slog.Logger, batchSize int) *Repository {
	logger.Debug("Initializing content repository")

	if batchSize < 1 {
		batchSize = 100
	}

	return &Repository{
		db:        db,
		logger:    logger,
		batchSize: batchSize,
	}
}

func (r *Repository) getExecutor(tx *database.Tx) database.Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

const baseItemColumns = "id, title, content, preview, link, origin_id, created_at, updated_at"

func scanBaseItem(scanner interface{ Scan(dest ...any) error }) (BaseItem, error) {
	var item BaseItem
	err := scanner.Scan(
		&item.ID,
		&item.Title,
		&item.Content,
		&item.Preview,
		&item.Link,
		&item.OriginID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

// Create inserts one BaseItem together with its first version
func (r *Repository) Create(ctx context.Context, attrs Attributes, updatedBy *string, tx *database.Tx) (*BaseItem, error) {
	items, err := r.CreateBatch(ctx, []Attributes{attrs}, updatedBy, tx)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// CreateBatch inserts BaseItems in chunks of the configured batch size and
// writes version 1 of each. The result is in the same order as attrs.
func (r *Repository) CreateBatch(ctx context.Context, attrs []Attributes, updatedBy *string, tx *database.Tx) ([]BaseItem, error) {
	if len(attrs) == 0 {
		return []BaseItem{}, nil
	}

	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "content_repository",
		"operation", "create_batch",
		"count", len(attrs),
		"batch_size", r.batchSize,
	)
	logger.Debug("Creating content in batch")

	now := time.Now().UTC()
	created := make([]BaseItem, 0, len(attrs))

	for _, window := range database.Chunk(len(attrs), r.batchSize) {
		chunk := attrs[window[0]:window[1]]

		args := database.NewArgs(exec.Driver())
		values := make([]string, len(chunk))
		for i, a := range chunk {
			values[i] = "(" + args.List(a.Title, a.Content, a.Preview, a.Link, a.OriginID, now, now) + ")"
		}

		query := `
			INSERT INTO base_items (title, content, preview, link, origin_id, created_at, updated_at)
			VALUES ` + strings.Join(values, ", ") + `
			RETURNING id`

		rows, err := exec.QueryContext(ctx, query, args.Values()...)
		if err != nil {
			logger.Error("Failed to batch create content", "error", err)
			return nil, fmt.Errorf("failed to batch create content: %w", err)
		}

		ids, err := scanIDs(rows, logger)
		if err != nil {
			return nil, err
		}
		if len(ids) != len(chunk) {
			return nil, fmt.Errorf("content batch returned %d ids for %d rows", len(ids), len(chunk))
		}
		// ids are assigned in VALUES order; RETURNING order is not guaranteed
		slices.Sort(ids)

		chunkItems := make([]BaseItem, len(chunk))
		for i, a := range chunk {
			chunkItems[i] = BaseItem{
				ID:        ids[i],
				Title:     a.Title,
				Content:   a.Content,
				Preview:   a.Preview,
				Link:      a.Link,
				OriginID:  a.OriginID,
				CreatedAt: now,
				UpdatedAt: now,
			}
		}

		if err := r.insertVersions(ctx, exec, chunkItems, 1, updatedBy, now); err != nil {
			logger.Error("Failed to write initial versions", "error", err)
			return nil, err
		}

		created = append(created, chunkItems...)
	}

	logger.Debug("Content batch created successfully", "count", len(created))
	return created, nil
}

// insertVersions writes one snapshot per item with the same version number
func (r *Repository) insertVersions(ctx context.Context, exec database.Executor, items []BaseItem, versionNumber int, updatedBy *string, at time.Time) error {
	args := database.NewArgs(exec.Driver())
	values := make([]string, len(items))
	for i, item := range items {
		values[i] = "(" + args.List(item.ID, versionNumber, item.Title, item.Content, item.Preview, item.Link, at, updatedBy) + ")"
	}

	query := `
		INSERT INTO base_item_versions (base_item_id, version_number, title, content, preview, link, created_at, updated_by)
		VALUES ` + strings.Join(values, ", ")

	if _, err := exec.ExecContext(ctx, query, args.Values()...); err != nil {
		return fmt.Errorf("failed to insert content versions: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int, tx *database.Tx) (*BaseItem, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "content_repository", "operation", "get_by_id", "content_id", id)

	args := database.NewArgs(exec.Driver())
	query := "SELECT " + baseItemColumns + " FROM base_items WHERE id = " + args.Add(id)

	item, err := scanBaseItem(exec.QueryRowContext(ctx, query, args.Values()...))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Content not found")
			return nil, nil
		}
		logger.Error("Database error getting content", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &item, nil
}

// Update snapshots the current values as the next version, then applies the patch
func (r *Repository) Update(ctx context.Context, id int, patch Patch, updatedBy *string, tx *database.Tx) (*BaseItem, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "content_repository", "operation", "update", "content_id", id)

	current, err := r.GetByID(ctx, id, tx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.NotFoundf("content %d not found", id)
	}

	if patch.IsEmpty() {
		logger.Debug("Empty content patch, nothing to update")
		return current, nil
	}

	args := database.NewArgs(exec.Driver())
	var latest int
	err = exec.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version_number), 0) FROM base_item_versions WHERE base_item_id = "+args.Add(id),
		args.Values()...,
	).Scan(&latest)
	if err != nil {
		logger.Error("Failed to read latest version", "error", err)
		return nil, fmt.Errorf("failed to read latest version: %w", err)
	}

	now := time.Now().UTC()
	if err := r.insertVersions(ctx, exec, []BaseItem{*current}, latest+1, updatedBy, now); err != nil {
		logger.Error("Failed to snapshot content", "error", err)
		return nil, err
	}

	updated := current.apply(patch)
	updated.UpdatedAt = now

	args = database.NewArgs(exec.Driver())
	query := `UPDATE base_items SET title = ` + args.Add(updated.Title) +
		`, content = ` + args.Add(updated.Content) +
		`, preview = ` + args.Add(updated.Preview) +
		`, link = ` + args.Add(updated.Link) +
		`, updated_at = ` + args.Add(now) +
		` WHERE id = ` + args.Add(id)

	if _, err := exec.ExecContext(ctx, query, args.Values()...); err != nil {
		logger.Error("Failed to update content", "error", err)
		return nil, fmt.Errorf("failed to update content: %w", err)
	}

	logger.Debug("Content updated", "version_snapshot", latest+1)
	return &updated, nil
}

// ListVersions returns the history of a BaseItem, newest first
func (r *Repository) ListVersions(ctx context.Context, id int, tx *database.Tx) ([]Version, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "content_repository", "operation", "list_versions", "content_id", id)

	args := database.NewArgs(exec.Driver())
	query := `
		SELECT id, base_item_id, version_number, title, content, preview, link, created_at, updated_by
		FROM base_item_versions
		WHERE base_item_id = ` + args.Add(id) + `
		ORDER BY version_number DESC`

	rows, err := exec.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		logger.Error("Failed to query versions", "error", err)
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var versions []Version
	for rows.Next() {
		var v Version
		err := rows.Scan(
			&v.ID,
			&v.BaseItemID,
			&v.VersionNumber,
			&v.Title,
			&v.Content,
			&v.Preview,
			&v.Link,
			&v.CreatedAt,
			&v.UpdatedBy,
		)
		if err != nil {
			logger.Error("Failed to scan version row", "error", err)
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	return versions, nil
}

func scanIDs(rows *sql.Rows, logger *slog.Logger) ([]int, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			logger.Error("Failed to scan id", "error", err)
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return ids, nil
}
