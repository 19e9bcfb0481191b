package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/storage"
)

// ListRecords returns records of the collection matching filter
func (s *Storage) ListRecords(
	ctx context.Context,
	c *storage.Collection,
	filter storage.Filter,
	limit int,
) ([]models.Record, error) {
	where, args, err := whereClause(c, filter)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s`,
		strings.Join(c.SelectColumns(), ", "), c.Table, where, c.OrderBy)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.Table, classify(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []models.Record{}
	for rows.Next() {
		record, err := scanRecord(c, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c.Table, err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// GetRecord returns a record by id
func (s *Storage) GetRecord(ctx context.Context, c *storage.Collection, id int64) (models.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, strings.Join(c.SelectColumns(), ", "), c.Table)

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", c.Table, classify(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	return firstRecord(c, rows)
}

// GetRecordBy returns the first record whose field equals value
func (s *Storage) GetRecordBy(
	ctx context.Context,
	c *storage.Collection,
	field string,
	value any,
) (models.Record, error) {
	records, err := s.ListRecords(ctx, c, storage.Filter{field: value}, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// CreateRecord inserts a record and returns the stored row
func (s *Storage) CreateRecord(ctx context.Context, c *storage.Collection, patch models.Patch) (models.Record, error) {
	values, err := c.Normalize(patch, true)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if c.CreatedAt != "" {
		values[c.CreatedAt] = now
	}
	if c.UpdatedAt != "" {
		values[c.UpdatedAt] = now
	}

	id, err := s.insertReturningID(ctx, c.Table, values)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("create %s: %w", c.Name, storage.ErrAlreadyExists)
		}
		return nil, err
	}

	return s.GetRecord(ctx, c, id)
}

// UpdateRecord sparsely updates a record and returns the stored row
func (s *Storage) UpdateRecord(
	ctx context.Context,
	c *storage.Collection,
	id int64,
	patch models.Patch,
) (models.Record, error) {
	values, err := c.Normalize(patch, false)
	if err != nil {
		return nil, err
	}
	if c.UpdatedAt != "" {
		values[c.UpdatedAt] = s.now()
	}
	if len(values) == 0 {
		return s.GetRecord(ctx, c, id)
	}

	cols := sortedColumns(values)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, values[col])
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, c.Table, strings.Join(sets, ", "))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		err = classify(err)
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("update %s: %w", c.Name, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to update %s: %w", c.Table, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, storage.ErrNotFound
	}

	return s.GetRecord(ctx, c, id)
}

// DeleteRecord deletes a record by id
func (s *Storage) DeleteRecord(ctx context.Context, c *storage.Collection, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c.Table)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.Table, classify(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// SubscribeEmail adds the email to subscribers unless it is already there.
// An existing subscriber row is returned untouched.
func (s *Storage) SubscribeEmail(ctx context.Context, email string) (models.Record, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("subscribe: %w", storage.ErrInvalidKey)
	}

	c := storage.EmailSubscribers
	err := s.upsert(ctx, upsertPlan{
		entity:     "subscriber",
		key:        naturalKey{table: c.Table, column: "email", value: email},
		insertOnly: true,
		insert: map[string]any{
			"email":     email,
			"is_active": int64(1),
			c.CreatedAt: s.now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	return s.GetRecordBy(ctx, c, "email", email)
}

// whereClause builds an AND of equality conditions from a filter keyed by JSON field
func whereClause(c *storage.Collection, filter storage.Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	values, err := c.Normalize(models.Patch(filter), false)
	if err != nil {
		return "", nil, err
	}

	cols := sortedColumns(values)
	conds := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		if values[col] == nil {
			conds = append(conds, col+" IS NULL")
			continue
		}
		conds = append(conds, col+" = ?")
		args = append(args, values[col])
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

type recordRows interface {
	rowScanner
	Next() bool
	Err() error
}

func firstRecord(c *storage.Collection, rows recordRows) (models.Record, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows iteration error: %w", classify(err))
		}
		return nil, storage.ErrNotFound
	}
	return scanRecord(c, rows)
}

// scanRecord reads one row in SelectColumns order into a Record keyed by JSON field
func scanRecord(c *storage.Collection, row rowScanner) (models.Record, error) {
	cols := c.SelectColumns()
	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	record := make(models.Record, len(cols))
	record["id"] = raw[0]
	for i, col := range c.Columns {
		record[col.Field] = col.Decode(raw[i+1])
	}

	n := len(c.Columns) + 1
	if c.CreatedAt != "" {
		record[jsonName(c.CreatedAt)] = raw[n]
		n++
	}
	if c.UpdatedAt != "" {
		record[jsonName(c.UpdatedAt)] = raw[n]
	}

	return record, nil
}

// jsonName converts a snake_case column name to camelCase
func jsonName(column string) string {
	parts := strings.Split(column, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
