package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zenga/cms/internal/server/storage"
)

// Upsert branches reported to the observer
const (
	branchInsert = "insert"
	branchUpdate = "update"
	branchRace   = "race"
)

// naturalKey identifies a row by a business key instead of its id
type naturalKey struct {
	value  any
	table  string
	column string
}

// upsertPlan describes one insert-if-absent-else-update write.
// update and insert map column names to driver values.
type upsertPlan struct {
	update     map[string]any
	insert     map[string]any
	entity     string
	key        naturalKey
	insertOnly bool // существующую строку не трогаем
}

// upsert looks the row up by its natural key and either updates it sparsely or inserts it.
// Lookup and insert are separate statements, so a concurrent writer may insert the same key
// in between; the unique constraint then rejects our insert and we retry as an update.
func (s *Storage) upsert(ctx context.Context, plan upsertPlan) error {
	exists, err := s.keyExists(ctx, plan.key)
	if err != nil {
		return err
	}

	if exists {
		s.observe(plan.entity, branchUpdate)
		return s.updateByKey(ctx, plan)
	}

	if s.beforeInsert != nil {
		s.beforeInsert(plan.key.table)
	}

	err = s.insertRow(ctx, plan.key.table, plan.insert)
	if err == nil {
		s.observe(plan.entity, branchInsert)
		return nil
	}
	if !errors.Is(err, storage.ErrConflict) {
		return err
	}

	// Строку успели создать параллельно - обновляем ее
	s.observe(plan.entity, branchRace)
	return s.updateByKey(ctx, plan)
}

func (s *Storage) observe(entity, branch string) {
	if s.observer != nil {
		s.observer.ObserveUpsert(entity, branch)
	}
}

// keyExists checks whether a row with the natural key is present
func (s *Storage) keyExists(ctx context.Context, key naturalKey) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE %s = ? LIMIT 1`, key.table, key.column)

	var one int
	err := s.db.QueryRowContext(ctx, query, key.value).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up %s: %w", key.table, classify(err))
	}

	return true, nil
}

// updateByKey applies the sparse update. A row that vanished between the insert conflict
// and the update means the conflict came from another unique column.
func (s *Storage) updateByKey(ctx context.Context, plan upsertPlan) error {
	if plan.insertOnly || len(plan.update) == 0 {
		return nil
	}

	cols := sortedColumns(plan.update)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, plan.update[col])
	}
	args = append(args, plan.key.value)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = ?`,
		plan.key.table, strings.Join(sets, ", "), plan.key.column)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", plan.key.table, classify(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s=%v: %w", plan.key.table, plan.key.column, plan.key.value, storage.ErrConflict)
	}

	return nil
}

// insertRow inserts values (column -> value) into table
func (s *Storage) insertRow(ctx context.Context, table string, values map[string]any) error {
	_, err := s.insertReturningID(ctx, table, values)
	return err
}

func (s *Storage) insertReturningID(ctx context.Context, table string, values map[string]any) (int64, error) {
	cols := sortedColumns(values)
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = "?"
		args[i] = values[col]
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

func sortedColumns(values map[string]any) []string {
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func cloneValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values)+4)
	for k, v := range values {
		out[k] = v
	}
	return out
}
