package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/records"
)

// Query returns rows of table matching predicate, ordered by partition and
// row key.
func (s *Store) Query(ctx context.Context, table, predicate string) ([]records.Row, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(table) == "" {
		return nil, records.ErrTableRequired
	}
	cond, err := ParsePredicate(predicate)
	if err != nil {
		return nil, err
	}

	query := `SELECT partition_key, row_key, name, skills, location, availability
		FROM records WHERE table_name = ?`
	args := []any{table}
	if cond.Clause != "" {
		query += " AND " + cond.Clause
		args = append(args, cond.Params...)
	}
	query += " ORDER BY partition_key, row_key"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var result []records.Row
	for rows.Next() {
		var row records.Row
		var availability sql.NullInt64
		if err := rows.Scan(&row.PartitionKey, &row.ID, &row.Name, &row.Skills, &row.Location, &availability); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if availability.Valid {
			row.Availability = domain.AvailabilityOf(availability.Int64 != 0)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return result, nil
}

// PutRecord inserts or replaces one row. An empty partition key is stored
// as records.DefaultPartitionKey.
func (s *Store) PutRecord(ctx context.Context, table string, row records.Row) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if strings.TrimSpace(table) == "" {
		return records.ErrTableRequired
	}
	if strings.TrimSpace(row.ID) == "" {
		return fmt.Errorf("record row key is required")
	}
	if row.PartitionKey == "" {
		row.PartitionKey = records.DefaultPartitionKey
	}
	var availability sql.NullInt64
	if value, ok := row.Availability.Bool(); ok {
		availability = sql.NullInt64{Int64: boolParam(value), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO records (table_name, partition_key, row_key, name, skills, location, availability, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(table_name, partition_key, row_key) DO UPDATE SET
			name = excluded.name,
			skills = excluded.skills,
			location = excluded.location,
			availability = excluded.availability,
			updated_at = excluded.updated_at`,
		table, row.PartitionKey, row.ID, row.Name, row.Skills, row.Location, availability, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("put record %s: %w", row.ID, err)
	}
	return nil
}

// DeleteTable removes every row of table.
func (s *Store) DeleteTable(ctx context.Context, table string) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM records WHERE table_name = ?`, table)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return result.RowsAffected()
}
