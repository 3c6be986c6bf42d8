// Package tablesource fetches remote tables from the hosted PostgreSQL
// store into the in-memory dataset model. The source is optional: when it
// is not configured, or a requested table does not exist, the feature
// degrades to an empty table instead of failing the conversation.
package tablesource

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/log"
)

// undefinedTableCode is the PostgreSQL error code for a missing relation.
const undefinedTableCode = "42P01"

// maxFetchRows bounds a single fetch so a huge remote table cannot
// exhaust memory.
const maxFetchRows = 100_000

// Source reads tables from PostgreSQL.
type Source struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, connString string, logger log.Logger) (*Source, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Source{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Source) Close() {
	s.pool.Close()
}

// Fetch reads the named table. A missing table logs a warning and returns
// an empty table, not an error; only infrastructure failures propagate.
func (s *Source) Fetch(ctx context.Context, table string) (*dataset.Table, error) {
	// Identifier sanitization; table names come from user commands.
	query := "SELECT * FROM " + pgx.Identifier{table}.Sanitize() +
		" LIMIT " + strconv.Itoa(maxFetchRows)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
			s.logger.Warn("remote table does not exist", "table", table)
			return dataset.NewTable(nil, nil), nil
		}
		return nil, fmt.Errorf("querying table %s: %w", table, err)
	}
	defer rows.Close()

	header := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		header = append(header, fd.Name)
	}

	var data [][]string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row from %s: %w", table, err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatValue(v)
		}
		data = append(data, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating table %s: %w", table, err)
	}

	if len(data) == 0 {
		s.logger.Warn("remote table is empty", "table", table)
	} else {
		s.logger.Debug("fetched remote table", "table", table, "rows", len(data))
	}
	return dataset.NewTable(header, data), nil
}

// formatValue renders a scanned database value as a cell string. NULL
// becomes the empty string, matching how the profiler counts missing data.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case pgtype.Numeric:
		return formatNumeric(val)
	default:
		return fmt.Sprint(val)
	}
}

// formatNumeric renders a pgtype.Numeric without scientific notation.
func formatNumeric(n pgtype.Numeric) string {
	if !n.Valid || n.Int == nil {
		return ""
	}
	if n.Exp == 0 {
		return n.Int.String()
	}
	f := new(big.Float).SetInt(n.Int)
	f.Mul(f, new(big.Float).SetFloat64(pow10(n.Exp)))
	return f.Text('f', -1)
}

func pow10(exp int32) float64 {
	result := 1.0
	for i := int32(0); i < exp; i++ {
		result *= 10
	}
	for i := exp; i < 0; i++ {
		result /= 10
	}
	return result
}
