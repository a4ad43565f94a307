package database

import "context"

// QueryInt64 runs a single-value query and scans the result as an integer.
func QueryInt64(ctx context.Context, q Querier, sql string) (int64, error) {
	var n int64
	if err := q.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// QueryNullFloat runs a single-value query whose result may be NULL.
func QueryNullFloat(ctx context.Context, q Querier, sql string) (*float64, error) {
	var f *float64
	if err := q.QueryRow(ctx, sql).Scan(&f); err != nil {
		return nil, err
	}
	return f, nil
}

// QueryStrings reads a single text column from every row.
// QueryStrings always closes the Rows.
func QueryStrings(ctx context.Context, q Querier, sql string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var s *string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, *s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
