package db

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TransactionStats summarises the captured traffic for the /api/stats
// endpoint. Lengths are transaction byte counts.
type TransactionStats struct {
	Count        int64   `json:"count"`
	TotalBytes   int64   `json:"total_bytes"`
	MeanLength   float64 `json:"mean_length"`
	MedianLength float64 `json:"median_length"`
	P95Length    float64 `json:"p95_length"`
}

// Stats computes capture statistics across all sessions. An empty database
// yields the zero value.
func (db *DB) Stats() (TransactionStats, error) {
	rows, err := db.Query(`SELECT byte_count FROM transactions`)
	if err != nil {
		return TransactionStats{}, err
	}
	defer rows.Close()

	var lengths []float64
	var total int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return TransactionStats{}, err
		}
		lengths = append(lengths, float64(n))
		total += n
	}
	if err := rows.Err(); err != nil {
		return TransactionStats{}, err
	}

	if len(lengths) == 0 {
		return TransactionStats{}, nil
	}

	// stat.Quantile requires sorted input
	sort.Float64s(lengths)

	return TransactionStats{
		Count:        int64(len(lengths)),
		TotalBytes:   total,
		MeanLength:   stat.Mean(lengths, nil),
		MedianLength: stat.Quantile(0.5, stat.Empirical, lengths, nil),
		P95Length:    stat.Quantile(0.95, stat.Empirical, lengths, nil),
	}, nil
}
