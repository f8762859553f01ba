package storage

import (
	"context"
	"fmt"
)

// ChartField names an evaluation field that can be charted.
type ChartField string

// Chartable evaluation fields and their low-to-high display order.
const (
	ChartFairness    ChartField = "fairness"
	ChartHeadlineGap ChartField = "headline_article"
)

// ChartRow is one aggregated count: metric value, grouping key, count.
type ChartRow struct {
	Metric string
	Key    string
	Count  int
}

// KeyCount is one grouped count inside a chart bucket.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ChartGroup is one metric bucket with its per-key counts.
type ChartGroup struct {
	X string     `json:"x"`
	Y []KeyCount `json:"y"`
}

// EvaluationCounts aggregates evaluator-level answers for field across all
// persisted rows, grouped either by evaluator model or by publication.
func (s *Storage) EvaluationCounts(ctx context.Context, field ChartField, byPublication bool) ([]ChartRow, error) {
	if field != ChartFairness && field != ChartHeadlineGap {
		return nil, fmt.Errorf("unsupported chart field %q", field)
	}

	keyExpr := "ev->>'model'"
	if byPublication {
		keyExpr = "results.publication"
	}
	metricExpr := fmt.Sprintf("ev->'article'->>'%s'", field)

	query := fmt.Sprintf(`
		SELECT %[1]s AS metric, %[2]s AS key, COUNT(*) AS count
		FROM results, jsonb_array_elements(result->'evaluations') AS ev
		WHERE %[1]s IS NOT NULL
		GROUP BY %[1]s, %[2]s
		ORDER BY
			CASE %[1]s
				WHEN 'Low' THEN 1 WHEN 'Small' THEN 1
				WHEN 'Medium' THEN 2
				WHEN 'High' THEN 3 WHEN 'Large' THEN 3
				ELSE 99
			END,
			%[2]s
	`, metricExpr, keyExpr)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query chart counts: %w", err)
	}
	defer rows.Close()

	var out []ChartRow
	for rows.Next() {
		var r ChartRow
		if err := rows.Scan(&r.Metric, &r.Key, &r.Count); err != nil {
			return nil, fmt.Errorf("scan chart row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chart rows: %w", err)
	}
	return out, nil
}

// TransformChart groups flat rows into the frontend's bucket shape,
// preserving row order within and across buckets.
func TransformChart(rows []ChartRow) []ChartGroup {
	if len(rows) == 0 {
		return []ChartGroup{}
	}

	index := map[string]int{}
	var groups []ChartGroup
	for _, r := range rows {
		i, ok := index[r.Metric]
		if !ok {
			i = len(groups)
			index[r.Metric] = i
			groups = append(groups, ChartGroup{X: r.Metric, Y: []KeyCount{}})
		}
		groups[i].Y = append(groups[i].Y, KeyCount{Key: r.Key, Count: r.Count})
	}
	return groups
}
