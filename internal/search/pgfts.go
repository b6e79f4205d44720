package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across litigation_cases and disputes
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultCase {
		caseWhere := "c.fts @@ " + tsQuery
		if q.FilterStatus != "" {
			caseWhere += fmt.Sprintf(" AND c.status = $%d", argN)
			args = append(args, q.FilterStatus)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'case'::text AS type, c.id::text, c.parties AS title,
				ts_headline('english', coalesce(c.particular, c.forum), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				c.status,
				ts_rank(c.fts, %s) AS rank
			FROM litigation_cases c
			WHERE %s`, tsQuery, tsQuery, caseWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultDispute {
		disputeWhere := "d.fts @@ " + tsQuery
		if q.FilterStatus != "" {
			disputeWhere += fmt.Sprintf(" AND d.status = $%d", argN)
			args = append(args, q.FilterStatus)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'dispute'::text AS type, d.id::text, d.company AS title,
				ts_headline('english', d.notice_from, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				d.status,
				ts_rank(d.fts, %s) AS rank
			FROM disputes d
			WHERE %s`, tsQuery, tsQuery, disputeWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]CaseRecord, []DisputeRecord, error) {
	caseRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, parties, forum, coalesce(particular, ''), coalesce(remarks, ''), status
		FROM litigation_cases
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load cases: %w", err)
	}
	defer caseRows.Close()

	cases := make([]CaseRecord, 0)
	for caseRows.Next() {
		var c CaseRecord
		if err := caseRows.Scan(&c.ID, &c.Parties, &c.Forum, &c.Particular, &c.Remarks, &c.Status); err != nil {
			return nil, nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := caseRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate cases: %w", err)
	}

	disputeRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, company, dispute_type, notice_from, status
		FROM disputes
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load disputes: %w", err)
	}
	defer disputeRows.Close()

	disputes := make([]DisputeRecord, 0)
	for disputeRows.Next() {
		var d DisputeRecord
		if err := disputeRows.Scan(&d.ID, &d.Company, &d.DisputeType, &d.NoticeFrom, &d.Status); err != nil {
			return nil, nil, fmt.Errorf("scan dispute: %w", err)
		}
		disputes = append(disputes, d)
	}
	if err := disputeRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate disputes: %w", err)
	}

	return cases, disputes, nil
}
