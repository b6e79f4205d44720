package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxCases    = "casedesk_cases"
	idxDisputes = "casedesk_disputes"
)

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes. The service
// stays usable when Meilisearch is down; the health loop reconfigures the
// indexes when it comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxCases,
			filterable: []string{"status"},
			searchable: []string{"parties", "forum", "particular", "remarks"},
		},
		{
			uid:        idxDisputes,
			filterable: []string{"status"},
			searchable: []string{"company", "disputeType", "noticeFrom"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: "id",
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		filterableInterface := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterableInterface[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
			log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries both indexes (or a filtered subset) and merges results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxCases, ResultCase},
		{idxDisputes, ResultDispute},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              ti.uid,
			Query:                 q.Text,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		}
		if q.FilterStatus != "" {
			sr.Filter = []string{fmt.Sprintf("status = %q", q.FilterStatus)}
		}
		queries = append(queries, sr)
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxCases:
		return ResultCase
	case idxDisputes:
		return ResultDispute
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")
	r.Status = decodeString(hit, "status")

	switch rtyp {
	case ResultCase:
		r.Title = firstNonBlank(decodeFormattedString(hit, "parties"), decodeString(hit, "parties"))
		r.Snippet = firstNonBlank(
			decodeFormattedString(hit, "particular"), decodeString(hit, "particular"),
			decodeFormattedString(hit, "forum"), decodeString(hit, "forum"),
		)
	case ResultDispute:
		r.Title = firstNonBlank(decodeFormattedString(hit, "company"), decodeString(hit, "company"))
		r.Snippet = firstNonBlank(
			decodeFormattedString(hit, "noticeFrom"), decodeString(hit, "noticeFrom"),
			decodeFormattedString(hit, "disputeType"), decodeString(hit, "disputeType"),
		)
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexCase adds or updates a case in the search index.
func (m *Meili) IndexCase(record CaseRecord) error {
	_, err := m.client.Index(idxCases).AddDocuments([]CaseRecord{record}, nil)
	return err
}

// IndexCases bulk-indexes cases.
func (m *Meili) IndexCases(records []CaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxCases).AddDocuments(records, nil)
	return err
}

// DeleteCase removes a case from the search index.
func (m *Meili) DeleteCase(id string) error {
	_, err := m.client.Index(idxCases).DeleteDocument(id, nil)
	return err
}

// IndexDispute adds or updates a dispute in the search index.
func (m *Meili) IndexDispute(record DisputeRecord) error {
	_, err := m.client.Index(idxDisputes).AddDocuments([]DisputeRecord{record}, nil)
	return err
}

// IndexDisputes bulk-indexes disputes.
func (m *Meili) IndexDisputes(records []DisputeRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxDisputes).AddDocuments(records, nil)
	return err
}

// DeleteDispute removes a dispute from the search index.
func (m *Meili) DeleteDispute(id string) error {
	_, err := m.client.Index(idxDisputes).DeleteDocument(id, nil)
	return err
}
