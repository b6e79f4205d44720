package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexCase indexes a case (fire-and-forget to Meilisearch).
func (s *Service) IndexCase(record CaseRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexCase(record); err != nil {
			log.Printf("search: index case %s: %v", record.ID, err)
		}
	}()
}

// IndexCases indexes a batch of cases (fire-and-forget to Meilisearch).
func (s *Service) IndexCases(records []CaseRecord) {
	if s.meili == nil || !s.meili.Healthy() || len(records) == 0 {
		return
	}
	go func() {
		if err := s.meili.IndexCases(records); err != nil {
			log.Printf("search: index %d cases: %v", len(records), err)
		}
	}()
}

// DeleteCase removes a case from the search index (fire-and-forget).
func (s *Service) DeleteCase(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteCase(id); err != nil {
			log.Printf("search: delete case %s: %v", id, err)
		}
	}()
}

// IndexDispute indexes a dispute (fire-and-forget to Meilisearch).
func (s *Service) IndexDispute(record DisputeRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexDispute(record); err != nil {
			log.Printf("search: index dispute %s: %v", record.ID, err)
		}
	}()
}

// DeleteDispute removes a dispute from the search index (fire-and-forget).
func (s *Service) DeleteDispute(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteDispute(id); err != nil {
			log.Printf("search: delete dispute %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into
// Meilisearch. Called during Bootstrap when Meilisearch is healthy.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	cases, disputes, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if len(cases) > 0 {
		if err := s.meili.IndexCases(cases); err != nil {
			log.Printf("search: reindex cases: %v", err)
		}
	}
	if len(disputes) > 0 {
		if err := s.meili.IndexDisputes(disputes); err != nil {
			log.Printf("search: reindex disputes: %v", err)
		}
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
