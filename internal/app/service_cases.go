package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"

	"casedesk/api/internal/audit"
	"casedesk/api/internal/export"
	"casedesk/api/internal/ingest"
	"casedesk/api/internal/localstore"
	"casedesk/api/internal/notify"
	"casedesk/api/internal/rbac"
	"casedesk/api/internal/search"
	"casedesk/api/internal/store"
	"casedesk/api/internal/util"
)

const (
	destinationRemote = "remote"
	destinationLocal  = "local"
)

// CaseList is the register view: shared records merged with the caller's
// device-local fallback records, newest first.
type CaseList struct {
	Cases    []store.Case `json:"cases"`
	Warnings []string     `json:"warnings,omitempty"`
}

// ImportResult is the structured outcome of a bulk upload.
type ImportResult struct {
	Inserted       int      `json:"inserted"`
	Skipped        int      `json:"skipped"`
	AmountsDropped int      `json:"amountsDropped"`
	Destination    string   `json:"destination"`
	CaseIDs        []string `json:"caseIds"`
	Warnings       []string `json:"warnings,omitempty"`
}

// ListCases returns the merged case register. When the shared database is
// unreachable the caller's local records are still served, with a warning
// attached; with nothing local to show the outage surfaces as an error.
func (s *Service) ListCases(ctx context.Context, session Session) (*CaseList, error) {
	local, err := s.local.List(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("list local cases: %w", err)
	}

	remote, err := s.store.ListCases(ctx)
	if err != nil {
		if len(local) == 0 {
			return nil, fmt.Errorf("list cases: %w", err)
		}
		log.Printf("cases: remote list failed, serving local records only: %v", err)
		return &CaseList{
			Cases:    local,
			Warnings: []string{"Shared database unavailable; showing locally saved cases only"},
		}, nil
	}

	list := &CaseList{Cases: append(append([]store.Case{}, remote...), local...)}
	sort.SliceStable(list.Cases, func(i, j int) bool {
		return list.Cases[i].CreatedAt.After(list.Cases[j].CreatedAt)
	})
	return list, nil
}

// ImportCases runs the bulk upload: parse and clean the file, then persist
// the batch. A database permission denial is not a failure; the batch lands
// in the caller's device-local store instead and the result says so.
func (s *Service) ImportCases(ctx context.Context, session Session, filename string, data []byte) (*ImportResult, error) {
	ok, err := s.allowed(ctx, session, rbac.PermUploadLitigation)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to upload litigation cases", nil)
	}

	parsed, err := ingest.Parse(filename, data)
	if err != nil {
		if isIngestRejection(err) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		}
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	var archiveObject string
	if s.archive != nil {
		archiveObject, err = s.archive.StoreImport(ctx, session.UserID, filename, data)
		if err != nil {
			log.Printf("import: archive upload failed: %v", err)
			archiveObject = ""
		}
	}

	result := &ImportResult{
		Skipped:        parsed.Skipped,
		AmountsDropped: parsed.AmountsDropped,
		Destination:    destinationRemote,
	}

	ids := make([]string, len(parsed.Cases))
	for i := range ids {
		ids[i] = util.NewID("case")
	}

	inserted, err := s.store.BulkInsertCases(ctx, session.UserID, parsed.Cases, ids)
	if err != nil {
		if !store.IsPermissionDenied(err) {
			return nil, fmt.Errorf("insert cases: %w", err)
		}
		inserted, err = s.local.Add(session.UserID, parsed.Cases)
		if err != nil {
			return nil, fmt.Errorf("save cases locally: %w", err)
		}
		result.Destination = destinationLocal
		result.Warnings = append(result.Warnings, "You do not have permission to write to the shared database; cases were saved on this device instead")
	}

	result.Inserted = len(inserted)
	for _, c := range inserted {
		result.CaseIDs = append(result.CaseIDs, c.ID)
	}
	if result.Skipped > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d rows were skipped for missing parties or forum", result.Skipped))
	}
	if result.AmountsDropped > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d amounts were out of range and left blank", result.AmountsDropped))
	}

	s.recordImportAudit(session, filename, archiveObject, result)
	if result.Destination == destinationRemote {
		s.indexCases(inserted)
	}
	s.notifier.Publish(ctx, notify.Event{Kind: "cases", UserID: session.UserID})

	return result, nil
}

// DeleteCase removes a case. Local-prefixed ids route to the device store;
// everything else goes to the shared database.
func (s *Service) DeleteCase(ctx context.Context, session Session, caseID string) error {
	ok, err := s.allowed(ctx, session, rbac.PermDeleteDispute)
	if err != nil {
		return err
	}
	if !ok {
		return domainError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to delete litigation cases", nil)
	}

	if localstore.IsLocalID(caseID) {
		removed, err := s.local.Remove(session.UserID, caseID)
		if err != nil {
			return fmt.Errorf("remove local case: %w", err)
		}
		if !removed {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Case not found", nil)
		}
	} else {
		if err := s.store.DeleteCase(ctx, session.UserID, caseID); err != nil {
			if store.IsPermissionDenied(err) {
				return domainError(http.StatusForbidden, "PERMISSION_DENIED", "The database rejected the deletion", nil)
			}
			if errors.Is(err, sql.ErrNoRows) {
				return domainError(http.StatusNotFound, "NOT_FOUND", "Case not found", nil)
			}
			return fmt.Errorf("delete case: %w", err)
		}
		if s.search != nil {
			s.search.DeleteCase(caseID)
		}
	}

	if s.audit != nil {
		if _, err := s.audit.RecordDeletion(session.UserID, session.UserName, caseID); err != nil {
			log.Printf("audit: record deletion: %v", err)
		}
	}
	s.notifier.Publish(ctx, notify.Event{Kind: "cases", UserID: session.UserID})
	return nil
}

// ExportCases renders the merged register in the requested format.
func (s *Service) ExportCases(ctx context.Context, session Session, format export.Format) (*export.Result, error) {
	ok, err := s.allowed(ctx, session, rbac.PermExportReports)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to export reports", nil)
	}

	list, err := s.ListCases(ctx, session)
	if err != nil {
		return nil, err
	}

	result, err := s.export.Export(list.Cases, format)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'csv', 'xlsx' or 'pdf'", nil)
		}
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF rendering is not available on this server", nil)
		}
		return nil, fmt.Errorf("export cases: %w", err)
	}
	return result, nil
}

// SearchCases runs a full-text search over cases and disputes.
func (s *Service) SearchCases(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// AuditHistory returns the caller's recent import and deletion trail.
func (s *Service) AuditHistory(session Session, limit int) ([]audit.CommitInfo, error) {
	if s.audit == nil {
		return []audit.CommitInfo{}, nil
	}
	history, err := s.audit.History(session.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("load audit history: %w", err)
	}
	return history, nil
}

func (s *Service) recordImportAudit(session Session, filename, archiveObject string, result *ImportResult) {
	if s.audit == nil {
		return
	}
	_, err := s.audit.RecordImport(session.UserID, session.UserName, audit.Entry{
		Filename:       filename,
		ArchiveObject:  archiveObject,
		CaseIDs:        result.CaseIDs,
		Inserted:       result.Inserted,
		Skipped:        result.Skipped,
		AmountsDropped: result.AmountsDropped,
		Destination:    result.Destination,
	})
	if err != nil {
		log.Printf("audit: record import: %v", err)
	}
}

func (s *Service) indexCases(cases []store.Case) {
	if s.search == nil || len(cases) == 0 {
		return
	}
	records := make([]search.CaseRecord, 0, len(cases))
	for _, c := range cases {
		records = append(records, search.CaseRecord{
			ID:         c.ID,
			Parties:    c.Parties,
			Forum:      c.Forum,
			Particular: deref(c.Particular),
			Remarks:    deref(c.Remarks),
			Status:     c.Status,
		})
	}
	s.search.IndexCases(records)
}

func isIngestRejection(err error) bool {
	return errors.Is(err, ingest.ErrUnsupportedFileType) ||
		errors.Is(err, ingest.ErrFileTooLarge) ||
		errors.Is(err, ingest.ErrTooManyRows) ||
		errors.Is(err, ingest.ErrNoData) ||
		errors.Is(err, ingest.ErrNoValidRows)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
