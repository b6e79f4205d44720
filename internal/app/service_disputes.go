package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"casedesk/api/internal/notify"
	"casedesk/api/internal/rbac"
	"casedesk/api/internal/search"
	"casedesk/api/internal/store"
	"casedesk/api/internal/util"
)

// Dispute workflow states, in order of progression.
var disputeStatuses = map[string]struct{}{
	"Pending":       {},
	"Under Review":  {},
	"Response Sent": {},
	"Closed":        {},
}

const defaultDisputeStatus = "Pending"

// DisputeInput carries the fields a caller supplies when logging a dispute.
type DisputeInput struct {
	Company         string  `json:"company"`
	DisputeType     string  `json:"disputeType"`
	NoticeFrom      string  `json:"noticeFrom"`
	Value           float64 `json:"value"`
	ReplyDueDate    *string `json:"replyDueDate"`
	ResponsibleUser string  `json:"responsibleUser"`
	Status          string  `json:"status"`
}

// ListDisputes returns all pre-litigation disputes, newest first.
func (s *Service) ListDisputes(ctx context.Context) ([]store.Dispute, error) {
	items, err := s.store.ListDisputes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	if items == nil {
		items = []store.Dispute{}
	}
	return items, nil
}

// CreateDispute validates and records a new dispute.
func (s *Service) CreateDispute(ctx context.Context, session Session, input DisputeInput) (*store.Dispute, error) {
	ok, err := s.allowed(ctx, session, rbac.PermAddDispute)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to add disputes", nil)
	}

	company := strings.TrimSpace(input.Company)
	disputeType := strings.TrimSpace(input.DisputeType)
	noticeFrom := strings.TrimSpace(input.NoticeFrom)
	if company == "" || disputeType == "" || noticeFrom == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "company, disputeType, and noticeFrom are required", nil)
	}
	if input.Value < 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "value must not be negative", nil)
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = defaultDisputeStatus
	}
	if _, valid := disputeStatuses[status]; !valid {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be one of Pending, Under Review, Response Sent, Closed", nil)
	}

	item := store.Dispute{
		ID:              util.NewID("dsp"),
		UserID:          session.UserID,
		Company:         company,
		DisputeType:     disputeType,
		NoticeFrom:      noticeFrom,
		Value:           input.Value,
		ReplyDueDate:    input.ReplyDueDate,
		ResponsibleUser: strings.TrimSpace(input.ResponsibleUser),
		Status:          status,
	}

	if err := s.store.CreateDispute(ctx, item); err != nil {
		if store.IsPermissionDenied(err) {
			return nil, domainError(http.StatusForbidden, "PERMISSION_DENIED", "The database rejected the dispute", nil)
		}
		return nil, fmt.Errorf("create dispute: %w", err)
	}

	s.indexDispute(item)
	s.notifier.Publish(ctx, notify.Event{Kind: "disputes", UserID: session.UserID})
	return &item, nil
}

// UpdateDisputeStatus moves a dispute to a new workflow state.
func (s *Service) UpdateDisputeStatus(ctx context.Context, session Session, disputeID, status string) error {
	ok, err := s.allowed(ctx, session, rbac.PermAddDispute)
	if err != nil {
		return err
	}
	if !ok {
		return domainError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to update disputes", nil)
	}

	status = strings.TrimSpace(status)
	if _, valid := disputeStatuses[status]; !valid {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be one of Pending, Under Review, Response Sent, Closed", nil)
	}

	if err := s.store.UpdateDisputeStatus(ctx, disputeID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Dispute not found", nil)
		}
		if store.IsPermissionDenied(err) {
			return domainError(http.StatusForbidden, "PERMISSION_DENIED", "The database rejected the update", nil)
		}
		return fmt.Errorf("update dispute status: %w", err)
	}

	s.reindexDispute(ctx, disputeID)
	s.notifier.Publish(ctx, notify.Event{Kind: "disputes", UserID: session.UserID})
	return nil
}

// DeleteDispute removes a dispute record.
func (s *Service) DeleteDispute(ctx context.Context, session Session, disputeID string) error {
	ok, err := s.allowed(ctx, session, rbac.PermDeleteDispute)
	if err != nil {
		return err
	}
	if !ok {
		return domainError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to delete disputes", nil)
	}

	if err := s.store.DeleteDispute(ctx, disputeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Dispute not found", nil)
		}
		if store.IsPermissionDenied(err) {
			return domainError(http.StatusForbidden, "PERMISSION_DENIED", "The database rejected the deletion", nil)
		}
		return fmt.Errorf("delete dispute: %w", err)
	}

	if s.search != nil {
		s.search.DeleteDispute(disputeID)
	}
	s.notifier.Publish(ctx, notify.Event{Kind: "disputes", UserID: session.UserID})
	return nil
}

func (s *Service) indexDispute(item store.Dispute) {
	if s.search == nil {
		return
	}
	s.search.IndexDispute(search.DisputeRecord{
		ID:          item.ID,
		Company:     item.Company,
		DisputeType: item.DisputeType,
		NoticeFrom:  item.NoticeFrom,
		Status:      item.Status,
	})
}

func (s *Service) reindexDispute(ctx context.Context, disputeID string) {
	if s.search == nil {
		return
	}
	items, err := s.store.ListDisputes(ctx)
	if err != nil {
		return
	}
	for _, item := range items {
		if item.ID == disputeID {
			s.indexDispute(item)
			return
		}
	}
}
