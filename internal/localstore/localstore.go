// Package localstore persists case records on the server's local disk when
// the remote database refuses writes for a user. Each user gets an isolated
// JSON namespace; records created here carry a "local-" id prefix so callers
// can route deletes and merges correctly.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"casedesk/api/internal/store"
)

const idPrefix = "local-"

type Store struct {
	dir string

	mu sync.Mutex
}

// New prepares a store rooted at dir, creating it if missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// IsLocalID reports whether a case id belongs to this store.
func IsLocalID(id string) bool {
	return len(id) > len(idPrefix) && id[:len(idPrefix)] == idPrefix
}

// List returns the user's locally stored cases, newest first. Records that
// fail shape validation are dropped silently; one corrupt entry must not
// hide the rest.
func (s *Store) List(userID string) ([]store.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(userID)
}

// Add persists a batch for the user, prepending so the newest records list
// first. The whole namespace is rewritten atomically via a temp file.
func (s *Store) Add(userID string, batch []store.CaseInsert) ([]store.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	added := make([]store.Case, 0, len(batch))
	for _, insert := range batch {
		added = append(added, store.Case{
			ID:                  idPrefix + uuid.NewString(),
			UserID:              userID,
			SrNo:                insert.SrNo,
			Parties:             insert.Parties,
			Forum:               insert.Forum,
			Particular:          insert.Particular,
			StartDate:           insert.StartDate,
			LastHearingDate:     insert.LastHearingDate,
			NextHearingDate:     insert.NextHearingDate,
			AmountInvolved:      insert.AmountInvolved,
			TreatmentResolution: insert.TreatmentResolution,
			Remarks:             insert.Remarks,
			Status:              insert.Status,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}

	if err := s.write(userID, append(added, existing...)); err != nil {
		return nil, err
	}
	return added, nil
}

// Remove deletes one record from the user's namespace. It reports whether
// the record was present.
func (s *Store) Remove(userID, caseID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(userID)
	if err != nil {
		return false, err
	}

	kept := existing[:0]
	found := false
	for _, record := range existing {
		if record.ID == caseID {
			found = true
			continue
		}
		kept = append(kept, record)
	}
	if !found {
		return false, nil
	}
	return true, s.write(userID, kept)
}

func (s *Store) read(userID string) ([]store.Case, error) {
	data, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local cases: %w", err)
	}

	var raw []store.Case
	if err := json.Unmarshal(data, &raw); err != nil {
		// A corrupt namespace behaves like an empty one.
		return nil, nil
	}

	valid := make([]store.Case, 0, len(raw))
	for _, record := range raw {
		if record.ID == "" || record.UserID != userID || record.Parties == "" || record.Forum == "" {
			continue
		}
		valid = append(valid, record)
	}
	return valid, nil
}

func (s *Store) write(userID string, records []store.Case) error {
	if records == nil {
		records = []store.Case{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode local cases: %w", err)
	}

	path := s.path(userID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write local cases: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace local cases: %w", err)
	}
	return nil
}

func (s *Store) path(userID string) string {
	return filepath.Join(s.dir, "litigation_cases_"+userID+".json")
}
