// Package audit keeps a tamper-evident trail of bulk imports and deletions.
// Each user gets a git repository whose commit history is the audit log; the
// committed file always holds the most recent action in full.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const entryFile = "last_action.json"

// Entry is one audited action.
type Entry struct {
	Action         string    `json:"action"` // "import" or "delete"
	Filename       string    `json:"filename,omitempty"`
	ArchiveObject  string    `json:"archive_object,omitempty"`
	CaseIDs        []string  `json:"case_ids,omitempty"`
	Inserted       int       `json:"inserted,omitempty"`
	Skipped        int       `json:"skipped,omitempty"`
	AmountsDropped int       `json:"amounts_dropped,omitempty"`
	Destination    string    `json:"destination,omitempty"` // "remote" or "local"
	OccurredAt     time.Time `json:"occurred_at"`
}

// CommitInfo describes one entry in a user's audit history.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// RecordImport appends a bulk-import entry to the user's audit trail.
func (s *Service) RecordImport(userID, actor string, entry Entry) (CommitInfo, error) {
	entry.Action = "import"
	message := fmt.Sprintf("Import %d cases from %s (%s)", entry.Inserted, entry.Filename, entry.Destination)
	return s.record(userID, actor, entry, message)
}

// RecordDeletion appends a case-deletion entry to the user's audit trail.
func (s *Service) RecordDeletion(userID, actor, caseID string) (CommitInfo, error) {
	entry := Entry{
		Action:     "delete",
		CaseIDs:    []string{caseID},
		OccurredAt: time.Now().UTC(),
	}
	return s.record(userID, actor, entry, "Delete case "+caseID)
}

func (s *Service) record(userID, actor string, entry Entry, message string) (CommitInfo, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	repo, err := s.ensureRepo(userID)
	if err != nil {
		return CommitInfo{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return CommitInfo{}, fmt.Errorf("marshal audit entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), entryFile), append(payload, '\n'), 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write audit entry: %w", err)
	}
	if _, err := worktree.Add(entryFile); err != nil {
		return CommitInfo{}, fmt.Errorf("git add audit entry: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  actor,
			Email: fmt.Sprintf("%s@audit.casedesk.local", sanitizeEmail(actor)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit audit entry: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History returns the user's most recent audit entries, newest first.
func (s *Service) History(userID string, limit int) ([]CommitInfo, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(userID)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return []CommitInfo{}, nil
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return []CommitInfo{}, nil
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]CommitInfo, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

func (s *Service) ensureRepo(userID string) (*git.Repository, error) {
	path := s.repoPath(userID)
	if _, err := os.Stat(path); err == nil {
		repo, err := git.PlainOpen(path)
		if err != nil {
			return nil, fmt.Errorf("open repo: %w", err)
		}
		return repo, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat repo path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(userID string) string {
	return filepath.Join(s.baseDir, userID)
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[userID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[userID] = lock
	return lock
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
