// Package app holds the CaseDesk service layer: session lifecycle, case and
// dispute operations, and the admin surface. Handlers in http.go translate
// requests into calls here; everything below speaks domain types.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"casedesk/api/internal/archive"
	"casedesk/api/internal/audit"
	"casedesk/api/internal/auth"
	"casedesk/api/internal/authpw"
	"casedesk/api/internal/config"
	"casedesk/api/internal/email"
	"casedesk/api/internal/export"
	"casedesk/api/internal/localstore"
	"casedesk/api/internal/notify"
	"casedesk/api/internal/rbac"
	"casedesk/api/internal/search"
	"casedesk/api/internal/store"
	"casedesk/api/internal/util"
)

// Session is an authenticated caller. JTI identifies the access token so it
// can be revoked individually at logout.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	IsAdmin      bool
	JTI          string
	ExpiresAt    time.Time
}

// dataStore is the slice of the Postgres store the service layer depends on.
type dataStore interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	PromoteAdminByEmail(ctx context.Context, email string) error
	SetUserEnabled(ctx context.Context, userID string, enabled bool) error
	GrantPermission(ctx context.Context, userID, permission, grantedBy string) error
	RevokePermission(ctx context.Context, userID, permission string) error
	ListPermissions(ctx context.Context, userID string) ([]string, error)
	ListUsersWithPermissions(ctx context.Context) ([]store.UserWithPermissions, error)

	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	ListCases(ctx context.Context) ([]store.Case, error)
	BulkInsertCases(ctx context.Context, userID string, batch []store.CaseInsert, ids []string) ([]store.Case, error)
	DeleteCase(ctx context.Context, userID, caseID string) error

	ListDisputes(ctx context.Context) ([]store.Dispute, error)
	CreateDispute(ctx context.Context, item store.Dispute) error
	UpdateDisputeStatus(ctx context.Context, disputeID, status string) error
	DeleteDispute(ctx context.Context, disputeID string) error

	Ping(ctx context.Context) error
}

// sessionStore holds refresh sessions. Backed by Redis when configured,
// otherwise by the refresh_sessions table.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// Deps bundles the collaborators the service needs. Archive, Audit, Search,
// and Email may be nil or unconfigured; the service degrades gracefully.
type Deps struct {
	Store    dataStore
	Sessions sessionStore
	Local    *localstore.Store
	Search   *search.Service
	Archive  *archive.Service
	Audit    *audit.Service
	Email    *email.Service
	Notifier notify.Notifier
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	local    *localstore.Store
	authpw   *authpw.Service
	search   *search.Service
	export   *export.Service
	archive  *archive.Service
	audit    *audit.Service
	email    *email.Service
	notifier notify.Notifier
}

func New(cfg config.Config, deps Deps) *Service {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	svc := &Service{
		cfg:      cfg,
		store:    deps.Store,
		sessions: deps.Sessions,
		local:    deps.Local,
		search:   deps.Search,
		export:   export.NewService(),
		archive:  deps.Archive,
		audit:    deps.Audit,
		email:    deps.Email,
		notifier: notifier,
	}
	if userStore, ok := deps.Store.(authpw.UserStore); ok {
		svc.authpw = authpw.NewService(userStore)
	}
	return svc
}

// Bootstrap promotes the configured admin account and warms the search index.
// Safe to run on every start.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.cfg.AdminEmail != "" {
		if err := s.store.PromoteAdminByEmail(ctx, s.cfg.AdminEmail); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("promote admin: %w", err)
			}
			log.Printf("bootstrap: admin account %s not registered yet", s.cfg.AdminEmail)
		} else if admin, err := s.store.GetUserByEmail(ctx, s.cfg.AdminEmail); err == nil {
			for _, p := range rbac.All() {
				if err := s.store.GrantPermission(ctx, admin.ID, string(p), "system"); err != nil {
					return fmt.Errorf("grant %s to admin: %w", p, err)
				}
			}
		}
	}

	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// AuthPasswordService exposes the email/password flows to the HTTP layer.
func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

// SMTPConfigured reports whether outbound email is available. When it is not,
// verification and reset tokens are returned directly so local setups work.
func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// EmailService returns the outbound mailer, which may be unconfigured.
func (s *Service) EmailService() *email.Service {
	return s.email
}

// SendVerificationEmail mails the signup verification link. Failures are
// logged only; the token stays usable either way.
func (s *Service) SendVerificationEmail(to, name, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := strings.TrimRight(s.cfg.CORSOrigin, "/") + "/verify-email?token=" + token
	if err := s.email.SendVerificationEmail(to, name, url); err != nil {
		log.Printf("email: send verification: %v", err)
	}
}

// SendPasswordResetEmail mails the reset link for an account.
func (s *Service) SendPasswordResetEmail(to, token string) {
	if !s.SMTPConfigured() {
		return
	}
	name := to
	if user, err := s.store.GetUserByEmail(context.Background(), strings.ToLower(strings.TrimSpace(to))); err == nil {
		name = user.FullName
	}
	url := strings.TrimRight(s.cfg.CORSOrigin, "/") + "/reset-password?token=" + token
	if err := s.email.SendPasswordResetEmail(to, name, url); err != nil {
		log.Printf("email: send password reset: %v", err)
	}
}

// SubscribeChanges attaches a listener to the change feed.
func (s *Service) SubscribeChanges(ctx context.Context) (<-chan notify.Event, func()) {
	return s.notifier.Subscribe(ctx)
}

// CreateSession issues tokens for a signed-in user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsEnabled {
		return Session{}, domainError(http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	jti := util.NewID("jti")
	expiresAt := now.Add(s.cfg.AccessTTL)

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.FullName,
		Admin: user.IsAdmin,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.FullName,
		Email:        user.Email,
		IsAdmin:      user.IsAdmin,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh rotates a refresh token and issues a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, hash)
	if err != nil {
		return Session{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	if !user.IsEnabled {
		_ = s.sessions.RevokeRefreshSession(ctx, hash)
		return Session{}, domainError(http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled", nil)
	}
	if err := s.sessions.RevokeRefreshSession(ctx, hash); err != nil {
		return Session{}, fmt.Errorf("revoke refresh session: %w", err)
	}
	return s.issueSession(ctx, user)
}

// SessionFromToken validates a bearer token and resolves its user.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}
	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsEnabled {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.FullName,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// Logout revokes the access token and, when supplied, the refresh token.
func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		if err := s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			return fmt.Errorf("revoke refresh session: %w", err)
		}
	}
	return nil
}

// permissions loads a user's grants as typed permissions.
func (s *Service) permissions(ctx context.Context, userID string) ([]rbac.Permission, error) {
	raw, err := s.store.ListPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	grants := make([]rbac.Permission, 0, len(raw))
	for _, p := range raw {
		grants = append(grants, rbac.Permission(p))
	}
	return grants, nil
}

// allowed checks one permission for the session, admin passing implicitly.
func (s *Service) allowed(ctx context.Context, session Session, p rbac.Permission) (bool, error) {
	if session.IsAdmin {
		return true, nil
	}
	grants, err := s.permissions(ctx, session.UserID)
	if err != nil {
		return false, err
	}
	return rbac.Allowed(false, grants, p), nil
}
