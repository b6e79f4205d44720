package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, password_hash, is_admin, is_enabled, is_email_verified, verification_token)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7, $8)
	`, user.ID, user.Email, user.FullName, user.PasswordHash, user.IsAdmin, user.IsEnabled, user.IsEmailVerified, nullString(user.VerificationToken))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, password_hash, is_admin, is_enabled, is_email_verified, created_at, updated_at
		FROM users WHERE email = LOWER($1)
	`, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, password_hash, is_admin, is_enabled, is_email_verified, created_at, updated_at
		FROM users WHERE id = $1
	`, userID))
}

func (s *PostgresStore) scanUser(row *sql.Row) (User, error) {
	var user User
	var fullName sql.NullString
	err := row.Scan(&user.ID, &user.Email, &fullName, &user.PasswordHash, &user.IsAdmin, &user.IsEnabled, &user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	user.FullName = fullName.String
	return user, nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW() WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetUserEnabled(ctx context.Context, userID string, enabled bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET is_enabled=$2, updated_at=NOW() WHERE id=$1`, userID, enabled)
	if err != nil {
		return fmt.Errorf("set user enabled: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set user enabled result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PromoteAdminByEmail marks the account with the given email as an enabled
// administrator. Used to bootstrap the default admin at startup and after
// that account signs up.
func (s *PostgresStore) PromoteAdminByEmail(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_admin=TRUE, is_enabled=TRUE, is_email_verified=TRUE, updated_at=NOW()
		WHERE email=LOWER($1)
	`, email)
	if err != nil {
		return fmt.Errorf("promote admin: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Permissions
// ---------------------------------------------------------------------------

func (s *PostgresStore) GrantPermission(ctx context.Context, userID, permission, grantedBy string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_permissions (user_id, permission, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, permission) DO NOTHING
	`, userID, permission, grantedBy)
	if err != nil {
		return fmt.Errorf("grant permission: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokePermission(ctx context.Context, userID, permission string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM user_permissions WHERE user_id=$1 AND permission=$2
	`, userID, permission)
	if err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPermissions(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT permission FROM user_permissions WHERE user_id=$1 ORDER BY permission
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	permissions := make([]string, 0)
	for rows.Next() {
		var permission string
		if err := rows.Scan(&permission); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, permission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}
	return permissions, nil
}

func (s *PostgresStore) ListUsersWithPermissions(ctx context.Context) ([]UserWithPermissions, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.full_name, u.is_admin, u.is_enabled, u.is_email_verified, u.created_at, u.updated_at,
			COALESCE(ARRAY_AGG(p.permission ORDER BY p.permission) FILTER (WHERE p.permission IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_permissions p ON p.user_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]UserWithPermissions, 0)
	for rows.Next() {
		var item UserWithPermissions
		var fullName sql.NullString
		var permissions []byte
		if err := rows.Scan(&item.ID, &item.Email, &fullName, &item.IsAdmin, &item.IsEnabled, &item.IsEmailVerified, &item.CreatedAt, &item.UpdatedAt, &permissions); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		item.FullName = fullName.String
		item.Permissions = parseTextArray(string(permissions))
		users = append(users, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// ---------------------------------------------------------------------------
// Refresh sessions and token revocation
// ---------------------------------------------------------------------------

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.email, u.full_name, u.password_hash, u.is_admin, u.is_enabled, u.is_email_verified, u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, tokenHash))
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// ---------------------------------------------------------------------------
// Litigation cases
// ---------------------------------------------------------------------------

const caseColumns = `
	id, user_id, sr_no, parties, forum, particular,
	start_date::text, last_hearing_date::text, next_hearing_date::text,
	amount_involved, treatment_resolution, remarks, status, created_at, updated_at
`

func (s *PostgresStore) ListCases(ctx context.Context) ([]Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+caseColumns+`
		FROM litigation_cases
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	items := make([]Case, 0)
	for rows.Next() {
		item, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return items, nil
}

// BulkInsertCases writes the whole batch in one transaction executed under
// the restricted application role, so row-level security decides whether the
// user may insert at all. The batch is all-or-nothing: the first rejected
// row rolls everything back and the database error is returned unwrapped for
// classification by the caller.
func (s *PostgresStore) BulkInsertCases(ctx context.Context, userID string, batch []CaseInsert, ids []string) ([]Case, error) {
	if len(batch) != len(ids) {
		return nil, fmt.Errorf("bulk insert: %d ids for %d cases", len(ids), len(batch))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := assumeUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	inserted := make([]Case, 0, len(batch))
	for i, item := range batch {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO litigation_cases
				(id, user_id, sr_no, parties, forum, particular, start_date, last_hearing_date, next_hearing_date,
				 amount_involved, treatment_resolution, remarks, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8::date, $9::date, $10, $11, $12, $13)
			RETURNING `+caseColumns,
			ids[i], userID, item.SrNo, item.Parties, item.Forum, item.Particular,
			item.StartDate, item.LastHearingDate, item.NextHearingDate,
			item.AmountInvolved, item.TreatmentResolution, item.Remarks, item.Status,
		)
		record, err := scanCase(row)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, record)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk insert: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) DeleteCase(ctx context.Context, userID, caseID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete case: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := assumeUser(ctx, tx, userID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM litigation_cases WHERE id=$1`, caseID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete case result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// assumeUser switches the transaction to the restricted role and records the
// acting user for row-level security policies.
func assumeUser(ctx context.Context, tx *sql.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.user_id', $1, true)`, userID); err != nil {
		return fmt.Errorf("set acting user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SET LOCAL ROLE casedesk_client`); err != nil {
		return fmt.Errorf("assume client role: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (Case, error) {
	var item Case
	var srNo sql.NullInt64
	var particular, startDate, lastHearing, nextHearing, treatment, remarks sql.NullString
	var amount sql.NullFloat64
	err := row.Scan(
		&item.ID, &item.UserID, &srNo, &item.Parties, &item.Forum, &particular,
		&startDate, &lastHearing, &nextHearing,
		&amount, &treatment, &remarks, &item.Status, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return Case{}, err
	}
	if srNo.Valid {
		value := int(srNo.Int64)
		item.SrNo = &value
	}
	item.Particular = nullableString(particular)
	item.StartDate = nullableString(startDate)
	item.LastHearingDate = nullableString(lastHearing)
	item.NextHearingDate = nullableString(nextHearing)
	item.TreatmentResolution = nullableString(treatment)
	item.Remarks = nullableString(remarks)
	if amount.Valid {
		value := amount.Float64
		item.AmountInvolved = &value
	}
	return item, nil
}

// ---------------------------------------------------------------------------
// Pre-litigation disputes
// ---------------------------------------------------------------------------

func (s *PostgresStore) ListDisputes(ctx context.Context) ([]Dispute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, company, dispute_type, notice_from, value, reply_due_date::text, responsible_user, status, created_at, updated_at
		FROM disputes
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	items := make([]Dispute, 0)
	for rows.Next() {
		var item Dispute
		var replyDue sql.NullString
		if err := rows.Scan(&item.ID, &item.UserID, &item.Company, &item.DisputeType, &item.NoticeFrom, &item.Value, &replyDue, &item.ResponsibleUser, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		item.ReplyDueDate = nullableString(replyDue)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disputes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateDispute(ctx context.Context, item Dispute) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disputes (id, user_id, company, dispute_type, notice_from, value, reply_due_date, responsible_user, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9)
	`, item.ID, item.UserID, item.Company, item.DisputeType, item.NoticeFrom, item.Value, item.ReplyDueDate, item.ResponsibleUser, item.Status)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateDisputeStatus(ctx context.Context, disputeID, status string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE disputes SET status=$2, updated_at=NOW() WHERE id=$1`, disputeID, status)
	if err != nil {
		return fmt.Errorf("update dispute status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dispute result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteDispute(ctx context.Context, disputeID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM disputes WHERE id=$1`, disputeID)
	if err != nil {
		return fmt.Errorf("delete dispute: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dispute result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	result := value.String
	return &result
}

// parseTextArray decodes the minimal Postgres array literal shape produced by
// ARRAY_AGG over permission keys (no quoting or escapes needed: keys are
// lowercase identifiers).
func parseTextArray(value string) []string {
	trimmed := value
	if len(trimmed) >= 2 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	if trimmed == "" {
		return []string{}
	}
	parts := make([]string, 0, 4)
	start := 0
	for i := 0; i <= len(trimmed); i++ {
		if i == len(trimmed) || trimmed[i] == ',' {
			parts = append(parts, trimmed[start:i])
			start = i + 1
		}
	}
	return parts
}
