package store

import "time"

type User struct {
	ID                    string
	Email                 string
	FullName              string
	PasswordHash          string
	IsAdmin               bool
	IsEnabled             bool
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// UserWithPermissions is the admin-panel view of a user: the account row
// joined with every permission key granted to it.
type UserWithPermissions struct {
	User
	Permissions []string
}

// Case is a litigation case record as stored remotely or in the device-local
// fallback store. Local-only records carry a "local-" id prefix.
type Case struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	SrNo                *int      `json:"sr_no"`
	Parties             string    `json:"parties"`
	Forum               string    `json:"forum"`
	Particular          *string   `json:"particular"`
	StartDate           *string   `json:"start_date"`
	LastHearingDate     *string   `json:"last_hearing_date"`
	NextHearingDate     *string   `json:"next_hearing_date"`
	AmountInvolved      *float64  `json:"amount_involved"`
	TreatmentResolution *string   `json:"treatment_resolution"`
	Remarks             *string   `json:"remarks"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CaseInsert is the insertion payload produced by the ingestion pipeline.
// Identity and timestamps are assigned by whichever store accepts the batch.
type CaseInsert struct {
	SrNo                *int     `json:"sr_no"`
	Parties             string   `json:"parties"`
	Forum               string   `json:"forum"`
	Particular          *string  `json:"particular"`
	StartDate           *string  `json:"start_date"`
	LastHearingDate     *string  `json:"last_hearing_date"`
	NextHearingDate     *string  `json:"next_hearing_date"`
	AmountInvolved      *float64 `json:"amount_involved"`
	TreatmentResolution *string  `json:"treatment_resolution"`
	Remarks             *string  `json:"remarks"`
	Status              string   `json:"status"`
}

type Dispute struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Company         string    `json:"company"`
	DisputeType     string    `json:"dispute_type"`
	NoticeFrom      string    `json:"notice_from"`
	Value           float64   `json:"value"`
	ReplyDueDate    *string   `json:"reply_due_date"`
	ResponsibleUser string    `json:"responsible_user"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
