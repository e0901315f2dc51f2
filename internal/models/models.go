package models

import (
	"strconv"
	"time"
)

const (
	RoleAmbassador = "ambassador"
	RoleAdmin      = "admin"
)

const (
	TeamTroopers     = "troopers"
	TeamColdOutreach = "cold_outreach"
	TeamOutreach     = "outreach"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

const (
	SourceManual     = "manual"
	SourceApollo     = "apollo"
	SourceSignalHire = "signalhire"
	SourceLinkedIn   = "linkedin"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name"`
	Role      string    `json:"role" gorm:"not null"`
	Credits   int       `json:"credits" gorm:"not null"`
	TeamRole  *string   `json:"team_role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Contact struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Company        string    `json:"company" gorm:"not null"`
	Position       string    `json:"position"`
	LinkedInURL    string    `json:"linkedin_url,omitempty"`
	Source         string    `json:"source"`
	RelevanceScore int       `json:"relevance_score"`
	SubmittedBy    string    `json:"submitted_by" gorm:"index;not null"`
	Status         string    `json:"status" gorm:"index;not null"`
	AdminNotes     *string   `json:"admin_notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Terminal reports whether the contact has left the review queue.
func (c Contact) Terminal() bool {
	return c.Status == StatusApproved || c.Status == StatusRejected
}

type ApprovalRecord struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	ContactID string    `json:"contact_id" gorm:"index;not null"`
	AdminID   string    `json:"admin_id"`
	Action    string    `json:"action" gorm:"not null"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func (ApprovalRecord) TableName() string { return "approvals" }

type CreditHistoryEntry struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	UserID        string    `json:"user_id" gorm:"index;not null"`
	ContactID     string    `json:"contact_id" gorm:"index"`
	CreditsEarned int       `json:"credits_earned" gorm:"not null"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

func (CreditHistoryEntry) TableName() string { return "credits_history" }

type Template struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Type      string    `json:"type" gorm:"index;not null"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Variables []string  `json:"variables" gorm:"serializer:json"`
	CreatedAt time.Time `json:"created_at"`
}

func (Template) TableName() string { return "ai_templates" }

// Setting is one persisted key/value pair. Values are stored as strings.
type Setting struct {
	Key   string `json:"key" gorm:"primaryKey"`
	Value string `json:"value"`
}

const (
	SettingAllowedEmailDomain        = "allowed_email_domain"
	SettingCreditsPerApproval        = "credits_per_approval"
	SettingMaxPendingContactsPerUser = "max_pending_contacts_per_user"
)

// DefaultSettings is the settings block written into a fresh store.
func DefaultSettings() []Setting {
	return []Setting{
		{Key: SettingAllowedEmailDomain, Value: "kprit.edu.in"},
		{Key: SettingCreditsPerApproval, Value: "1"},
		{Key: SettingMaxPendingContactsPerUser, Value: "10"},
	}
}

// Settings is the typed view over the persisted key/value pairs.
type Settings struct {
	AllowedEmailDomain        string `json:"allowed_email_domain"`
	CreditsPerApproval        int    `json:"credits_per_approval"`
	MaxPendingContactsPerUser int    `json:"max_pending_contacts_per_user"`
}

// ParseSettings builds the typed view. Unknown keys are ignored and
// unparseable numbers fall back to the defaults.
func ParseSettings(entries []Setting) Settings {
	s := Settings{
		AllowedEmailDomain:        "kprit.edu.in",
		CreditsPerApproval:        1,
		MaxPendingContactsPerUser: 10,
	}
	for _, e := range entries {
		switch e.Key {
		case SettingAllowedEmailDomain:
			s.AllowedEmailDomain = e.Value
		case SettingCreditsPerApproval:
			if v, err := strconv.Atoi(e.Value); err == nil && v > 0 {
				s.CreditsPerApproval = v
			}
		case SettingMaxPendingContactsPerUser:
			if v, err := strconv.Atoi(e.Value); err == nil {
				s.MaxPendingContactsPerUser = v
			}
		}
	}
	return s
}
