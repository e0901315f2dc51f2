package store

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")

	errReadOnly = errors.New("write in read-only transaction")
)

// ContactFilter narrows a contact listing. Empty fields match everything.
type ContactFilter struct {
	SubmittedBy string
	Status      string
}

func (f ContactFilter) match(c *models.Contact) bool {
	if f.SubmittedBy != "" && c.SubmittedBy != f.SubmittedBy {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}

// Tx is the view of the collections handed to a unit of work. Listings are
// returned in insertion order and every returned record is a copy.
type Tx interface {
	Settings() ([]models.Setting, error)

	User(id string) (*models.User, error)
	UserByEmail(email string) (*models.User, error)
	Users() ([]models.User, error)
	InsertUser(u *models.User) error
	SaveUser(u *models.User) error

	Contact(id string) (*models.Contact, error)
	Contacts(f ContactFilter) ([]models.Contact, error)
	InsertContact(c *models.Contact) error
	SaveContact(c *models.Contact) error

	Approvals(contactID string) ([]models.ApprovalRecord, error)
	InsertApproval(a *models.ApprovalRecord) error

	CreditHistory(userID string) ([]models.CreditHistoryEntry, error)
	InsertCreditEntry(e *models.CreditHistoryEntry) error

	Templates(kind string) ([]models.Template, error)
	InsertTemplate(t *models.Template) error
}

// Store owns the backing document. View runs fn against a read-only
// snapshot; Update commits whatever fn wrote once fn returns nil.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID string: millisecond time prefix plus random suffix.
// Ids minted by one process sort in creation order.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Now is the timestamp source for stored records: UTC without a monotonic
// reading, so values survive a JSON round trip unchanged.
func Now() time.Time {
	return time.Now().UTC().Round(0)
}
