// Package contacts owns the review workflow of submitted HR contacts and the
// credit awards it triggers.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/store"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPendingLimit      = errors.New("pending contact limit reached")
)

// Input carries the descriptive fields of a submission.
type Input struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone"`
	Company        string `json:"company" validate:"required"`
	Position       string `json:"position"`
	LinkedInURL    string `json:"linkedin_url" validate:"omitempty,url"`
	Source         string `json:"source" validate:"omitempty,oneof=manual apollo signalhire linkedin"`
	RelevanceScore int    `json:"relevance_score" validate:"gte=0,lte=10"`
}

// Observer is told about committed lifecycle events.
type Observer interface {
	ContactSubmitted(source string)
	ContactDecided(status string)
	CreditsAwarded(amount int)
}

type nopObserver struct{}

func (nopObserver) ContactSubmitted(string) {}
func (nopObserver) ContactDecided(string)   {}
func (nopObserver) CreditsAwarded(int)      {}

type Manager struct {
	store    store.Store
	log      *zap.Logger
	validate *validator.Validate
	observer Observer
	now      func() time.Time
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.log = l } }

func WithObserver(o Observer) Option { return func(m *Manager) { m.observer = o } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func NewManager(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		log:      zap.NewNop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		observer: nopObserver{},
		now:      store.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ", "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// Submit records a new pending contact for submitterID.
func (m *Manager) Submit(ctx context.Context, submitterID string, in Input) (*models.Contact, error) {
	if strings.TrimSpace(submitterID) == "" {
		return nil, fmt.Errorf("%w: submitted_by is required", ErrValidation)
	}
	if err := m.validate.Struct(in); err != nil {
		return nil, m.validationError(err)
	}
	source := in.Source
	if source == "" {
		source = models.SourceManual
	}

	var created models.Contact
	err := m.store.Update(ctx, func(tx store.Tx) error {
		entries, err := tx.Settings()
		if err != nil {
			return err
		}
		settings := models.ParseSettings(entries)
		if settings.MaxPendingContactsPerUser > 0 {
			pending, err := tx.Contacts(store.ContactFilter{SubmittedBy: submitterID, Status: models.StatusPending})
			if err != nil {
				return err
			}
			if len(pending) >= settings.MaxPendingContactsPerUser {
				return fmt.Errorf("%w: %d contacts awaiting review", ErrPendingLimit, len(pending))
			}
		}

		now := m.now()
		created = models.Contact{
			ID:             store.NewID(),
			Name:           in.Name,
			Email:          in.Email,
			Phone:          in.Phone,
			Company:        in.Company,
			Position:       in.Position,
			LinkedInURL:    in.LinkedInURL,
			Source:         source,
			RelevanceScore: in.RelevanceScore,
			SubmittedBy:    submitterID,
			Status:         models.StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return tx.InsertContact(&created)
	})
	if err != nil {
		return nil, err
	}
	m.observer.ContactSubmitted(created.Source)
	m.log.Info("contact submitted",
		zap.String("contact_id", created.ID),
		zap.String("submitted_by", submitterID),
		zap.String("company", created.Company))
	return &created, nil
}

// Decide moves a pending contact to approved or rejected, appends the
// approval record and, on approval, credits the submitter. A contact that
// has already been decided cannot be decided again. A submitter missing
// from the user collection does not block the approval; the award is
// skipped.
func (m *Manager) Decide(ctx context.Context, contactID, status, adminID string, notes *string) (*models.Contact, error) {
	if status != models.StatusApproved && status != models.StatusRejected {
		return nil, fmt.Errorf("%w: status must be %s or %s", ErrValidation, models.StatusApproved, models.StatusRejected)
	}

	var (
		updated models.Contact
		awarded int
	)
	err := m.store.Update(ctx, func(tx store.Tx) error {
		c, err := tx.Contact(contactID)
		if err != nil {
			return err
		}
		if c.Terminal() {
			return fmt.Errorf("%w: contact %s is already %s", ErrInvalidTransition, c.ID, c.Status)
		}

		now := m.now()
		c.Status = status
		c.AdminNotes = notes
		c.UpdatedAt = now
		if err := tx.SaveContact(c); err != nil {
			return err
		}
		if err := tx.InsertApproval(&models.ApprovalRecord{
			ID:        store.NewID(),
			ContactID: c.ID,
			AdminID:   adminID,
			Action:    status,
			Notes:     notes,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if status == models.StatusApproved {
			entries, err := tx.Settings()
			if err != nil {
				return err
			}
			amount := models.ParseSettings(entries).CreditsPerApproval
			reason := fmt.Sprintf("Contact approved: %s - %s", c.Company, c.Name)
			_, err = award(tx, c.SubmittedBy, c.ID, amount, reason, now)
			switch {
			case errors.Is(err, store.ErrNotFound):
				m.log.Warn("submitter not found, skipping credit award",
					zap.String("contact_id", c.ID),
					zap.String("submitted_by", c.SubmittedBy))
			case err != nil:
				return err
			default:
				awarded = amount
			}
		}
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.observer.ContactDecided(status)
	if awarded > 0 {
		m.observer.CreditsAwarded(awarded)
	}
	m.log.Info("contact decided",
		zap.String("contact_id", updated.ID),
		zap.String("status", status),
		zap.String("admin_id", adminID),
		zap.Int("credits_awarded", awarded))
	return &updated, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*models.Contact, error) {
	var c *models.Contact
	err := m.store.View(ctx, func(tx store.Tx) error {
		var err error
		c, err = tx.Contact(id)
		return err
	})
	return c, err
}

func (m *Manager) ListBySubmitter(ctx context.Context, userID string) ([]models.Contact, error) {
	return m.list(ctx, store.ContactFilter{SubmittedBy: userID})
}

func (m *Manager) ListByStatus(ctx context.Context, status string) ([]models.Contact, error) {
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return m.list(ctx, store.ContactFilter{Status: status})
}

func (m *Manager) list(ctx context.Context, f store.ContactFilter) ([]models.Contact, error) {
	var out []models.Contact
	err := m.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Contacts(f)
		return err
	})
	return out, err
}

// Approvals returns the audit trail of a contact.
func (m *Manager) Approvals(ctx context.Context, contactID string) ([]models.ApprovalRecord, error) {
	var out []models.ApprovalRecord
	err := m.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.Contact(contactID); err != nil {
			return err
		}
		var err error
		out, err = tx.Approvals(contactID)
		return err
	})
	return out, err
}
