package contacts

import (
	"context"
	"fmt"
	"time"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/store"
)

// award adds amount to the user's balance and appends the matching history
// entry. It is not idempotent: every call credits again.
func award(tx store.Tx, userID, contactID string, amount int, reason string, now time.Time) (*models.CreditHistoryEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}
	u, err := tx.User(userID)
	if err != nil {
		return nil, err
	}
	u.Credits += amount
	u.UpdatedAt = now
	if err := tx.SaveUser(u); err != nil {
		return nil, err
	}
	entry := models.CreditHistoryEntry{
		ID:            store.NewID(),
		UserID:        u.ID,
		ContactID:     contactID,
		CreditsEarned: amount,
		Reason:        reason,
		CreatedAt:     now,
	}
	if err := tx.InsertCreditEntry(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Award credits a user outside the approval flow, e.g. a corrective admin
// grant. Callers must make sure each award happens at most once.
func (m *Manager) Award(ctx context.Context, userID, contactID string, amount int, reason string) (*models.CreditHistoryEntry, error) {
	var entry *models.CreditHistoryEntry
	err := m.store.Update(ctx, func(tx store.Tx) error {
		var err error
		entry, err = award(tx, userID, contactID, amount, reason, m.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	m.observer.CreditsAwarded(amount)
	return entry, nil
}

// History lists a user's credit entries, oldest first.
func (m *Manager) History(ctx context.Context, userID string) ([]models.CreditHistoryEntry, error) {
	var out []models.CreditHistoryEntry
	err := m.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.User(userID); err != nil {
			return err
		}
		var err error
		out, err = tx.CreditHistory(userID)
		return err
	})
	return out, err
}
