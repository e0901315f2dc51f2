// Package stats derives rankings and per-user counters from the stored
// users and contacts. Nothing here writes.
package stats

import (
	"context"
	"errors"
	"sort"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/store"
)

const (
	DefaultLimit = 10
	rankWindow   = 100
)

type Entry struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"userId"`
	Name             string `json:"name"`
	Credits          int    `json:"credits"`
	ApprovedContacts int    `json:"approvedContacts"`
}

type UserStats struct {
	TotalContacts    int `json:"totalContacts"`
	ApprovedContacts int `json:"approvedContacts"`
	PendingContacts  int `json:"pendingContacts"`
	RejectedContacts int `json:"rejectedContacts"`
	TotalCredits     int `json:"totalCredits"`
	UserRank         int `json:"userRank"`
}

type Projector struct {
	store store.Store
}

func NewProjector(s store.Store) *Projector {
	return &Projector{store: s}
}

// Leaderboard ranks ambassadors by credits. Ties go to the earlier account,
// then the smaller id. Ranks are positions, so tied users get consecutive
// ranks. limit <= 0 means DefaultLimit.
func (p *Projector) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	var out []Entry
	err := p.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = leaderboard(tx, limit)
		return err
	})
	return out, err
}

func leaderboard(tx store.Tx, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	users, err := tx.Users()
	if err != nil {
		return nil, err
	}
	ranked := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role == models.RoleAmbassador {
			ranked = append(ranked, u)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Credits != b.Credits {
			return a.Credits > b.Credits
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	approved, err := tx.Contacts(store.ContactFilter{Status: models.StatusApproved})
	if err != nil {
		return nil, err
	}
	perUser := make(map[string]int, len(ranked))
	for _, c := range approved {
		perUser[c.SubmittedBy]++
	}

	out := make([]Entry, 0, len(ranked))
	for i, u := range ranked {
		out = append(out, Entry{
			Rank:             i + 1,
			UserID:           u.ID,
			Name:             u.Name,
			Credits:          u.Credits,
			ApprovedContacts: perUser[u.ID],
		})
	}
	return out, nil
}

// UserStats counts the user's contacts by status. UserRank is the position
// within the top 100 ambassadors and 0 outside of it, including for admins
// and unknown users.
func (p *Projector) UserStats(ctx context.Context, userID string) (*UserStats, error) {
	var st UserStats
	err := p.store.View(ctx, func(tx store.Tx) error {
		contacts, err := tx.Contacts(store.ContactFilter{SubmittedBy: userID})
		if err != nil {
			return err
		}
		st.TotalContacts = len(contacts)
		for _, c := range contacts {
			switch c.Status {
			case models.StatusApproved:
				st.ApprovedContacts++
			case models.StatusPending:
				st.PendingContacts++
			case models.StatusRejected:
				st.RejectedContacts++
			}
		}

		u, err := tx.User(userID)
		switch {
		case err == nil:
			st.TotalCredits = u.Credits
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		board, err := leaderboard(tx, rankWindow)
		if err != nil {
			return err
		}
		for _, e := range board {
			if e.UserID == userID {
				st.UserRank = e.Rank
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}
