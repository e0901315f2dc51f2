package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
)

// eachStore runs fn against a fresh instance of every backend.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("json", func(t *testing.T) {
		s, err := OpenJSON(filepath.Join(t.TempDir(), "data.json"), nil)
		require.NoError(t, err)
		fn(t, s)
		require.NoError(t, s.Close())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQL(filepath.Join(t.TempDir(), "data.db"))
		require.NoError(t, err)
		fn(t, s)
		require.NoError(t, s.Close())
	})
}

func TestNewIDSortsInCreationOrder(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewID()
	}
	require.True(t, sort.StringsAreSorted(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		require.Len(t, id, 26)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestDefaultSettingsSeeded(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		var entries []models.Setting
		require.NoError(t, s.View(context.Background(), func(tx Tx) error {
			var err error
			entries, err = tx.Settings()
			return err
		}))
		got := models.ParseSettings(entries)
		require.Equal(t, "kprit.edu.in", got.AllowedEmailDomain)
		require.Equal(t, 1, got.CreditsPerApproval)
		require.Equal(t, 10, got.MaxPendingContactsPerUser)
	})
}

func TestViewIsReadOnly(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := Now()
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			return tx.InsertUser(&models.User{ID: "u1", Email: "a@kprit.edu.in", Role: models.RoleAmbassador, CreatedAt: now, UpdatedAt: now})
		}))

		writes := map[string]func(tx Tx) error{
			"insert user": func(tx Tx) error {
				return tx.InsertUser(&models.User{ID: "u2", Email: "b@kprit.edu.in", Role: models.RoleAmbassador})
			},
			"save user": func(tx Tx) error {
				return tx.SaveUser(&models.User{ID: "u1", Email: "a@kprit.edu.in", Role: models.RoleAdmin, Credits: 5})
			},
			"insert contact": func(tx Tx) error {
				return tx.InsertContact(&models.Contact{ID: "c1", Name: "C", Company: "Co", SubmittedBy: "u1", Status: models.StatusPending})
			},
			"insert approval": func(tx Tx) error {
				return tx.InsertApproval(&models.ApprovalRecord{ID: "a1", ContactID: "c1", Action: models.StatusApproved})
			},
			"insert credit entry": func(tx Tx) error {
				return tx.InsertCreditEntry(&models.CreditHistoryEntry{ID: "h1", UserID: "u1", CreditsEarned: 1})
			},
			"insert template": func(tx Tx) error {
				return tx.InsertTemplate(&models.Template{ID: "t1", Type: "email", Variables: []string{}})
			},
		}
		for name, write := range writes {
			err := s.View(ctx, write)
			require.ErrorIs(t, err, errReadOnly, name)
		}

		require.NoError(t, s.View(ctx, func(tx Tx) error {
			users, err := tx.Users()
			require.NoError(t, err)
			require.Len(t, users, 1)
			require.Equal(t, models.RoleAmbassador, users[0].Role)
			require.Zero(t, users[0].Credits)

			contacts, err := tx.Contacts(ContactFilter{})
			require.NoError(t, err)
			require.Empty(t, contacts)
			approvals, err := tx.Approvals("")
			require.NoError(t, err)
			require.Empty(t, approvals)
			history, err := tx.CreditHistory("")
			require.NoError(t, err)
			require.Empty(t, history)
			tpls, err := tx.Templates("")
			require.NoError(t, err)
			require.Empty(t, tpls)
			return nil
		}))
	})
}

func TestUsersAndContacts(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := Now()
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			for _, u := range []models.User{
				{ID: "u1", Email: "a@kprit.edu.in", Name: "A", Role: models.RoleAmbassador, CreatedAt: now, UpdatedAt: now},
				{ID: "u2", Email: "b@kprit.edu.in", Name: "B", Role: models.RoleAdmin, CreatedAt: now, UpdatedAt: now},
			} {
				if err := tx.InsertUser(&u); err != nil {
					return err
				}
			}
			for i, owner := range []string{"u1", "u2", "u1"} {
				c := models.Contact{
					ID: NewID(), Name: "C", Company: "Co", SubmittedBy: owner,
					Status: models.StatusPending, RelevanceScore: i, CreatedAt: now, UpdatedAt: now,
				}
				if err := tx.InsertContact(&c); err != nil {
					return err
				}
			}
			return nil
		}))

		require.NoError(t, s.View(ctx, func(tx Tx) error {
			u, err := tx.UserByEmail("b@kprit.edu.in")
			require.NoError(t, err)
			require.Equal(t, "u2", u.ID)

			_, err = tx.User("missing")
			require.ErrorIs(t, err, ErrNotFound)

			users, err := tx.Users()
			require.NoError(t, err)
			require.Len(t, users, 2)
			require.Equal(t, "u1", users[0].ID)

			mine, err := tx.Contacts(ContactFilter{SubmittedBy: "u1"})
			require.NoError(t, err)
			require.Len(t, mine, 2)
			require.Equal(t, 0, mine[0].RelevanceScore)
			require.Equal(t, 2, mine[1].RelevanceScore)

			all, err := tx.Contacts(ContactFilter{Status: models.StatusPending})
			require.NoError(t, err)
			require.Len(t, all, 3)
			return nil
		}))
	})
}

func TestSaveMissingRecordIsNotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		err := s.Update(context.Background(), func(tx Tx) error {
			return tx.SaveUser(&models.User{ID: "ghost", Email: "g@kprit.edu.in"})
		})
		require.ErrorIs(t, err, ErrNotFound)

		err = s.Update(context.Background(), func(tx Tx) error {
			return tx.SaveContact(&models.Contact{ID: "ghost"})
		})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFailedUpdateIsDiscarded(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		boom := errors.New("boom")
		err := s.Update(ctx, func(tx Tx) error {
			u := models.User{ID: "u1", Email: "a@kprit.edu.in", Role: models.RoleAmbassador}
			if err := tx.InsertUser(&u); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		require.NoError(t, s.View(ctx, func(tx Tx) error {
			users, err := tx.Users()
			require.NoError(t, err)
			require.Empty(t, users)
			return nil
		}))
	})
}

func TestAuditCollections(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		notes := "ok"
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			if err := tx.InsertApproval(&models.ApprovalRecord{ID: NewID(), ContactID: "c1", AdminID: "a1", Action: models.StatusApproved, Notes: &notes, CreatedAt: Now()}); err != nil {
				return err
			}
			if err := tx.InsertApproval(&models.ApprovalRecord{ID: NewID(), ContactID: "c2", AdminID: "a1", Action: models.StatusRejected, CreatedAt: Now()}); err != nil {
				return err
			}
			if err := tx.InsertCreditEntry(&models.CreditHistoryEntry{ID: NewID(), UserID: "u1", ContactID: "c1", CreditsEarned: 1, Reason: "r", CreatedAt: Now()}); err != nil {
				return err
			}
			return tx.InsertTemplate(&models.Template{ID: NewID(), Type: "email", Title: "t", Content: "Hi [NAME]", Variables: []string{"NAME"}, CreatedAt: Now()})
		}))

		require.NoError(t, s.View(ctx, func(tx Tx) error {
			approvals, err := tx.Approvals("c1")
			require.NoError(t, err)
			require.Len(t, approvals, 1)
			require.Equal(t, "ok", *approvals[0].Notes)

			all, err := tx.Approvals("")
			require.NoError(t, err)
			require.Len(t, all, 2)

			history, err := tx.CreditHistory("u1")
			require.NoError(t, err)
			require.Len(t, history, 1)
			require.Equal(t, 1, history[0].CreditsEarned)

			tpls, err := tx.Templates("email")
			require.NoError(t, err)
			require.Len(t, tpls, 1)
			require.Equal(t, []string{"NAME"}, tpls[0].Variables)

			none, err := tx.Templates("call_script")
			require.NoError(t, err)
			require.Empty(t, none)
			return nil
		}))
	})
}
