package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/store"
)

var epoch = time.Date(2025, 9, 13, 10, 0, 0, 0, time.UTC)

type fixture struct {
	users    []models.User
	contacts []models.Contact
}

func (f *fixture) user(id, role string, credits int, joinedMinutes int) {
	f.users = append(f.users, models.User{
		ID:        id,
		Email:     id + "@kprit.edu.in",
		Name:      "User " + id,
		Role:      role,
		Credits:   credits,
		CreatedAt: epoch.Add(time.Duration(joinedMinutes) * time.Minute),
		UpdatedAt: epoch,
	})
}

func (f *fixture) contact(owner, status string) {
	f.contacts = append(f.contacts, models.Contact{
		ID:          store.NewID(),
		Name:        "HR",
		Company:     "Co",
		SubmittedBy: owner,
		Status:      status,
		CreatedAt:   epoch,
		UpdatedAt:   epoch,
	})
}

func (f *fixture) open(t *testing.T) *Projector {
	t.Helper()
	s, err := store.OpenJSON(filepath.Join(t.TempDir(), "data.json"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		for i := range f.users {
			if err := tx.InsertUser(&f.users[i]); err != nil {
				return err
			}
		}
		for i := range f.contacts {
			if err := tx.InsertContact(&f.contacts[i]); err != nil {
				return err
			}
		}
		return nil
	}))
	return NewProjector(s)
}

func TestLeaderboardLimitAndOrder(t *testing.T) {
	var f fixture
	f.user("low", models.RoleAmbassador, 10, 0)
	f.user("top", models.RoleAmbassador, 30, 1)
	f.user("mid", models.RoleAmbassador, 20, 2)
	f.contact("top", models.StatusApproved)
	f.contact("top", models.StatusApproved)
	f.contact("top", models.StatusPending)
	f.contact("mid", models.StatusRejected)
	p := f.open(t)

	board, err := p.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Rank: 1, UserID: "top", Name: "User top", Credits: 30, ApprovedContacts: 2},
		{Rank: 2, UserID: "mid", Name: "User mid", Credits: 20, ApprovedContacts: 0},
	}, board)
}

func TestLeaderboardDefaultLimitAndAdminsExcluded(t *testing.T) {
	var f fixture
	for i := 0; i < 12; i++ {
		f.user(string(rune('a'+i)), models.RoleAmbassador, i, i)
	}
	f.user("boss", models.RoleAdmin, 1000, 99)
	p := f.open(t)

	board, err := p.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, board, DefaultLimit)
	require.Equal(t, "l", board[0].UserID)
	for _, e := range board {
		require.NotEqual(t, "boss", e.UserID)
	}
}

func TestLeaderboardTiesBreakOnJoinDate(t *testing.T) {
	var f fixture
	f.user("late", models.RoleAmbassador, 5, 10)
	f.user("early", models.RoleAmbassador, 5, 1)
	f.user("b", models.RoleAmbassador, 5, 1)
	p := f.open(t)

	board, err := p.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, board, 3)
	require.Equal(t, "b", board[0].UserID)
	require.Equal(t, "early", board[1].UserID)
	require.Equal(t, "late", board[2].UserID)
	require.Equal(t, []int{1, 2, 3}, []int{board[0].Rank, board[1].Rank, board[2].Rank})
}

func TestUserStats(t *testing.T) {
	var f fixture
	f.user("u1", models.RoleAmbassador, 1, 0)
	f.user("u2", models.RoleAmbassador, 7, 1)
	f.contact("u1", models.StatusApproved)
	f.contact("u1", models.StatusPending)
	f.contact("u1", models.StatusRejected)
	f.contact("u2", models.StatusApproved)
	p := f.open(t)

	st, err := p.UserStats(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, &UserStats{
		TotalContacts:    3,
		ApprovedContacts: 1,
		PendingContacts:  1,
		RejectedContacts: 1,
		TotalCredits:     1,
		UserRank:         2,
	}, st)
}

func TestUserStatsRankZero(t *testing.T) {
	var f fixture
	f.user("admin", models.RoleAdmin, 50, 0)
	f.user("u1", models.RoleAmbassador, 1, 1)
	p := f.open(t)
	ctx := context.Background()

	st, err := p.UserStats(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, 0, st.UserRank)
	require.Equal(t, 50, st.TotalCredits)

	st, err = p.UserStats(ctx, "unknown")
	require.NoError(t, err)
	require.Equal(t, &UserStats{}, st)
}

func TestUserStatsOutsideRankWindow(t *testing.T) {
	var f fixture
	for i := 0; i < rankWindow; i++ {
		f.user(store.NewID(), models.RoleAmbassador, 10, i)
	}
	f.user("last", models.RoleAmbassador, 0, rankWindow)
	p := f.open(t)

	st, err := p.UserStats(context.Background(), "last")
	require.NoError(t, err)
	require.Equal(t, 0, st.UserRank)
}

func TestReadsAreRepeatable(t *testing.T) {
	var f fixture
	f.user("u1", models.RoleAmbassador, 3, 0)
	f.user("u2", models.RoleAmbassador, 3, 0)
	f.contact("u1", models.StatusApproved)
	p := f.open(t)
	ctx := context.Background()

	b1, err := p.Leaderboard(ctx, 10)
	require.NoError(t, err)
	b2, err := p.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, b1, b2)

	s1, err := p.UserStats(ctx, "u2")
	require.NoError(t, err)
	s2, err := p.UserStats(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, s1, s2)
}
