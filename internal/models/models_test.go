package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSettings(t *testing.T) {
	require.Equal(t, Settings{
		AllowedEmailDomain:        "kprit.edu.in",
		CreditsPerApproval:        1,
		MaxPendingContactsPerUser: 10,
	}, ParseSettings(DefaultSettings()))

	got := ParseSettings([]Setting{
		{Key: SettingAllowedEmailDomain, Value: "example.edu"},
		{Key: SettingCreditsPerApproval, Value: "zero"},
		{Key: SettingMaxPendingContactsPerUser, Value: "0"},
		{Key: "theme", Value: "dark"},
	})
	require.Equal(t, "example.edu", got.AllowedEmailDomain)
	require.Equal(t, 1, got.CreditsPerApproval)
	require.Equal(t, 0, got.MaxPendingContactsPerUser)

	require.Equal(t, 1, ParseSettings([]Setting{{Key: SettingCreditsPerApproval, Value: "-2"}}).CreditsPerApproval)
}

func TestContactTerminal(t *testing.T) {
	require.False(t, Contact{Status: StatusPending}.Terminal())
	require.True(t, Contact{Status: StatusApproved}.Terminal())
	require.True(t, Contact{Status: StatusRejected}.Terminal())
}
