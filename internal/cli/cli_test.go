package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"medmind-api/internal/config"
	"medmind-api/internal/repository/db"
	"medmind-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	*testutil.MockDatabase
	closed bool
}

func (m *mockStore) Close() error {
	m.closed = true
	return nil
}

// useStore swaps the config loader and database for the duration of a test
func useStore(t *testing.T, database *mockStore) {
	t.Helper()
	prevLoad, prevConnect := loadConfig, connect
	t.Cleanup(func() { loadConfig, connect = prevLoad, prevConnect })

	loadConfig = func() (*config.AppConfig, error) { return testutil.NewMockConfig(), nil }
	connect = func(cfg config.DatabaseConfig) (store, error) { return database, nil }
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLimitsCommand(t *testing.T) {
	expires := time.Date(2030, 1, 2, 15, 4, 0, 0, time.UTC)
	database := &mockStore{MockDatabase: &testutil.MockDatabase{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*db.User, error) {
			return &db.User{
				ID:                    "u1",
				Username:              username,
				SubscriptionStatus:    db.SubscriptionTrial,
				SubscriptionExpiresAt: &expires,
				TotalTokensUsed:       2500,
			}, nil
		},
	}}
	useStore(t, database)

	out, err := execute(t, "limits", "medstudent")

	require.NoError(t, err)
	assert.Contains(t, out, "Subscription: TRIAL")
	assert.Contains(t, out, "Tokens:       2500 / 10000 (25%)")
	assert.Contains(t, out, "Remaining:    7500")
	assert.Contains(t, out, "Expires:      2030-01-02 15:04")
	assert.True(t, database.closed)
}

func TestStatsCommand(t *testing.T) {
	database := &mockStore{MockDatabase: &testutil.MockDatabase{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*db.User, error) {
			return &db.User{ID: "u1", Username: username}, nil
		},
		GetUserStatsFunc: func(ctx context.Context, userID string) (*db.UserStats, error) {
			assert.Equal(t, "u1", userID)
			return &db.UserStats{TotalConversations: 4, ActiveConversations: 3, TotalMessages: 12, TotalTokensUsed: 900}, nil
		},
	}}
	useStore(t, database)

	out, err := execute(t, "stats", "medstudent")

	require.NoError(t, err)
	assert.Contains(t, out, "Conversations: 4 (3 active)")
	assert.Contains(t, out, "Messages:      12")
	assert.Contains(t, out, "Tokens used:   900")
}

func TestUsageCommands_UnknownUser(t *testing.T) {
	useStore(t, &mockStore{MockDatabase: &testutil.MockDatabase{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*db.User, error) {
			return nil, db.ErrNotFound
		},
	}})

	for _, name := range []string{"limits", "stats"} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, name, "ghost")
			require.Error(t, err)
			assert.Contains(t, err.Error(), `user "ghost" not found`)
		})
	}
}

func TestUsageCommands_RequireUsername(t *testing.T) {
	useStore(t, &mockStore{MockDatabase: &testutil.MockDatabase{}})

	_, err := execute(t, "limits")
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	var profiles []string
	database := &mockStore{MockDatabase: &testutil.MockDatabase{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*db.User, error) {
			return &db.User{ID: "u1", Username: username}, nil
		},
		UpsertAssistantFunc: func(ctx context.Context, a *db.Assistant) (*db.Assistant, error) {
			profiles = append(profiles, a.Specialty+"="+a.ExternalProfileID)
			return a, nil
		},
	}}
	useStore(t, database)

	out, err := execute(t, "seed", "--profile", "cardiology=asst_c", "--profile", "NEUROLOGY=asst_n")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"CARDIOLOGY=asst_c", "NEUROLOGY=asst_n"}, profiles)
	assert.True(t, strings.HasPrefix(out, `Seeded demo user "demo"`))
}

func TestWithStore_ConfigError(t *testing.T) {
	prev := loadConfig
	t.Cleanup(func() { loadConfig = prev })
	loadConfig = func() (*config.AppConfig, error) { return nil, errors.New("JWT_SECRET environment variable must be set") }

	_, err := execute(t, "stats", "medstudent")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestPricingCommand(t *testing.T) {
	useStore(t, &mockStore{MockDatabase: &testutil.MockDatabase{}})

	out, err := execute(t, "pricing")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "gpt-4-turbo-preview")
	assert.Contains(t, lines[1], "default")
	assert.Contains(t, lines[2], "0.0300")
	assert.NotContains(t, lines[3], "default")
}
