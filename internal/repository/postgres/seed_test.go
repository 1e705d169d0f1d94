package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"medmind-api/internal/repository/db"
	"medmind-api/internal/testutil"
)

func TestSeedDemoData(t *testing.T) {
	var created []string
	var upserted []*db.Assistant
	mockDB := &testutil.MockDatabase{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*db.User, error) {
			return nil, db.ErrNotFound
		},
		CreateUserFunc: func(ctx context.Context, username, email, password string, status db.SubscriptionStatus, expiresAt *time.Time) (*db.User, error) {
			if status != db.SubscriptionTrial || expiresAt == nil {
				t.Errorf("demo user created with status %s expiry %v", status, expiresAt)
			}
			created = append(created, username)
			return &db.User{ID: "u1", Username: username}, nil
		},
		UpsertAssistantFunc: func(ctx context.Context, a *db.Assistant) (*db.Assistant, error) {
			upserted = append(upserted, a)
			saved := *a
			saved.ID = "a" + a.Specialty
			return &saved, nil
		},
	}

	profiles := map[string]string{"CARDIOLOGY": "asst_cardio", "PHARMACOLOGY": "asst_pharm"}
	if err := SeedDemoData(context.Background(), mockDB, profiles, time.Hour); err != nil {
		t.Fatalf("SeedDemoData() error = %v", err)
	}

	if len(created) != 1 || created[0] != DemoUsername {
		t.Errorf("created users = %v, want [%s]", created, DemoUsername)
	}
	if len(upserted) != 2 {
		t.Fatalf("upserted %d assistants, want 2", len(upserted))
	}
	for _, a := range upserted {
		if !a.IsActive || a.ExternalProfileID != profiles[a.Specialty] {
			t.Errorf("assistant %s seeded as %+v", a.Specialty, a)
		}
	}
	if DemoAssistants[0].ExternalProfileID != "" {
		t.Error("seeding mutated the assistant templates")
	}
}

func TestSeedDemoData_ExistingUser(t *testing.T) {
	mockDB := &testutil.MockDatabase{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*db.User, error) {
			return &db.User{ID: "u1", Username: username}, nil
		},
	}

	if err := SeedDemoData(context.Background(), mockDB, nil, time.Hour); err != nil {
		t.Errorf("SeedDemoData() error = %v", err)
	}
}

func TestSeedDemoData_Errors(t *testing.T) {
	tests := []struct {
		name   string
		lookup error
		upsert error
	}{
		{name: "lookup failure", lookup: errors.New("connection refused")},
		{name: "upsert failure", lookup: nil, upsert: errors.New("constraint violated")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB := &testutil.MockDatabase{
				GetUserByUsernameFunc: func(ctx context.Context, username string) (*db.User, error) {
					if tt.lookup != nil {
						return nil, tt.lookup
					}
					return &db.User{ID: "u1"}, nil
				},
				UpsertAssistantFunc: func(ctx context.Context, a *db.Assistant) (*db.Assistant, error) {
					return nil, tt.upsert
				},
			}

			err := SeedDemoData(context.Background(), mockDB, map[string]string{"NEUROLOGY": "asst_neuro"}, time.Hour)
			if err == nil {
				t.Error("SeedDemoData() expected error")
			}
		})
	}
}
