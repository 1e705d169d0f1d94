package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"

	"github.com/sirupsen/logrus"
)

const (
	DemoUsername = "demo"
	DemoPassword = "demo1234"
)

// DemoAssistants are the specialty assistants created by SeedDemoData
var DemoAssistants = []db.Assistant{
	{
		Name:         "Cardiology Tutor",
		Specialty:    "CARDIOLOGY",
		Description:  "ECG interpretation, heart failure and arrhythmia management",
		Instructions: "You are a cardiology tutor for medical students. Explain clinical reasoning step by step.",
		Model:        "gpt-4-turbo-preview",
	},
	{
		Name:         "Neurology Tutor",
		Specialty:    "NEUROLOGY",
		Description:  "Neurological examination, lesion localization and stroke care",
		Instructions: "You are a neurology tutor for medical students. Localize the lesion before discussing treatment.",
		Model:        "gpt-4-turbo-preview",
	},
	{
		Name:         "Pharmacology Tutor",
		Specialty:    "PHARMACOLOGY",
		Description:  "Mechanisms of action, interactions and dosing",
		Instructions: "You are a pharmacology tutor for medical students. Always mention major interactions.",
		Model:        "gpt-4",
	},
}

// SeedDemoData creates the demo user if it doesn't exist and upserts the demo assistants.
// profiles maps a specialty to its external assistant profile id; specialties without one are skipped.
func SeedDemoData(ctx context.Context, database db.Database, profiles map[string]string, trial time.Duration) error {
	if _, err := database.GetUserByUsername(ctx, DemoUsername); err == nil {
		logger.Log.Info("Demo user already exists, skipping seed")
	} else if errors.Is(err, db.ErrNotFound) {
		expiresAt := time.Now().Add(trial)
		_, err = database.CreateUser(ctx, DemoUsername, "demo@example.com", DemoPassword, db.SubscriptionTrial, &expiresAt)
		if err != nil && !errors.Is(err, db.ErrDuplicate) {
			return fmt.Errorf("error seeding demo user: %w", err)
		}
		logger.Log.Info("Demo user seeded successfully")
	} else {
		return fmt.Errorf("error looking up demo user: %w", err)
	}

	for _, template := range DemoAssistants {
		profileID := profiles[template.Specialty]
		if profileID == "" {
			logger.Log.WithField("specialty", template.Specialty).Warn("No assistant profile configured, skipping")
			continue
		}

		assistant := template
		assistant.ExternalProfileID = profileID
		assistant.IsActive = true

		saved, err := database.UpsertAssistant(ctx, &assistant)
		if err != nil {
			return fmt.Errorf("error seeding %s assistant: %w", template.Specialty, err)
		}
		logger.Log.WithFields(logrus.Fields{
			"assistant_id": saved.ID,
			"specialty":    saved.Specialty,
			"profile_id":   profileID,
		}).Info("Seeded assistant")
	}

	return nil
}
