package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const assistantColumns = `id, name, specialty, description, instructions, model, external_profile_id, is_active, created_at`

// GetActiveAssistant retrieves an assistant that accepts new conversations
func (p *PostgresDB) GetActiveAssistant(ctx context.Context, id string) (*db.Assistant, error) {
	return p.getAssistant(ctx, `SELECT `+assistantColumns+` FROM assistants WHERE id = $1 AND is_active`, id)
}

// GetAssistant retrieves an assistant regardless of its active flag
func (p *PostgresDB) GetAssistant(ctx context.Context, id string) (*db.Assistant, error) {
	return p.getAssistant(ctx, `SELECT `+assistantColumns+` FROM assistants WHERE id = $1`, id)
}

func (p *PostgresDB) getAssistant(ctx context.Context, query, id string) (*db.Assistant, error) {
	if !validID(id) {
		return nil, db.ErrNotFound
	}

	var assistant db.Assistant
	if err := p.conn.GetContext(ctx, &assistant, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving assistant: %w", err)
	}
	return &assistant, nil
}

// UpsertAssistant inserts an assistant or refreshes the one bound to the same external profile
func (p *PostgresDB) UpsertAssistant(ctx context.Context, assistant *db.Assistant) (*db.Assistant, error) {
	if assistant.ID == "" {
		assistant.ID = uuid.New().String()
	}

	query := `
	INSERT INTO assistants (id, name, specialty, description, instructions, model, external_profile_id, is_active)
	VALUES (:id, :name, :specialty, :description, :instructions, :model, :external_profile_id, :is_active)
	ON CONFLICT (external_profile_id) DO UPDATE
	SET name = EXCLUDED.name,
	    specialty = EXCLUDED.specialty,
	    description = EXCLUDED.description,
	    instructions = EXCLUDED.instructions,
	    model = EXCLUDED.model,
	    is_active = EXCLUDED.is_active
	RETURNING ` + assistantColumns

	rows, err := p.conn.NamedQueryContext(ctx, query, assistant)
	if err != nil {
		return nil, fmt.Errorf("error upserting assistant: %w", err)
	}
	defer rows.Close()

	var saved db.Assistant
	if !rows.Next() {
		return nil, fmt.Errorf("error upserting assistant: no row returned")
	}
	if err := rows.StructScan(&saved); err != nil {
		return nil, fmt.Errorf("error scanning assistant: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"assistant_id": saved.ID, "specialty": saved.Specialty}).Info("Upserted assistant")
	return &saved, nil
}
