package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/junii03/banking-ledger/internal/models"
)

type AuditRepository interface {
	Record(ctx context.Context, log *models.AuditLog) error
	GetByEntityID(ctx context.Context, entityType, entityID string) ([]*models.AuditLog, error)
}

type PostgresAuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

// Record inserts an audit entry outside of a ledger write, e.g. account creation.
func (r *PostgresAuditRepository) Record(ctx context.Context, log *models.AuditLog) error {
	return insertAudit(ctx, r.db, log)
}

// GetByEntityID retrieves audit logs for a specific entity type and ID, newest first.
func (r *PostgresAuditRepository) GetByEntityID(ctx context.Context, entityType, entityID string) ([]*models.AuditLog, error) {
	query := `SELECT id, entity_type, entity_id, action, old_value, new_value, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs by entity ID: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var oldValue, newValue []byte

		err := rows.Scan(&log.ID, &log.EntityType, &log.EntityID, &log.Action, &oldValue, &newValue, &log.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if oldValue != nil {
			log.OldValue = json.RawMessage(oldValue)
		}
		log.NewValue = json.RawMessage(newValue)

		logs = append(logs, log)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over audit logs: %w", err)
	}
	return logs, nil
}

func insertAudit(ctx context.Context, q querier, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	query := `INSERT INTO audit_logs (id, entity_type, entity_id, action, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING created_at`

	var oldValue any
	if log.OldValue != nil {
		oldValue = []byte(log.OldValue)
	}
	err := q.QueryRowContext(ctx, query,
		log.ID,
		log.EntityType,
		log.EntityID,
		log.Action,
		oldValue,
		[]byte(log.NewValue),
	).Scan(&log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// NewAuditLog marshals old and new payloads into an audit entry. A nil old
// payload is stored as SQL NULL.
func NewAuditLog(entityType, entityID, action string, oldValue, newValue any) (*models.AuditLog, error) {
	log := &models.AuditLog{EntityType: entityType, EntityID: entityID, Action: action}
	if oldValue != nil {
		raw, err := json.Marshal(oldValue)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal old audit value: %w", err)
		}
		log.OldValue = raw
	}
	raw, err := json.Marshal(newValue)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal new audit value: %w", err)
	}
	log.NewValue = raw
	return log, nil
}
