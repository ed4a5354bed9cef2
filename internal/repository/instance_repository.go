package repository

import (
	"context"
	"fmt"
	"whatsapp_crm/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type InstanceRepository struct {
	db *pgxpool.Pool
}

func NewInstanceRepository(db *pgxpool.Pool) *InstanceRepository {
	return &InstanceRepository{db: db}
}

func (r *InstanceRepository) Create(ctx context.Context, in *entities.Instance) error {
	if in.Status == "" {
		in.Status = "created"
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO whatsapp_instances (instance_name, instance_id, status, api_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, in.InstanceName, in.InstanceID, in.Status, in.APIKey).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

func (r *InstanceRepository) List(ctx context.Context) ([]entities.Instance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, instance_name, COALESCE(instance_id, ''), status, COALESCE(api_key, ''), created_at
		FROM whatsapp_instances
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var out []entities.Instance
	for rows.Next() {
		var in entities.Instance
		if err := rows.Scan(&in.ID, &in.InstanceName, &in.InstanceID, &in.Status, &in.APIKey, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
