package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
)

type ServiceRepository struct {
	db *pgxpool.Pool
}

func NewServiceRepository(db *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{db: db}
}

const serviceColumns = `id, platform, service_type, name, rate, min_quantity,
	max_quantity, enabled, provider_key, description, created_at`

func scanService(row pgx.Row) (*domain.Service, error) {
	var s domain.Service
	err := row.Scan(&s.ID, &s.Platform, &s.ServiceType, &s.Name, &s.Rate,
		&s.MinQuantity, &s.MaxQuantity, &s.Enabled, &s.ProviderKey,
		&s.Description, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ServiceRepository) GetService(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`
	svc, err := scanService(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

func (r *ServiceRepository) List(ctx context.Context, platform string) ([]domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services
		WHERE enabled AND ($1 = '' OR platform = $1)
		ORDER BY platform, name`

	rows, err := r.db.Query(ctx, query, platform)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("list services: %w", err)
		}
		services = append(services, *s)
	}
	return services, rows.Err()
}
