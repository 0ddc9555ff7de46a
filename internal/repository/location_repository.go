package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
)

// LocationRepository reads the city and locality catalogue.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository creates a new instance of LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// ListCities returns every city ordered by name.
func (r *LocationRepository) ListCities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	if err := r.db.SelectContext(ctx, &cities, `SELECT id, name, state FROM cities ORDER BY name ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

// FindCities returns the cities that exist among ids.
func (r *LocationRepository) FindCities(ctx context.Context, ids []string) ([]models.City, error) {
	if len(ids) == 0 {
		return []models.City{}, nil
	}
	var cities []models.City
	const query = `SELECT id, name, state FROM cities WHERE id = ANY($1) ORDER BY name ASC, id ASC`
	if err := r.db.SelectContext(ctx, &cities, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find cities: %w", err)
	}
	return cities, nil
}

// ListLocalities returns localities, restricted to cityIDs when given.
func (r *LocationRepository) ListLocalities(ctx context.Context, cityIDs []string) ([]models.Locality, error) {
	query := `SELECT id, city_id, name FROM localities`
	var args []interface{}
	if len(cityIDs) > 0 {
		query += ` WHERE city_id = ANY($1)`
		args = append(args, pq.Array(cityIDs))
	}
	query += ` ORDER BY name ASC, id ASC`

	var localities []models.Locality
	if err := r.db.SelectContext(ctx, &localities, query, args...); err != nil {
		return nil, fmt.Errorf("list localities: %w", err)
	}
	return localities, nil
}

// FindLocalities returns the localities that exist among ids.
func (r *LocationRepository) FindLocalities(ctx context.Context, ids []string) ([]models.Locality, error) {
	if len(ids) == 0 {
		return []models.Locality{}, nil
	}
	var localities []models.Locality
	const query = `SELECT id, city_id, name FROM localities WHERE id = ANY($1) ORDER BY name ASC, id ASC`
	if err := r.db.SelectContext(ctx, &localities, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find localities: %w", err)
	}
	return localities, nil
}
