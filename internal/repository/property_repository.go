package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
)

const propertyColumns = `id, title, description, type, listing_type, status, price, bedrooms, bathrooms, area, address,
	city_id, locality_id, owner_id, created_at, updated_at`

var propertySorts = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"price":      "price",
	"title":      "title",
	"bedrooms":   "bedrooms",
	"area":       "area",
}

// PropertyRepository provides database access for property listings.
type PropertyRepository struct {
	db *sqlx.DB
}

// NewPropertyRepository creates a new instance of PropertyRepository.
func NewPropertyRepository(db *sqlx.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// List returns properties matching the filter with the total match count.
func (r *PropertyRepository) List(ctx context.Context, filter models.PropertyFilter) ([]models.Property, int, error) {
	baseQuery := `FROM properties WHERE 1=1`
	var args []interface{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, containsPattern(search))
		n := len(args)
		baseQuery += fmt.Sprintf(` AND (title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\' OR address ILIKE $%d ESCAPE '\')`, n, n, n)
	}
	if len(filter.CityIDs) > 0 {
		args = append(args, pq.Array(filter.CityIDs))
		baseQuery += fmt.Sprintf(" AND city_id = ANY($%d)", len(args))
	}
	if len(filter.LocalityIDs) > 0 {
		args = append(args, pq.Array(filter.LocalityIDs))
		baseQuery += fmt.Sprintf(" AND locality_id = ANY($%d)", len(args))
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		baseQuery += fmt.Sprintf(" AND type = ANY($%d)", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		baseQuery += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if filter.ListingType != nil {
		args = append(args, string(*filter.ListingType))
		baseQuery += fmt.Sprintf(" AND listing_type = $%d", len(args))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		baseQuery += fmt.Sprintf(" AND price >= $%d", len(args))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		baseQuery += fmt.Sprintf(" AND price <= $%d", len(args))
	}
	if filter.MinBedrooms != nil {
		args = append(args, *filter.MinBedrooms)
		baseQuery += fmt.Sprintf(" AND bedrooms >= $%d", len(args))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		baseQuery += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		baseQuery += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	sortBy, ok := propertySorts[filter.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := pagination.Normalize(pagination.Request{Page: filter.Page, Limit: filter.Limit})
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d", propertyColumns, baseQuery, sortBy, sortOrder, page.Limit, page.Offset())

	var props []models.Property
	if err := r.db.SelectContext(ctx, &props, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}
	return props, total, nil
}

// FindByID returns a property by identifier.
func (r *PropertyRepository) FindByID(ctx context.Context, id string) (*models.Property, error) {
	query := fmt.Sprintf("SELECT %s FROM properties WHERE id = $1 LIMIT 1", propertyColumns)
	var prop models.Property
	if err := r.db.GetContext(ctx, &prop, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find property by id: %w", err)
	}
	return &prop, nil
}

// Create inserts a new property.
func (r *PropertyRepository) Create(ctx context.Context, prop *models.Property) error {
	if prop.ID == "" {
		prop.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	prop.CreatedAt = now
	prop.UpdatedAt = now
	const query = `INSERT INTO properties (id, title, description, type, listing_type, status, price, bedrooms, bathrooms, area, address, city_id, locality_id, owner_id, created_at, updated_at)
		VALUES (:id, :title, :description, :type, :listing_type, :status, :price, :bedrooms, :bathrooms, :area, :address, :city_id, :locality_id, :owner_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, prop); err != nil {
		return fmt.Errorf("create property: %w", translate(err))
	}
	return nil
}

// Update persists every mutable column of a property.
func (r *PropertyRepository) Update(ctx context.Context, prop *models.Property) error {
	prop.UpdatedAt = time.Now().UTC()
	const query = `UPDATE properties SET title = :title, description = :description, type = :type, listing_type = :listing_type,
		status = :status, price = :price, bedrooms = :bedrooms, bathrooms = :bathrooms, area = :area, address = :address,
		city_id = :city_id, locality_id = :locality_id, owner_id = :owner_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, prop)
	if err != nil {
		return fmt.Errorf("update property: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus sets the publication status of a property.
func (r *PropertyRepository) UpdateStatus(ctx context.Context, id string, status models.PropertyStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE properties SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update property status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a property.
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
