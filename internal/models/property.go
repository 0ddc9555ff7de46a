package models

import "time"

// PropertyType classifies a listing.
type PropertyType string

const (
	PropertyTypeApartment  PropertyType = "APARTMENT"
	PropertyTypeHouse      PropertyType = "HOUSE"
	PropertyTypeVilla      PropertyType = "VILLA"
	PropertyTypePlot       PropertyType = "PLOT"
	PropertyTypeCommercial PropertyType = "COMMERCIAL"
	PropertyTypeOffice     PropertyType = "OFFICE"
)

// ListingType distinguishes sale from rent listings.
type ListingType string

const (
	ListingTypeSale ListingType = "SALE"
	ListingTypeRent ListingType = "RENT"
)

// PropertyStatus is the publication state of a property.
type PropertyStatus string

const (
	PropertyStatusDraft     PropertyStatus = "DRAFT"
	PropertyStatusAvailable PropertyStatus = "AVAILABLE"
	PropertyStatusPending   PropertyStatus = "PENDING"
	PropertyStatusSold      PropertyStatus = "SOLD"
	PropertyStatusRented    PropertyStatus = "RENTED"
	PropertyStatusArchived  PropertyStatus = "ARCHIVED"
)

// Property is a real-estate listing managed from the console.
type Property struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Type        PropertyType   `db:"type" json:"type"`
	ListingType ListingType    `db:"listing_type" json:"listingType"`
	Status      PropertyStatus `db:"status" json:"status"`
	Price       float64        `db:"price" json:"price"`
	Bedrooms    int            `db:"bedrooms" json:"bedrooms"`
	Bathrooms   int            `db:"bathrooms" json:"bathrooms"`
	Area        float64        `db:"area" json:"area"`
	Address     string         `db:"address" json:"address"`
	CityID      string         `db:"city_id" json:"cityId"`
	LocalityID  *string        `db:"locality_id" json:"localityId,omitempty"`
	OwnerID     *string        `db:"owner_id" json:"ownerId,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// PropertyFilter captures listing criteria for properties.
type PropertyFilter struct {
	Search      string
	CityIDs     []string
	LocalityIDs []string
	Types       []PropertyType
	Statuses    []PropertyStatus
	ListingType *ListingType
	MinPrice    *float64
	MaxPrice    *float64
	MinBedrooms *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	Limit       int
	SortBy      string
	SortOrder   string
}
