package service

import (
	"context"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
)

type locationCatalogue interface {
	ListCities(ctx context.Context) ([]models.City, error)
	ListLocalities(ctx context.Context, cityIDs []string) ([]models.Locality, error)
}

// LocationService serves the city and locality catalogue.
type LocationService struct {
	repo  locationCatalogue
	cache *CacheService
}

// NewLocationService creates an instance of LocationService.
func NewLocationService(repo locationCatalogue, cache *CacheService) *LocationService {
	return &LocationService{repo: repo, cache: cache}
}

// Cities lists every city.
func (s *LocationService) Cities(ctx context.Context) ([]models.City, bool, error) {
	return cached(ctx, s.cache, DetailKey(ResourceLocations, "cities"), func() ([]models.City, error) {
		cities, err := s.repo.ListCities(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cities")
		}
		if cities == nil {
			cities = []models.City{}
		}
		return cities, nil
	})
}

// Localities lists localities of cityIDs, or all of them when none are given.
func (s *LocationService) Localities(ctx context.Context, cityIDs []string) ([]models.Locality, bool, error) {
	cityIDs = uniqueStrings(cityIDs)
	return cached(ctx, s.cache, ListKey(ResourceLocations, cityIDs), func() ([]models.Locality, error) {
		localities, err := s.repo.ListLocalities(ctx, cityIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list localities")
		}
		if localities == nil {
			localities = []models.Locality{}
		}
		return localities, nil
	})
}
