package trips

import (
	"context"

	"github.com/velmon/busline/internal/domain"
	"github.com/velmon/busline/internal/repository"
)

type TripUseCase interface {
	List(ctx context.Context) ([]domain.Trip, error)
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
}

// TripCache is a read-through cache for the trip list only. Seat
// inventory never goes through it.
type TripCache interface {
	GetTrips(ctx context.Context) ([]domain.Trip, error)
	SetTrips(ctx context.Context, trips []domain.Trip) error
}

type TripService struct {
	catalog repository.CatalogRepository
	cache   TripCache
}

func NewTripService(catalog repository.CatalogRepository, cache TripCache) *TripService {
	return &TripService{catalog: catalog, cache: cache}
}

func (s *TripService) List(ctx context.Context) ([]domain.Trip, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetTrips(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	trips, err := s.catalog.ListTrips(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetTrips(ctx, trips)
	}
	return trips, nil
}

func (s *TripService) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	return s.catalog.GetTrip(ctx, id)
}

var _ TripUseCase = (*TripService)(nil)
