package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/velmon/busline/internal/domain"
	"github.com/velmon/busline/internal/inventory"
	"github.com/velmon/busline/internal/repository"
)

// testClock is settable so tests can march time forward.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t.UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeHoldRepo mimics the seat_holds table including its partial unique
// index: a second HOLD row for the same (trip, seat) fails regardless of
// interleaving, which is what makes the mutual-exclusion property hold.
type fakeHoldRepo struct {
	mu    sync.Mutex
	seq   int64
	holds map[int64]domain.SeatHold
}

func newFakeHoldRepo() *fakeHoldRepo {
	return &fakeHoldRepo{holds: make(map[int64]domain.SeatHold)}
}

func (f *fakeHoldRepo) Create(_ context.Context, hold *domain.SeatHold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.holds {
		if h.Status == domain.HoldStatusHold && h.TripID == hold.TripID && h.SeatNumber == hold.SeatNumber {
			return domain.ErrSeatUnavailable
		}
	}
	f.seq++
	hold.ID = f.seq
	hold.CreatedAt = hold.ExpiresAt.Add(-10 * time.Minute)
	f.holds[hold.ID] = *hold
	return nil
}

func (f *fakeHoldRepo) GetByID(_ context.Context, id int64) (*domain.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holds[id]
	if !ok {
		return nil, domain.ErrHoldNotFound
	}
	return &h, nil
}

func (f *fakeHoldRepo) Update(_ context.Context, hold *domain.SeatHold) (*domain.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.holds[hold.ID]; !ok {
		return nil, domain.ErrHoldNotFound
	}
	f.holds[hold.ID] = *hold
	h := *hold
	return &h, nil
}

func (f *fakeHoldRepo) UpdateStatus(_ context.Context, id int64, status domain.HoldStatus) (*domain.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.holds[id]
	if !ok {
		return nil, domain.ErrHoldNotFound
	}
	h.Status = status
	f.holds[id] = h
	return &h, nil
}

func (f *fakeHoldRepo) FindActive(_ context.Context, tripID int64, seatNumber string, now time.Time) (*domain.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.holds {
		if h.TripID == tripID && h.SeatNumber == seatNumber && h.Status == domain.HoldStatusHold && h.ExpiresAt.After(now) {
			hold := h
			return &hold, nil
		}
	}
	return nil, nil
}

func (f *fakeHoldRepo) List(_ context.Context, filter repository.HoldFilter) ([]domain.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SeatHold, 0)
	for _, h := range f.holds {
		if filter.TripID != nil && h.TripID != *filter.TripID {
			continue
		}
		if filter.PassengerID != nil && h.PassengerID != *filter.PassengerID {
			continue
		}
		if filter.Status != nil && h.Status != *filter.Status {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeHoldRepo) ListExpired(_ context.Context, now time.Time) ([]domain.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SeatHold, 0)
	for _, h := range f.holds {
		if h.Status == domain.HoldStatusHold && h.ExpiresAt.Before(now) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHoldRepo) ExpireBefore(_ context.Context, deadline time.Time) ([]domain.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SeatHold, 0)
	for id, h := range f.holds {
		if h.Status == domain.HoldStatusHold && h.ExpiresAt.Before(deadline) {
			h.Status = domain.HoldStatusExpired
			f.holds[id] = h
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHoldRepo) MarkSoldActive(_ context.Context, tripID int64, seatNumber string, passengerID int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, h := range f.holds {
		if h.TripID == tripID && h.SeatNumber == seatNumber && h.PassengerID == passengerID &&
			h.Status == domain.HoldStatusHold && h.ExpiresAt.After(now) {
			h.Status = domain.HoldStatusSold
			f.holds[id] = h
		}
	}
	return nil
}

var _ repository.HoldRepository = (*fakeHoldRepo)(nil)

// fakeCatalog serves trips, stops and passengers from memory.
type fakeCatalog struct {
	trips      map[int64]domain.Trip
	stops      map[int64]domain.Stop
	passengers map[int64]bool
}

func (f *fakeCatalog) GetTrip(_ context.Context, id int64) (*domain.Trip, error) {
	t, ok := f.trips[id]
	if !ok {
		return nil, domain.ErrTripNotFound
	}
	return &t, nil
}

func (f *fakeCatalog) ListTrips(_ context.Context) ([]domain.Trip, error) {
	out := make([]domain.Trip, 0, len(f.trips))
	for _, t := range f.trips {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeCatalog) GetStop(_ context.Context, id int64) (*domain.Stop, error) {
	s, ok := f.stops[id]
	if !ok {
		return nil, domain.ErrStopNotFound
	}
	return &s, nil
}

func (f *fakeCatalog) PassengerExists(_ context.Context, id int64) error {
	if !f.passengers[id] {
		return domain.ErrPassengerNotFound
	}
	return nil
}

var _ repository.CatalogRepository = (*fakeCatalog)(nil)

// noTickets satisfies the guard's ticket reads with an empty store.
type noTickets struct{}

func (noTickets) HasBlocking(context.Context, int64, string) (bool, error) {
	return false, nil
}

func (noTickets) AnyOverlap(context.Context, int64, string, domain.StopRange) (bool, error) {
	return false, nil
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*ReservationService, *fakeHoldRepo, *testClock) {
	holds := newFakeHoldRepo()
	catalog := &fakeCatalog{
		trips: map[int64]domain.Trip{
			1: {ID: 1, RouteID: 10, Status: domain.TripStatusScheduled, DepartureAt: t0.Add(2 * time.Hour)},
			2: {ID: 2, RouteID: 10, Status: domain.TripStatusDeparted, DepartureAt: t0.Add(-time.Hour)},
		},
		passengers: map[int64]bool{42: true, 43: true},
	}
	clk := newTestClock(t0)
	guard := inventory.NewGuard(holds, noTickets{}, clk)
	svc := NewReservationService(holds, catalog, guard, nil, nil, clk, "seat-events")
	return svc, holds, clk
}

func TestReservationService_CreateHold(t *testing.T) {
	ctx := context.Background()

	t.Run("creates hold expiring in ten minutes", func(t *testing.T) {
		svc, _, _ := newTestService()

		hold, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)
		assert.Equal(t, domain.HoldStatusHold, hold.Status)
		assert.Equal(t, t0.Add(10*time.Minute), hold.ExpiresAt)
		assert.NotZero(t, hold.ID)
	})

	t.Run("second hold on the same seat conflicts", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)
		_, err = svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 43})
		assert.ErrorIs(t, err, domain.ErrSeatUnavailable)
	})

	t.Run("different seats do not conflict", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)
		_, err = svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A13", PassengerID: 43})
		assert.NoError(t, err)
	})

	t.Run("unknown trip", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 99, SeatNumber: "A12", PassengerID: 42})
		assert.ErrorIs(t, err, domain.ErrTripNotFound)
	})

	t.Run("departed trip", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 2, SeatNumber: "A12", PassengerID: 42})
		assert.ErrorIs(t, err, domain.ErrTripNotSellable)
	})

	t.Run("unknown passenger", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 99})
		assert.ErrorIs(t, err, domain.ErrPassengerNotFound)
	})

	t.Run("missing seat number", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, PassengerID: 42})
		assert.ErrorIs(t, err, domain.ErrSeatRequired)
	})
}

func TestReservationService_CreateHold_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case domain.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one racer wins the seat")
	assert.Equal(t, racers-1, conflicts)
}

func TestReservationService_ExpiryMonotonicity(t *testing.T) {
	ctx := context.Background()
	svc, _, clk := newTestService()

	_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
	assert.NoError(t, err)

	// At the expiry instant the hold is not yet reported.
	clk.Advance(10 * time.Minute)
	expired, err := svc.ListExpiredHolds(ctx)
	assert.NoError(t, err)
	assert.Empty(t, expired)

	clk.Advance(time.Second)
	expired, err = svc.ListExpiredHolds(ctx)
	assert.NoError(t, err)
	assert.Len(t, expired, 1)
}

func TestReservationService_SweepIdempotence(t *testing.T) {
	ctx := context.Background()
	svc, holds, clk := newTestService()

	hold, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
	assert.NoError(t, err)

	clk.Advance(11 * time.Minute)

	first, err := svc.SweepExpiredHolds(ctx)
	assert.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Equal(t, domain.HoldStatusExpired, first[0].Status)

	second, err := svc.SweepExpiredHolds(ctx)
	assert.NoError(t, err)
	assert.Empty(t, second, "second sweep with no new holds is a no-op")

	stored, err := holds.GetByID(ctx, hold.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.HoldStatusExpired, stored.Status)
}

func TestReservationService_ExpiredSeatBecomesHoldable(t *testing.T) {
	ctx := context.Background()
	svc, _, clk := newTestService()

	_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
	assert.NoError(t, err)

	clk.Advance(11 * time.Minute)
	expired, err := svc.SweepExpiredHolds(ctx)
	assert.NoError(t, err)
	assert.Len(t, expired, 1)

	hold, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 43})
	assert.NoError(t, err, "swept seat is free for the next passenger")
	assert.Equal(t, int64(43), hold.PassengerID)
}

func TestReservationService_CancelHold(t *testing.T) {
	ctx := context.Background()

	t.Run("soft cancel keeps the record", func(t *testing.T) {
		svc, holds, _ := newTestService()

		hold, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)

		cancelled, err := svc.CancelHold(ctx, hold.ID)
		assert.NoError(t, err)
		assert.Equal(t, domain.HoldStatusCancelled, cancelled.Status)

		stored, err := holds.GetByID(ctx, hold.ID)
		assert.NoError(t, err)
		assert.Equal(t, domain.HoldStatusCancelled, stored.Status)
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		svc, _, _ := newTestService()

		hold, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)

		_, err = svc.CancelHold(ctx, hold.ID)
		assert.NoError(t, err)
		again, err := svc.CancelHold(ctx, hold.ID)
		assert.NoError(t, err)
		assert.Equal(t, domain.HoldStatusCancelled, again.Status)
	})

	t.Run("cancel frees the seat", func(t *testing.T) {
		svc, _, _ := newTestService()

		hold, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)
		_, err = svc.CancelHold(ctx, hold.ID)
		assert.NoError(t, err)

		_, err = svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 43})
		assert.NoError(t, err)
	})

	t.Run("unknown hold", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CancelHold(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrHoldNotFound)
	})
}

func TestReservationService_UpdateHold(t *testing.T) {
	ctx := context.Background()

	t.Run("seat move re-runs the guard", func(t *testing.T) {
		svc, _, _ := newTestService()

		hold, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)
		_, err = svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "B01", PassengerID: 43})
		assert.NoError(t, err)

		taken := "B01"
		_, err = svc.UpdateHold(ctx, hold.ID, domain.HoldPatch{SeatNumber: &taken})
		assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

		free := "B02"
		updated, err := svc.UpdateHold(ctx, hold.ID, domain.HoldPatch{SeatNumber: &free})
		assert.NoError(t, err)
		assert.Equal(t, "B02", updated.SeatNumber)
	})

	t.Run("update never recomputes expiry", func(t *testing.T) {
		svc, _, clk := newTestService()

		hold, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)

		clk.Advance(5 * time.Minute)
		seat := "C07"
		updated, err := svc.UpdateHold(ctx, hold.ID, domain.HoldPatch{SeatNumber: &seat})
		assert.NoError(t, err)
		assert.Equal(t, hold.ExpiresAt, updated.ExpiresAt)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		svc, _, _ := newTestService()

		hold, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)

		bogus := domain.HoldStatus("PENDING")
		_, err = svc.UpdateHold(ctx, hold.ID, domain.HoldPatch{Status: &bogus})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})
}

// MockSeatLocker exercises the advisory redis lock path.
type MockSeatLocker struct {
	mock.Mock
}

func (m *MockSeatLocker) AcquireSeatLock(ctx context.Context, tripID int64, seatNumber string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, tripID, seatNumber, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeatLocker) ReleaseSeatLock(ctx context.Context, tripID int64, seatNumber string) error {
	args := m.Called(ctx, tripID, seatNumber)
	return args.Error(0)
}

func TestReservationService_AdvisoryLock(t *testing.T) {
	ctx := context.Background()

	t.Run("held advisory lock rejects before the store", func(t *testing.T) {
		svc, holds, _ := newTestService()
		locker := &MockSeatLocker{}
		svc.locker = locker

		locker.On("AcquireSeatLock", ctx, int64(1), "A12", 10*time.Minute).Return(false, nil).Once()

		_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.ErrorIs(t, err, domain.ErrSeatUnavailable)
		all, _ := holds.List(ctx, repository.HoldFilter{})
		assert.Empty(t, all, "nothing written when the advisory lock is held")
		locker.AssertExpectations(t)
	})

	t.Run("lock released when the guard rejects", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 42})
		assert.NoError(t, err)

		locker := &MockSeatLocker{}
		svc.locker = locker
		locker.On("AcquireSeatLock", ctx, int64(1), "A12", 10*time.Minute).Return(true, nil).Once()
		locker.On("ReleaseSeatLock", ctx, int64(1), "A12").Return(nil).Once()

		_, err = svc.CreateHold(ctx, CreateHoldInput{TripID: 1, SeatNumber: "A12", PassengerID: 43})
		assert.ErrorIs(t, err, domain.ErrSeatUnavailable)
		locker.AssertExpectations(t)
	})
}
