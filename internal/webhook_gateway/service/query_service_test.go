package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/sponsor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSponsorRepository struct {
	mock.Mock
}

func (m *MockSponsorRepository) Create(ctx context.Context, s *sponsor.Sponsor) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSponsorRepository) GetByID(ctx context.Context, id uuid.UUID) (*sponsor.Sponsor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sponsor.Sponsor), args.Error(1)
}

func (m *MockSponsorRepository) GetByDonorAndBeneficiary(ctx context.Context, donorKey string, beneficiaryID uuid.UUID) (*sponsor.Sponsor, error) {
	args := m.Called(ctx, donorKey, beneficiaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sponsor.Sponsor), args.Error(1)
}

func (m *MockSponsorRepository) LockByDonorAndBeneficiary(ctx context.Context, donorKey string, beneficiaryID uuid.UUID) (*sponsor.Sponsor, error) {
	args := m.Called(ctx, donorKey, beneficiaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sponsor.Sponsor), args.Error(1)
}

func (m *MockSponsorRepository) Update(ctx context.Context, s *sponsor.Sponsor) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSponsorRepository) SetTotals(ctx context.Context, id uuid.UUID, totalDonated, donationCount int64, firstDonationAt, lastDonationAt time.Time) error {
	args := m.Called(ctx, id, totalDonated, donationCount, firstDonationAt, lastDonationAt)
	return args.Error(0)
}

func (m *MockSponsorRepository) ListByBeneficiaryID(ctx context.Context, beneficiaryID uuid.UUID) ([]*sponsor.Sponsor, error) {
	args := m.Called(ctx, beneficiaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sponsor.Sponsor), args.Error(1)
}

func (m *MockSponsorRepository) ListByDonorKey(ctx context.Context, donorKey string) ([]*sponsor.Sponsor, error) {
	args := m.Called(ctx, donorKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sponsor.Sponsor), args.Error(1)
}

func (m *MockSponsorRepository) List(ctx context.Context, limit, offset int) ([]*sponsor.Sponsor, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sponsor.Sponsor), args.Error(1)
}

func (m *MockSponsorRepository) WithTx(tx pgx.Tx) sponsor.Repository {
	m.Called(tx)
	return m
}

type MockBeneficiaryRepository struct {
	mock.Mock
}

func (m *MockBeneficiaryRepository) GetByID(ctx context.Context, id uuid.UUID) (*beneficiary.Beneficiary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*beneficiary.Beneficiary), args.Error(1)
}

func (m *MockBeneficiaryRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBeneficiaryRepository) RecomputeAggregates(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBeneficiaryRepository) MeasureDrift(ctx context.Context, id uuid.UUID) (*beneficiary.Drift, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*beneficiary.Drift), args.Error(1)
}

func (m *MockBeneficiaryRepository) List(ctx context.Context, limit, offset int) ([]*beneficiary.Beneficiary, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*beneficiary.Beneficiary), args.Error(1)
}

func (m *MockBeneficiaryRepository) WithTx(tx pgx.Tx) beneficiary.Repository {
	m.Called(tx)
	return m
}

type queryFixture struct {
	service       QueryService
	sponsors      *MockSponsorRepository
	donations     *MockDonationRepository
	beneficiaries *MockBeneficiaryRepository
	cacheMock     redismock.ClientMock
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	client, cacheMock := redismock.NewClientMock()
	f := &queryFixture{
		sponsors:      &MockSponsorRepository{},
		donations:     &MockDonationRepository{},
		beneficiaries: &MockBeneficiaryRepository{},
		cacheMock:     cacheMock,
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	f.service = NewQueryService(logger, f.sponsors, f.donations, f.beneficiaries, client, time.Minute)
	return f
}

func TestQueryService_GetDonorHistory(t *testing.T) {
	t.Run("ReturnsSponsorshipsWithDonations", func(t *testing.T) {
		f := newQueryFixture(t)
		ctx := context.Background()

		lastAt := time.Now().Add(-time.Hour)
		beneficiaryID := uuid.New()
		sp := &sponsor.Sponsor{
			ID:             uuid.New(),
			DonorKey:       "donor-42",
			BeneficiaryID:  beneficiaryID,
			TotalDonated:   7500,
			DonationCount:  3,
			LastDonationAt: lastAt,
		}
		b := &beneficiary.Beneficiary{ID: beneficiaryID, DisplayName: "Ibrahima S."}
		donations := []*donation.Donation{
			{ID: uuid.New(), Amount: 2500},
			{ID: uuid.New(), Amount: 5000},
		}

		f.sponsors.On("ListByDonorKey", mock.Anything, "donor-42").Return([]*sponsor.Sponsor{sp}, nil).Once()
		f.beneficiaries.On("GetByID", mock.Anything, beneficiaryID).Return(b, nil).Once()
		f.donations.On("ListBySponsorID", mock.Anything, sp.ID).Return(donations, nil).Once()

		history, err := f.service.GetDonorHistory(ctx, "donor-42")

		require.NoError(t, err)
		require.Len(t, history.Sponsorships, 1)
		assert.Equal(t, sp, history.Sponsorships[0].Sponsor)
		assert.Equal(t, b, history.Sponsorships[0].Beneficiary)
		assert.Len(t, history.Sponsorships[0].Donations, 2)
		assert.Equal(t, int64(7500), history.Stats.TotalDonated)
		assert.Equal(t, int64(3), history.Stats.DonationCount)
		assert.Equal(t, int64(1), history.Stats.BeneficiaryCount)
		require.NotNil(t, history.Stats.LastDonationAt)
		assert.Equal(t, lastAt, *history.Stats.LastDonationAt)
		f.sponsors.AssertExpectations(t)
		f.beneficiaries.AssertExpectations(t)
		f.donations.AssertExpectations(t)
	})

	t.Run("AggregatesStatsAcrossSponsorships", func(t *testing.T) {
		f := newQueryFixture(t)
		ctx := context.Background()

		older := time.Now().Add(-72 * time.Hour)
		newer := time.Now().Add(-time.Hour)
		first := &sponsor.Sponsor{
			ID:             uuid.New(),
			DonorKey:       "donor-42",
			BeneficiaryID:  uuid.New(),
			TotalDonated:   4000,
			DonationCount:  2,
			LastDonationAt: newer,
		}
		second := &sponsor.Sponsor{
			ID:             uuid.New(),
			DonorKey:       "donor-42",
			BeneficiaryID:  uuid.New(),
			TotalDonated:   1500,
			DonationCount:  1,
			LastDonationAt: older,
		}

		f.sponsors.On("ListByDonorKey", mock.Anything, "donor-42").Return([]*sponsor.Sponsor{first, second}, nil).Once()
		f.beneficiaries.On("GetByID", mock.Anything, first.BeneficiaryID).Return(&beneficiary.Beneficiary{ID: first.BeneficiaryID}, nil).Once()
		f.beneficiaries.On("GetByID", mock.Anything, second.BeneficiaryID).Return(&beneficiary.Beneficiary{ID: second.BeneficiaryID}, nil).Once()
		f.donations.On("ListBySponsorID", mock.Anything, first.ID).Return([]*donation.Donation{{ID: uuid.New()}}, nil).Once()
		f.donations.On("ListBySponsorID", mock.Anything, second.ID).Return([]*donation.Donation{{ID: uuid.New()}}, nil).Once()

		history, err := f.service.GetDonorHistory(ctx, "donor-42")

		require.NoError(t, err)
		assert.Equal(t, int64(5500), history.Stats.TotalDonated)
		assert.Equal(t, int64(3), history.Stats.DonationCount)
		assert.Equal(t, int64(2), history.Stats.BeneficiaryCount)
		require.NotNil(t, history.Stats.LastDonationAt)
		assert.Equal(t, newer, *history.Stats.LastDonationAt)
		f.sponsors.AssertExpectations(t)
	})

	t.Run("ReturnsEmptyHistoryForUnknownDonor", func(t *testing.T) {
		f := newQueryFixture(t)

		f.sponsors.On("ListByDonorKey", mock.Anything, "donor-unknown").Return([]*sponsor.Sponsor{}, nil).Once()

		history, err := f.service.GetDonorHistory(context.Background(), "donor-unknown")

		require.NoError(t, err)
		assert.Empty(t, history.Sponsorships)
		assert.Zero(t, history.Stats.TotalDonated)
		assert.Zero(t, history.Stats.BeneficiaryCount)
		assert.Nil(t, history.Stats.LastDonationAt)
		f.sponsors.AssertExpectations(t)
	})

	t.Run("PropagatesRepositoryError", func(t *testing.T) {
		f := newQueryFixture(t)

		f.sponsors.On("ListByDonorKey", mock.Anything, "donor-42").Return(nil, errors.New("connection refused")).Once()

		history, err := f.service.GetDonorHistory(context.Background(), "donor-42")

		require.Error(t, err)
		assert.Nil(t, history)
		f.sponsors.AssertExpectations(t)
	})
}

func TestQueryService_GetBeneficiarySponsors(t *testing.T) {
	t.Run("ReturnsBeneficiaryWithSponsors", func(t *testing.T) {
		f := newQueryFixture(t)
		beneficiaryID := uuid.New()
		b := &beneficiary.Beneficiary{ID: beneficiaryID, DisplayName: "Fatou N.", TotalReceived: 12000}
		sponsors := []*sponsor.Sponsor{
			{ID: uuid.New(), BeneficiaryID: beneficiaryID, TotalDonated: 8000},
			{ID: uuid.New(), BeneficiaryID: beneficiaryID, TotalDonated: 4000, Anonymous: true},
		}

		f.beneficiaries.On("GetByID", mock.Anything, beneficiaryID).Return(b, nil).Once()
		f.sponsors.On("ListByBeneficiaryID", mock.Anything, beneficiaryID).Return(sponsors, nil).Once()

		got, gotSponsors, err := f.service.GetBeneficiarySponsors(context.Background(), beneficiaryID)

		require.NoError(t, err)
		assert.Equal(t, b, got)
		assert.Len(t, gotSponsors, 2)
		f.beneficiaries.AssertExpectations(t)
		f.sponsors.AssertExpectations(t)
	})

	t.Run("PropagatesNotFound", func(t *testing.T) {
		f := newQueryFixture(t)
		beneficiaryID := uuid.New()

		f.beneficiaries.On("GetByID", mock.Anything, beneficiaryID).
			Return(nil, beneficiary.ErrBeneficiaryNotFound{BeneficiaryID: beneficiaryID}).Once()

		got, gotSponsors, err := f.service.GetBeneficiarySponsors(context.Background(), beneficiaryID)

		require.Error(t, err)
		assert.ErrorIs(t, err, beneficiary.ErrBeneficiaryNotFound{})
		assert.Nil(t, got)
		assert.Nil(t, gotSponsors)
		f.beneficiaries.AssertExpectations(t)
	})
}

func TestQueryService_GetDashboard(t *testing.T) {
	t.Run("ServesFromCache", func(t *testing.T) {
		f := newQueryFixture(t)
		cached := &DashboardStats{TotalCollected: 50000, SponsorCount: 12, BeneficiaryCount: 4}
		encoded, err := json.Marshal(cached)
		require.NoError(t, err)

		f.cacheMock.ExpectGet(dashboardCacheKey).SetVal(string(encoded))

		stats, err := f.service.GetDashboard(context.Background())

		require.NoError(t, err)
		assert.Equal(t, cached, stats)
		f.beneficiaries.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
		assert.NoError(t, f.cacheMock.ExpectationsWereMet())
	})

	t.Run("CorruptCacheEntryDegradesToRecompute", func(t *testing.T) {
		f := newQueryFixture(t)
		want := &DashboardStats{TotalCollected: 1000, SponsorCount: 1, BeneficiaryCount: 1}
		encoded, err := json.Marshal(want)
		require.NoError(t, err)

		f.cacheMock.ExpectGet(dashboardCacheKey).SetVal("{not json")
		f.beneficiaries.On("List", mock.Anything, dashboardPageSize, 0).
			Return([]*beneficiary.Beneficiary{{ID: uuid.New(), TotalReceived: 1000, SponsorCount: 1}}, nil).Once()
		f.cacheMock.ExpectSet(dashboardCacheKey, encoded, time.Minute).SetVal("OK")

		stats, err := f.service.GetDashboard(context.Background())

		require.NoError(t, err)
		assert.Equal(t, want, stats)
		f.beneficiaries.AssertExpectations(t)
		assert.NoError(t, f.cacheMock.ExpectationsWereMet())
	})

	t.Run("ComputesAndCachesOnMiss", func(t *testing.T) {
		f := newQueryFixture(t)
		beneficiaries := []*beneficiary.Beneficiary{
			{ID: uuid.New(), TotalReceived: 30000, SponsorCount: 5},
			{ID: uuid.New(), TotalReceived: 20000, SponsorCount: 7},
		}
		want := &DashboardStats{TotalCollected: 50000, SponsorCount: 12, BeneficiaryCount: 2}
		encoded, err := json.Marshal(want)
		require.NoError(t, err)

		f.cacheMock.ExpectGet(dashboardCacheKey).RedisNil()
		f.beneficiaries.On("List", mock.Anything, dashboardPageSize, 0).Return(beneficiaries, nil).Once()
		f.cacheMock.ExpectSet(dashboardCacheKey, encoded, time.Minute).SetVal("OK")

		stats, err := f.service.GetDashboard(context.Background())

		require.NoError(t, err)
		assert.Equal(t, want, stats)
		f.beneficiaries.AssertExpectations(t)
		assert.NoError(t, f.cacheMock.ExpectationsWereMet())
	})

	t.Run("CacheOutageDegradesToRecompute", func(t *testing.T) {
		f := newQueryFixture(t)
		want := &DashboardStats{TotalCollected: 1000, SponsorCount: 1, BeneficiaryCount: 1}
		encoded, err := json.Marshal(want)
		require.NoError(t, err)

		f.cacheMock.ExpectGet(dashboardCacheKey).SetErr(errors.New("redis down"))
		f.beneficiaries.On("List", mock.Anything, dashboardPageSize, 0).
			Return([]*beneficiary.Beneficiary{{ID: uuid.New(), TotalReceived: 1000, SponsorCount: 1}}, nil).Once()
		f.cacheMock.ExpectSet(dashboardCacheKey, encoded, time.Minute).SetErr(errors.New("redis down"))

		stats, err := f.service.GetDashboard(context.Background())

		require.NoError(t, err)
		assert.Equal(t, want, stats)
		f.beneficiaries.AssertExpectations(t)
	})

	t.Run("PropagatesScanError", func(t *testing.T) {
		f := newQueryFixture(t)

		f.cacheMock.ExpectGet(dashboardCacheKey).RedisNil()
		f.beneficiaries.On("List", mock.Anything, dashboardPageSize, 0).Return(nil, errors.New("connection refused")).Once()

		stats, err := f.service.GetDashboard(context.Background())

		require.Error(t, err)
		assert.Nil(t, stats)
		f.beneficiaries.AssertExpectations(t)
	})
}
