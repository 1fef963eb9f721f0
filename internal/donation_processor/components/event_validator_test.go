package components

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDonationRepository struct {
	mock.Mock
}

func (m *MockDonationRepository) Create(ctx context.Context, d *donation.Donation) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDonationRepository) GetByID(ctx context.Context, id uuid.UUID) (*donation.Donation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Donation), args.Error(1)
}

func (m *MockDonationRepository) GetBySessionID(ctx context.Context, sessionID string) (*donation.Donation, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Donation), args.Error(1)
}

func (m *MockDonationRepository) LinkSponsor(ctx context.Context, donationID, sponsorID uuid.UUID) error {
	args := m.Called(ctx, donationID, sponsorID)
	return args.Error(0)
}

func (m *MockDonationRepository) ListOrphans(ctx context.Context, limit, offset int) ([]*donation.Donation, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*donation.Donation), args.Error(1)
}

func (m *MockDonationRepository) ListBySponsorID(ctx context.Context, sponsorID uuid.UUID) ([]*donation.Donation, error) {
	args := m.Called(ctx, sponsorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*donation.Donation), args.Error(1)
}

func (m *MockDonationRepository) TotalsBySponsorID(ctx context.Context, sponsorID uuid.UUID) (*donation.SponsorTotals, error) {
	args := m.Called(ctx, sponsorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.SponsorTotals), args.Error(1)
}

func (m *MockDonationRepository) WithTx(tx pgx.Tx) donation.Repository {
	m.Called(tx)
	return m
}

func validEvent() *shared.DonationEvent {
	return &shared.DonationEvent{
		EventID:         uuid.New(),
		Type:            shared.EventPaymentCompleted,
		SessionID:       "cs_200",
		Amount:          1500,
		Currency:        "EUR",
		DonorExternalID: "donor-7",
		PaidAt:          time.Now(),
	}
}

func TestEventValidator_Validate(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	validator := NewEventValidator(new(MockDonationRepository), logger)

	t.Run("AcceptsValidEvent", func(t *testing.T) {
		assert.NoError(t, validator.Validate(context.Background(), validEvent()))
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		evt := validEvent()
		evt.Type = "payment.refund_requested"

		err := validator.Validate(context.Background(), evt)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrUnknownEventType)
	})

	t.Run("RejectsMissingSessionID", func(t *testing.T) {
		evt := validEvent()
		evt.SessionID = ""

		err := validator.Validate(context.Background(), evt)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrMissingSessionID)
	})

	t.Run("RejectsNonPositiveAmount", func(t *testing.T) {
		for _, amount := range []int64{0, -100} {
			evt := validEvent()
			evt.Amount = amount
			assert.Error(t, validator.Validate(context.Background(), evt))
		}
	})

	t.Run("RejectsMalformedCurrency", func(t *testing.T) {
		for _, currency := range []string{"", "EU", "EURO"} {
			evt := validEvent()
			evt.Currency = currency
			assert.Error(t, validator.Validate(context.Background(), evt))
		}
	})
}

func TestEventValidator_CheckIdempotency(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("SkipsRecordedSession", func(t *testing.T) {
		mockRepo := new(MockDonationRepository)
		validator := NewEventValidator(mockRepo, logger)

		evt := validEvent()
		existing := &donation.Donation{ID: uuid.New(), SessionID: evt.SessionID, Status: shared.DonationStatusCompleted}
		mockRepo.On("GetBySessionID", mock.Anything, evt.SessionID).Return(existing, nil).Once()

		duplicate, err := validator.CheckIdempotency(context.Background(), evt)

		require.NoError(t, err)
		assert.True(t, duplicate)
		mockRepo.AssertExpectations(t)
	})

	t.Run("ContinuesForNewSession", func(t *testing.T) {
		mockRepo := new(MockDonationRepository)
		validator := NewEventValidator(mockRepo, logger)

		evt := validEvent()
		mockRepo.On("GetBySessionID", mock.Anything, evt.SessionID).Return(nil, nil).Once()

		duplicate, err := validator.CheckIdempotency(context.Background(), evt)

		require.NoError(t, err)
		assert.False(t, duplicate)
		mockRepo.AssertExpectations(t)
	})

	t.Run("PropagatesLookupError", func(t *testing.T) {
		mockRepo := new(MockDonationRepository)
		validator := NewEventValidator(mockRepo, logger)

		evt := validEvent()
		mockRepo.On("GetBySessionID", mock.Anything, evt.SessionID).Return(nil, errors.New("db error")).Once()

		duplicate, err := validator.CheckIdempotency(context.Background(), evt)

		require.Error(t, err)
		assert.False(t, duplicate)
		mockRepo.AssertExpectations(t)
	})
}
