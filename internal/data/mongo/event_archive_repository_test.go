package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
)

type MockEventArchiveRepository struct {
	mock.Mock
}

func (m *MockEventArchiveRepository) Archive(ctx context.Context, rec *archive.EventRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockEventArchiveRepository) SetDisposition(ctx context.Context, eventID uuid.UUID, disposition shared.Disposition, detail string) error {
	args := m.Called(ctx, eventID, disposition, detail)
	return args.Error(0)
}

func (m *MockEventArchiveRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*archive.EventRecord, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*archive.EventRecord), args.Error(1)
}

func (m *MockEventArchiveRepository) ListBySessionID(ctx context.Context, sessionID string) ([]*archive.EventRecord, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*archive.EventRecord), args.Error(1)
}

func TestNewEventArchiveRepository(t *testing.T) {
	db := &mongo.Database{}
	logger := slog.Default()

	repo := NewEventArchiveRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &EventArchiveRepository{}, repo)
}

func testEventRecord() *archive.EventRecord {
	return &archive.EventRecord{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		Type:          shared.EventPaymentCompleted,
		SessionID:     "cs_test_a1b2c3",
		Payload:       `{"type":"payment.completed"}`,
		Disposition:   shared.DispositionReceived,
		CorrelationID: "corr1",
		ReceivedAt:    time.Now(),
	}
}

func TestEventArchiveRepository_Archive(t *testing.T) {
	mockRepo := &MockEventArchiveRepository{}
	rec := testEventRecord()

	tests := []struct {
		name          string
		setupMocks    func()
		expectedError error
	}{
		{
			name: "successful archive",
			setupMocks: func() {
				mockRepo.On("Archive", mock.Anything, rec).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "database error",
			setupMocks: func() {
				mockRepo.On("Archive", mock.Anything, rec).Return(errors.New("db error")).Once()
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMocks()

			err := mockRepo.Archive(context.Background(), rec)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestEventArchiveRepository_SetDisposition(t *testing.T) {
	mockRepo := &MockEventArchiveRepository{}
	eventID := uuid.New()

	tests := []struct {
		name          string
		disposition   shared.Disposition
		detail        string
		setupMocks    func(disposition shared.Disposition, detail string)
		expectedError error
	}{
		{
			name:        "applied",
			disposition: shared.DispositionApplied,
			detail:      "",
			setupMocks: func(disposition shared.Disposition, detail string) {
				mockRepo.On("SetDisposition", mock.Anything, eventID, disposition, detail).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name:        "duplicate",
			disposition: shared.DispositionDuplicate,
			detail:      "session already recorded",
			setupMocks: func(disposition shared.Disposition, detail string) {
				mockRepo.On("SetDisposition", mock.Anything, eventID, disposition, detail).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name:        "record missing",
			disposition: shared.DispositionApplied,
			detail:      "",
			setupMocks: func(disposition shared.Disposition, detail string) {
				mockRepo.On("SetDisposition", mock.Anything, eventID, disposition, detail).
					Return(archive.ErrRecordNotFound{EventID: eventID}).Once()
			},
			expectedError: archive.ErrRecordNotFound{EventID: eventID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMocks(tt.disposition, tt.detail)

			err := mockRepo.SetDisposition(context.Background(), eventID, tt.disposition, tt.detail)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestEventArchiveRepository_ListBySessionID(t *testing.T) {
	mockRepo := &MockEventArchiveRepository{}
	sessionID := "cs_test_a1b2c3"

	first := testEventRecord()
	first.SessionID = sessionID
	retry := testEventRecord()
	retry.SessionID = sessionID
	retry.Disposition = shared.DispositionDuplicate

	t.Run("returns all deliveries for the session", func(t *testing.T) {
		mockRepo.On("ListBySessionID", mock.Anything, sessionID).
			Return([]*archive.EventRecord{retry, first}, nil).Once()

		records, err := mockRepo.ListBySessionID(context.Background(), sessionID)

		assert.NoError(t, err)
		assert.Len(t, records, 2)
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty for unknown session", func(t *testing.T) {
		mockRepo.On("ListBySessionID", mock.Anything, "cs_unknown").
			Return([]*archive.EventRecord{}, nil).Once()

		records, err := mockRepo.ListBySessionID(context.Background(), "cs_unknown")

		assert.NoError(t, err)
		assert.Empty(t, records)
		mockRepo.AssertExpectations(t)
	})
}

func TestErrRecordNotFound_Is(t *testing.T) {
	eventID := uuid.New()
	err := archive.ErrRecordNotFound{EventID: eventID}

	assert.ErrorIs(t, err, archive.ErrRecordNotFound{})
	assert.ErrorIs(t, err, archive.ErrRecordNotFound{EventID: eventID})
	assert.NotErrorIs(t, err, archive.ErrRecordNotFound{EventID: uuid.New()})
}
