package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/metrics"
)

type LedgerServiceImpl struct {
	db              TxBeginner
	donationRepo    donation.Repository
	beneficiaryRepo beneficiary.Repository
	validator       EventValidator
	resolver        BeneficiaryResolver
	sponsorManager  SponsorManager
	recorder        DispositionRecorder
	txTimeout       time.Duration
	logger          *slog.Logger
}

func NewLedgerService(
	db TxBeginner,
	donationRepo donation.Repository,
	beneficiaryRepo beneficiary.Repository,
	validator EventValidator,
	resolver BeneficiaryResolver,
	sponsorManager SponsorManager,
	recorder DispositionRecorder,
	txTimeout time.Duration,
	logger *slog.Logger,
) ProcessingService {
	return &LedgerServiceImpl{
		db:              db,
		donationRepo:    donationRepo,
		beneficiaryRepo: beneficiaryRepo,
		validator:       validator,
		resolver:        resolver,
		sponsorManager:  sponsorManager,
		recorder:        recorder,
		txTimeout:       txTimeout,
		logger:          logger,
	}
}

// ProcessDonationEvent settles one payment event into the ledger. A nil
// return acknowledges the Kafka message; settled outcomes that are not
// ledger writes (rejected, duplicate) are recorded in the archive and
// acknowledged. Infrastructure errors are returned so the consumer does not
// commit the offset and the event is retried.
func (s *LedgerServiceImpl) ProcessDonationEvent(ctx context.Context, evt *shared.DonationEvent) error {
	logger := s.logger
	if evt.CorrelationID != "" {
		logger = s.logger.With("correlation_id", evt.CorrelationID)
	}

	logger.Info("Settling donation event",
		"event_id", evt.EventID.String(),
		"session_id", evt.SessionID,
		"type", string(evt.Type),
	)

	// 1. Validate the event
	if err := s.validator.Validate(ctx, evt); err != nil {
		logger.Error("Donation event validation failed", "event_id", evt.EventID.String(), "error", err)
		s.record(ctx, logger, evt, shared.DispositionRejected, err.Error())
		metrics.RecordDonationEvent(string(shared.DispositionRejected))
		return nil // Acknowledge, retrying cannot make the event valid
	}

	// 2. Check idempotency
	duplicate, err := s.validator.CheckIdempotency(ctx, evt)
	if err != nil {
		return err // Let Kafka retry
	}
	if duplicate {
		s.record(ctx, logger, evt, shared.DispositionDuplicate, "payment session already recorded")
		metrics.RecordDonationEvent(string(shared.DispositionDuplicate))
		return nil
	}

	// 3. Resolve the beneficiary reference outside the transaction. An
	// unresolvable reference is not an error: the money was collected and
	// must still enter the ledger as an orphan.
	beneficiaryID, err := s.resolver.Resolve(ctx, evt)
	if err != nil {
		return err // Let Kafka retry
	}

	normalized := *evt
	normalized.BeneficiaryID = beneficiaryID
	d, buildErr := donation.FromEvent(&normalized)
	if buildErr != nil {
		logger.Error("Failed to build donation from event", "event_id", evt.EventID.String(), "error", buildErr)
		s.record(ctx, logger, evt, shared.DispositionRejected, buildErr.Error())
		metrics.RecordDonationEvent(string(shared.DispositionRejected))
		return nil
	}

	// 4. Begin the ledger transaction, bounded by the configured timeout
	txCtx := ctx
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	started := time.Now()

	var tx pgx.Tx
	tx, err = s.db.Begin(txCtx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "event_id", evt.EventID.String(), "error", err)
		return fmt.Errorf("failed to begin DB transaction for event %s: %w", evt.EventID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "event_id", evt.EventID.String())
			_ = tx.Rollback(txCtx)
			panic(p) // Re-panic
		} else if err != nil {
			if rbErr := tx.Rollback(txCtx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "event_id", evt.EventID.String())
			}
		}
	}()

	// 5. Insert the donation row. The unique session constraint is the
	// authoritative idempotency barrier; the pre-check above only avoids
	// opening transactions for obvious retries.
	if err = s.donationRepo.WithTx(tx).Create(txCtx, d); err != nil {
		if errors.Is(err, donation.ErrDuplicateDonation{}) {
			logger.Info("Lost insert race for payment session, acknowledging as duplicate", "session_id", d.SessionID)
			s.record(ctx, logger, evt, shared.DispositionDuplicate, "payment session already recorded")
			metrics.RecordDonationEvent(string(shared.DispositionDuplicate))
			return nil // Deferred rollback discards the open transaction
		}
		return fmt.Errorf("failed to insert donation for session %s: %w", d.SessionID, err)
	}

	// 6. Failed recurring payments only produce the donation row; no money
	// was collected, so no aggregate moves.
	if !d.Completed() {
		if err = s.commit(txCtx, logger, tx, evt); err != nil {
			return err
		}
		s.record(ctx, logger, evt, shared.DispositionFailed, "recurring payment failed")
		metrics.RecordDonationEvent(string(shared.DispositionFailed))
		logger.Info("Failed payment recorded", "donation_id", d.ID.String(), "session_id", d.SessionID)
		return nil
	}

	// 7. Unattributed donations are committed without a sponsor linkage and
	// left for the reconciliation sweep or a later manual relink.
	if d.BeneficiaryID == nil {
		if err = s.commit(txCtx, logger, tx, evt); err != nil {
			return err
		}
		s.record(ctx, logger, evt, shared.DispositionOrphaned, "beneficiary could not be resolved")
		metrics.RecordDonationEvent(string(shared.DispositionOrphaned))
		metrics.RecordDonationAmount(d.Currency, d.Amount)
		logger.Warn("Donation recorded as orphan", "donation_id", d.ID.String(), "session_id", d.SessionID)
		return nil
	}

	// 8. Lock or create the sponsor aggregate and accumulate the donation
	updatedSponsor, err := s.sponsorManager.LockAndApply(txCtx, tx, d)
	if err != nil {
		return err // Let Kafka retry; the deferred rollback discards partial work
	}

	// 9. Attach the write-once sponsor linkage
	if err = s.donationRepo.WithTx(tx).LinkSponsor(txCtx, d.ID, updatedSponsor.ID); err != nil {
		return fmt.Errorf("failed to link donation %s to sponsor %s: %w", d.ID.String(), updatedSponsor.ID.String(), err)
	}

	// 10. Refresh the beneficiary's cached counters inside the same
	// transaction so readers never observe a donation without its effect
	if err = s.beneficiaryRepo.WithTx(tx).RecomputeAggregates(txCtx, *d.BeneficiaryID); err != nil {
		return fmt.Errorf("failed to recompute aggregates for beneficiary %s: %w", d.BeneficiaryID.String(), err)
	}

	// 11. Commit
	if err = s.commit(txCtx, logger, tx, evt); err != nil {
		return err
	}

	metrics.RecordLedgerApply(time.Since(started).Seconds())
	metrics.RecordDonationEvent(string(shared.DispositionApplied))
	metrics.RecordDonationAmount(d.Currency, d.Amount)
	s.record(ctx, logger, evt, shared.DispositionApplied, "")

	logger.Info("Donation applied to ledger",
		"donation_id", d.ID.String(),
		"sponsor_id", updatedSponsor.ID.String(),
		"beneficiary_id", d.BeneficiaryID.String(),
		"amount", d.Amount,
	)
	return nil
}

func (s *LedgerServiceImpl) commit(ctx context.Context, logger *slog.Logger, tx pgx.Tx, evt *shared.DonationEvent) error {
	if err := tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction", "event_id", evt.EventID.String(), "error", err)
		return fmt.Errorf("failed to commit DB transaction for event %s: %w", evt.EventID.String(), err)
	}
	return nil
}

// record upgrades the archived disposition. Archive writes are best-effort:
// the ledger outcome stands even when the archive is unavailable.
func (s *LedgerServiceImpl) record(ctx context.Context, logger *slog.Logger, evt *shared.DonationEvent, disposition shared.Disposition, detail string) {
	if err := s.recorder.Record(ctx, evt, disposition, detail); err != nil {
		logger.Error("Failed to record event disposition",
			"event_id", evt.EventID.String(),
			"disposition", string(disposition),
			"error", err,
		)
	}
}
