package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/service"
)

type DispositionRecorderImpl struct {
	archiveRepo archive.Repository
	logger      *slog.Logger
}

func NewDispositionRecorder(archiveRepo archive.Repository, logger *slog.Logger) service.DispositionRecorder {
	return &DispositionRecorderImpl{
		archiveRepo: archiveRepo,
		logger:      logger,
	}
}

// Record upgrades the archived event's disposition. A missing archive record
// is tolerated: the gateway archives deliveries best-effort, so a settled
// event may have no record to upgrade.
func (r *DispositionRecorderImpl) Record(ctx context.Context, evt *shared.DonationEvent, disposition shared.Disposition, detail string) error {
	err := r.archiveRepo.SetDisposition(ctx, evt.EventID, disposition, detail)
	if err == nil {
		return nil
	}

	if errors.Is(err, archive.ErrRecordNotFound{}) {
		r.logger.Warn("No archive record for settled event",
			"event_id", evt.EventID.String(),
			"disposition", string(disposition),
		)
		return nil
	}

	return err
}
