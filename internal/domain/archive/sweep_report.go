package archive

import (
	"time"

	"github.com/google/uuid"
)

// SweepReport summarizes one reconciliation run. Counts are cumulative over
// the run; a dry run reports what would have been corrected without writing.
type SweepReport struct {
	ID                      uuid.UUID `bson:"_id" json:"id"`
	StartedAt               time.Time `bson:"started_at" json:"started_at"`
	FinishedAt              time.Time `bson:"finished_at" json:"finished_at"`
	DryRun                  bool      `bson:"dry_run" json:"dry_run"`
	OrphansFound            int       `bson:"orphans_found" json:"orphans_found"`
	OrphansRelinked         int       `bson:"orphans_relinked" json:"orphans_relinked"`
	SponsorsChecked         int       `bson:"sponsors_checked" json:"sponsors_checked"`
	SponsorsCorrected       int       `bson:"sponsors_corrected" json:"sponsors_corrected"`
	BeneficiariesChecked    int       `bson:"beneficiaries_checked" json:"beneficiaries_checked"`
	BeneficiariesCorrected  int       `bson:"beneficiaries_corrected" json:"beneficiaries_corrected"`
	Errors                  []string  `bson:"errors,omitempty" json:"errors,omitempty"`
}

// Clean reports whether the run found nothing to correct and hit no errors
func (r *SweepReport) Clean() bool {
	return r.OrphansFound == 0 &&
		r.SponsorsCorrected == 0 &&
		r.BeneficiariesCorrected == 0 &&
		len(r.Errors) == 0
}
