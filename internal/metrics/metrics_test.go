package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/webhooks/payment", "200", 0.05)
	RecordHTTPRequest("POST", "/api/webhooks/payment", "200", 0.07)
	RecordHTTPRequest("POST", "/api/webhooks/payment", "400", 0.01)

	okCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/webhooks/payment", "200"))
	badCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/webhooks/payment", "400"))

	assert.Equal(t, float64(2), okCount)
	assert.Equal(t, float64(1), badCount)
}

func TestRecordWebhookEvent(t *testing.T) {
	WebhookEventsTotal.Reset()

	RecordWebhookEvent("payment.completed", "accepted")
	RecordWebhookEvent("payment.completed", "accepted")
	RecordWebhookEvent("payment.completed", "invalid_signature")

	accepted := testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("payment.completed", "accepted"))
	rejected := testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("payment.completed", "invalid_signature"))

	assert.Equal(t, float64(2), accepted)
	assert.Equal(t, float64(1), rejected)
}

func TestRecordDonationEvent(t *testing.T) {
	DonationEventsTotal.Reset()

	RecordDonationEvent("APPLIED")
	RecordDonationEvent("APPLIED")
	RecordDonationEvent("DUPLICATE")
	RecordDonationEvent("ORPHANED")

	applied := testutil.ToFloat64(DonationEventsTotal.WithLabelValues("APPLIED"))
	duplicate := testutil.ToFloat64(DonationEventsTotal.WithLabelValues("DUPLICATE"))
	orphaned := testutil.ToFloat64(DonationEventsTotal.WithLabelValues("ORPHANED"))

	assert.Equal(t, float64(2), applied)
	assert.Equal(t, float64(1), duplicate)
	assert.Equal(t, float64(1), orphaned)
}

func TestRecordDonationAmount(t *testing.T) {
	DonationAmountTotal.Reset()

	RecordDonationAmount("EUR", 5000)
	RecordDonationAmount("EUR", 3000)
	RecordDonationAmount("USD", 1000)

	eur := testutil.ToFloat64(DonationAmountTotal.WithLabelValues("EUR"))
	usd := testutil.ToFloat64(DonationAmountTotal.WithLabelValues("USD"))

	assert.Equal(t, float64(8000), eur)
	assert.Equal(t, float64(1000), usd)
}

func TestRecordSweepRun(t *testing.T) {
	SweepRunsTotal.Reset()
	SweepCorrectionsTotal.Reset()

	RecordSweepRun("clean")
	RecordSweepRun("corrected")
	RecordSweepCorrection("orphan_relinked")
	RecordSweepCorrection("sponsor_totals")
	RecordSweepCorrection("sponsor_totals")

	clean := testutil.ToFloat64(SweepRunsTotal.WithLabelValues("clean"))
	corrected := testutil.ToFloat64(SweepRunsTotal.WithLabelValues("corrected"))
	relinked := testutil.ToFloat64(SweepCorrectionsTotal.WithLabelValues("orphan_relinked"))
	totals := testutil.ToFloat64(SweepCorrectionsTotal.WithLabelValues("sponsor_totals"))

	assert.Equal(t, float64(1), clean)
	assert.Equal(t, float64(1), corrected)
	assert.Equal(t, float64(1), relinked)
	assert.Equal(t, float64(2), totals)
}

func TestWorkerPoolRunning(t *testing.T) {
	WorkerPoolRunning.Set(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(WorkerPoolRunning))

	WorkerPoolRunning.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(WorkerPoolRunning))
}
