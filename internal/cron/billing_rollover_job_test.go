package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

type fakeBillingRoller struct {
	lastNow   time.Time
	lastBatch int
	err       error
}

func (f *fakeBillingRoller) Rollover(ctx context.Context, now time.Time, batchSize int) (int, error) {
	f.lastNow = now
	f.lastBatch = batchSize
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func TestBillingRolloverJobRuns(t *testing.T) {
	now := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)
	roller := &fakeBillingRoller{}
	jobIface, err := NewBillingRolloverJob(BillingRolloverJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Billing: roller,
	})
	if err != nil {
		t.Fatalf("NewBillingRolloverJob: %v", err)
	}
	job := jobIface.(*billingRolloverJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !roller.lastNow.Equal(now) {
		t.Fatalf("expected rollover at %s, got %s", now, roller.lastNow)
	}
	if roller.lastBatch != billingRolloverBatchSize {
		t.Fatalf("expected default batch %d, got %d", billingRolloverBatchSize, roller.lastBatch)
	}
}

func TestBillingRolloverJobPropagatesError(t *testing.T) {
	jobIface, err := NewBillingRolloverJob(BillingRolloverJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Billing: &fakeBillingRoller{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewBillingRolloverJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
