package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

type fakeRechargeExpirer struct {
	lastNow   time.Time
	lastBatch int
	err       error
}

func (f *fakeRechargeExpirer) ExpirePending(ctx context.Context, now time.Time, batchSize int) (int, error) {
	f.lastNow = now
	f.lastBatch = batchSize
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func TestRechargeExpiryJobSweeps(t *testing.T) {
	now := time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC)
	expirer := &fakeRechargeExpirer{}
	jobIface, err := NewRechargeExpiryJob(RechargeExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Recharges: expirer,
	})
	if err != nil {
		t.Fatalf("NewRechargeExpiryJob: %v", err)
	}
	job := jobIface.(*rechargeExpiryJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !expirer.lastNow.Equal(now) {
		t.Fatalf("expected sweep at %s, got %s", now, expirer.lastNow)
	}
	if expirer.lastBatch != rechargeExpiryBatchSize {
		t.Fatalf("expected default batch %d, got %d", rechargeExpiryBatchSize, expirer.lastBatch)
	}
}

func TestRechargeExpiryJobPropagatesError(t *testing.T) {
	jobIface, err := NewRechargeExpiryJob(RechargeExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Recharges: &fakeRechargeExpirer{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewRechargeExpiryJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
