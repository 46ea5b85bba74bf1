package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

const rechargeExpiryBatchSize = 200

// RechargeExpiryJobParams configure the voucher expiry sweep.
type RechargeExpiryJobParams struct {
	Logger    *logger.Logger
	Recharges rechargeExpirer
	BatchSize int
}

type rechargeExpirer interface {
	ExpirePending(ctx context.Context, now time.Time, batchSize int) (int, error)
}

// NewRechargeExpiryJob builds the cron job that rejects vouchers nobody
// reviewed before their TTL ran out.
func NewRechargeExpiryJob(params RechargeExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Recharges == nil {
		return nil, fmt.Errorf("recharge service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = rechargeExpiryBatchSize
	}
	return &rechargeExpiryJob{
		logg:      params.Logger,
		recharges: params.Recharges,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type rechargeExpiryJob struct {
	logg      *logger.Logger
	recharges rechargeExpirer
	batchSize int
	now       func() time.Time
}

func (j *rechargeExpiryJob) Name() string { return "recharge-expiry" }

func (j *rechargeExpiryJob) Run(ctx context.Context) error {
	expired, err := j.recharges.ExpirePending(ctx, j.now(), j.batchSize)
	if err != nil {
		return fmt.Errorf("recharge expiry: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "expired_count", expired)
	j.logg.Info(logCtx, "recharge expiry sweep complete")
	return nil
}
