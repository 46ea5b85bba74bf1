package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

const billingRolloverBatchSize = 50

// BillingRolloverJobParams configure the period rollover.
type BillingRolloverJobParams struct {
	Logger    *logger.Logger
	Billing   billingRoller
	BatchSize int
}

type billingRoller interface {
	Rollover(ctx context.Context, now time.Time, batchSize int) (int, error)
}

// NewBillingRolloverJob builds the cron job that closes elapsed billing
// periods and opens their successors.
func NewBillingRolloverJob(params BillingRolloverJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Billing == nil {
		return nil, fmt.Errorf("billing service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = billingRolloverBatchSize
	}
	return &billingRolloverJob{
		logg:      params.Logger,
		billing:   params.Billing,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type billingRolloverJob struct {
	logg      *logger.Logger
	billing   billingRoller
	batchSize int
	now       func() time.Time
}

func (j *billingRolloverJob) Name() string { return "billing-rollover" }

func (j *billingRolloverJob) Run(ctx context.Context) error {
	rolled, err := j.billing.Rollover(ctx, j.now(), j.batchSize)
	if err != nil {
		return fmt.Errorf("billing rollover: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rolled_count", rolled)
	j.logg.Info(logCtx, "billing rollover complete")
	return nil
}
