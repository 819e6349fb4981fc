package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	nyscpersistence "github.com/veritas-edu/campus-sdk/modules/nysc/infrastructure/persistence"
	"github.com/veritas-edu/campus-sdk/modules/nysc/infrastructure/paystack"
	nyscservices "github.com/veritas-edu/campus-sdk/modules/nysc/services"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
	"github.com/veritas-edu/campus-sdk/pkg/configuration"
	"github.com/veritas-edu/campus-sdk/pkg/eventbus"
	"github.com/veritas-edu/campus-sdk/pkg/schedule"
)

type sweepOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Scanned    int    `json:"scanned"`
	Verified   int    `json:"verified"`
	Updated    int    `json:"updated"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Errors     int    `json:"errors"`
}

func newVerifyPaymentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-payments",
		Short: "Re-verify pending NYSC payments against the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := configuration.Use()
			log := conf.Logger().WithField("command", "verify-payments")

			if err := conf.Paystack.Validate(); err != nil {
				return err
			}
			if err := conf.PaymentSweep.Validate(); err != nil {
				return err
			}

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			ctx := composables.WithPool(cmd.Context(), pool)

			pacer := limiter.New(memory.NewStore(), limiter.Rate{
				Period: time.Second,
				Limit:  int64(conf.PaymentSweep.GatewayRPS),
			})

			service := nyscservices.NewVerificationService(
				nyscpersistence.NewPaymentRepository(),
				nyscpersistence.NewRegistrationRepository(),
				nyscpersistence.NewTempSubmissionRepository(),
				nyscpersistence.NewStudentProfileSource(),
				paystack.NewClient(conf.Paystack),
				pacer,
				conf.PaymentSweep,
				eventbus.NewEventPublisher(conf.Logger()),
				log,
			)

			var batch *nyscservices.BatchOutcome
			job := schedule.NewJob("verify-payments", func(jobCtx context.Context) error {
				var runErr error
				batch, runErr = service.SweepPending(jobCtx)
				return runErr
			}, schedule.Options{
				Timeout:     conf.PaymentSweep.Timeout,
				MaxAttempts: conf.PaymentSweep.MaxAttempts,
				Logger:      log,
			})

			start := time.Now()
			if err := job.Run(ctx); err != nil {
				return err
			}

			return writeJSON(sweepOutput{
				Command:    "verify-payments",
				DurationMS: time.Since(start).Milliseconds(),
				Scanned:    len(batch.Items),
				Verified:   batch.Verified,
				Updated:    batch.Updated,
				Successful: batch.Successful,
				Failed:     batch.Failed,
				Errors:     batch.Errors,
			})
		},
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
