package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	auditpersistence "github.com/veritas-edu/campus-sdk/modules/audit/infrastructure/persistence"
	auditservices "github.com/veritas-edu/campus-sdk/modules/audit/services"
	exeatpersistence "github.com/veritas-edu/campus-sdk/modules/exeat/infrastructure/persistence"
	exeatservices "github.com/veritas-edu/campus-sdk/modules/exeat/services"
	"github.com/veritas-edu/campus-sdk/modules/notify"
	"github.com/veritas-edu/campus-sdk/pkg/composables"
	"github.com/veritas-edu/campus-sdk/pkg/configuration"
	"github.com/veritas-edu/campus-sdk/pkg/eventbus"
	"github.com/veritas-edu/campus-sdk/pkg/schedule"
)

type expireOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Expired    int    `json:"expired"`
}

func newExpireConsentsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "expire-consents",
		Short: "Decline overdue parent consents and reject their exeat requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := configuration.Use()
			log := conf.Logger().WithField("command", "expire-consents")

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			ctx := composables.WithPool(cmd.Context(), pool)

			notifier := notify.NewComposite(
				log,
				notify.NewSMTPNotifier(conf.Mail, notify.NewPgStudentDirectory()),
				notify.NewEskizSender(conf.Eskiz),
			)
			workflow := exeatservices.NewWorkflowService(
				exeatpersistence.NewExeatRepository(),
				exeatpersistence.NewConsentRepository(),
				auditservices.NewAuditService(auditpersistence.NewAuditLogRepository(), log),
				notifier,
				eventbus.NewEventPublisher(conf.Logger()),
				log,
				conf.Origin,
				conf.ConsentTTL,
			)

			var expired int
			job := schedule.NewJob("expire-consents", func(jobCtx context.Context) error {
				var runErr error
				expired, runErr = workflow.ExpireOverdueConsents(jobCtx, limit)
				return runErr
			}, schedule.Options{Logger: log})

			start := time.Now()
			if err := job.Run(ctx); err != nil {
				return err
			}

			return writeJSON(expireOutput{
				Command:    "expire-consents",
				DurationMS: time.Since(start).Milliseconds(),
				Expired:    expired,
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 200, "Maximum number of overdue consents to process")
	return cmd
}
