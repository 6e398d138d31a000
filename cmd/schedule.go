/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/ajjensen13/markethub/internal/job"
	"github.com/ajjensen13/markethub/internal/util"
)

// scheduleEntry pairs a job trigger with its daily run time. The kind rides
// along so a run that fails before it produces a summary, like one rejected
// with job.ErrBusy, still logs which job it was.
type scheduleEntry struct {
	kind job.Kind
	at   string
	run  func(context.Context, ...string) (job.Summary, error)
}

func scheduleEntries(runner *job.Runner, schedule scheduleConfig) []scheduleEntry {
	return []scheduleEntry{
		{job.KindIngestion, schedule.Ingestion, runner.RunIngestion},
		{job.KindRepair, schedule.Repair, runner.RunRepair},
		{job.KindCorporateActions, schedule.CorporateActions, runner.RunCorporateActions},
		{job.KindQualityChecks, schedule.QualityChecks, runner.RunQualityChecks},
	}
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run maintenance jobs on a daily schedule until interrupted",
	Long: `Runs the ingestion, repair, corporate action, and quality check jobs
once per day at their configured times. The process keeps running
until it receives SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		auth, err := apiAuth(cmd.Context())
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup api authentication: %w", err)))
		}

		ctx := util.WithLogger(auth, lg)
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, cleanupApp, err := buildApp(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to wire application: %w", err)))
		}
		defer cleanupApp()

		if app.cfg.RunJobsOnStartup {
			lg.Defaultf("running maintenance cycle on startup")
			summaries, err := app.runner.RunCycle(ctx)
			for _, sum := range summaries {
				logSummary(lg, sum)
			}
			if err != nil {
				lg.Warningf("startup cycle finished with errors: %v", err)
			}
		}

		schedule := app.cfg.Schedule.withDefaults()
		sched := gocron.NewScheduler(app.tz)
		for _, entry := range scheduleEntries(app.runner, schedule) {
			kind, run := entry.kind, entry.run
			_, err := sched.Every(1).Day().At(entry.at).Do(func() {
				sum, err := run(ctx)
				if err != nil {
					lg.Warningf("%s run finished with errors: %v", kind, err)
					return
				}
				logSummary(lg, sum)
			})
			if err != nil {
				panic(lg.ErrorErr(fmt.Errorf("failed to schedule %s at %q: %w", entry.kind, entry.at, err)))
			}
		}

		sched.StartAsync()
		lg.Defaultf("scheduler started in %s: ingestion at %s, repair at %s, corporate actions at %s, quality checks at %s", app.tz, schedule.Ingestion, schedule.Repair, schedule.CorporateActions, schedule.QualityChecks)

		<-ctx.Done()
		sched.Stop()
		lg.Defaultf("scheduler stopped")
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
