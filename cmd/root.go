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
	"time"

	"github.com/ajjensen13/gke"
	"github.com/spf13/cobra"

	"github.com/ajjensen13/markethub/internal/job"
	"github.com/ajjensen13/markethub/internal/util"
)

var rootCmd = &cobra.Command{
	Use:   "markethub",
	Short: "Maintain daily market data in TimescaleDB",
	Long: `markethub keeps a TimescaleDB store of daily OHLCV bars healthy: it
ingests recent bars, repairs gaps in stored history, tracks splits and
dividends, and audits the data quality of every registered symbol.`,
}

// Execute runs the root command. It is called once by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runJob wires the application and triggers one maintenance job. Every
// trigger command funnels through here so they authenticate, log, and report
// the same way.
func runJob(cmd *cobra.Command, days int, kind job.Kind, trigger func(ctx context.Context, a *app, runner *job.Runner) (job.Summary, error)) {
	lg, cleanup := logger()
	defer cleanup()

	auth, err := apiAuth(cmd.Context())
	if err != nil {
		panic(lg.ErrorErr(fmt.Errorf("failed to load api credentials: %w", err)))
	}
	ctx := util.WithLogger(auth, lg)

	app, cleanupApp, err := buildApp(ctx, lg)
	if err != nil {
		panic(lg.ErrorErr(fmt.Errorf("failed to wire application: %w", err)))
	}
	defer cleanupApp()

	sum, err := trigger(ctx, app, app.runnerWithDays(kind, days))
	if err != nil {
		panic(lg.ErrorErr(err))
	}

	logSummary(lg, sum)
}

// parseRange turns --start/--end flags into a session-date window in tz. An
// empty end means today; start must be given whenever end is.
func parseRange(startFlag, endFlag string, tz *time.Location) (start, end time.Time, err error) {
	if startFlag == "" {
		return start, end, fmt.Errorf("--end requires --start")
	}
	start, err = time.ParseInLocation("2006-01-02", startFlag, tz)
	if err != nil {
		return start, end, fmt.Errorf("failed to parse --start: %w", err)
	}
	if endFlag == "" {
		return start, time.Now().In(tz), nil
	}
	end, err = time.ParseInLocation("2006-01-02", endFlag, tz)
	if err != nil {
		return start, end, fmt.Errorf("failed to parse --end: %w", err)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("--end %s precedes --start %s", endFlag, startFlag)
	}
	return start, end, nil
}

// logSummary reports one finished job run at default severity.
func logSummary(lg gke.Logger, sum job.Summary) {
	lg.Defaultf("%s run %s finished in %s: %d/%d symbols succeeded, %d written, %d issues", sum.Kind, sum.RunID, sum.Duration(), sum.Symbols-sum.Failed, sum.Symbols, sum.Written, sum.Issues)
}
