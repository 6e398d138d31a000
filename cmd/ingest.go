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

	"github.com/spf13/cobra"

	"github.com/ajjensen13/markethub/internal/job"
)

var (
	ingestDays  int
	ingestStart string
	ingestEnd   string
)

// manualIngestDays is the lookback for a hand-triggered ingest. The schedule
// daemon keeps the narrower configured window; a manual run backfills a year.
const manualIngestDays = 365

var ingestCmd = &cobra.Command{
	Use:   "ingest [symbol...]",
	Short: "Pull recent daily bars for every active symbol",
	Long: `ingest pulls daily bars over the past year by default, or over an
explicit --days window or --start/--end range. Without symbol arguments
it covers every active symbol in the registry.`,
	Run: func(cmd *cobra.Command, args []string) {
		runJob(cmd, ingestDays, job.KindIngestion, func(ctx context.Context, a *app, runner *job.Runner) (job.Summary, error) {
			if ingestStart != "" || ingestEnd != "" {
				start, end, err := parseRange(ingestStart, ingestEnd, a.tz)
				if err != nil {
					return job.Summary{}, err
				}
				return runner.RunIngestionRange(ctx, start, end, args...)
			}
			return runner.RunIngestion(ctx, args...)
		})
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestDays, "days", manualIngestDays, "lookback window in days (0 uses the configured window)")
	ingestCmd.Flags().StringVar(&ingestStart, "start", "", "first session to ingest (2006-01-02)")
	ingestCmd.Flags().StringVar(&ingestEnd, "end", "", "last session to ingest (2006-01-02, defaults to today)")
	rootCmd.AddCommand(ingestCmd)
}
