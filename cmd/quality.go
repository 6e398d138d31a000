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
	qualityDays  int
	qualityStart string
	qualityEnd   string
)

var qualityCmd = &cobra.Command{
	Use:   "quality [symbol...]",
	Short: "Audit the stored history of every active symbol",
	Long: `quality runs the duplicate, completeness, and anomaly checks over the
configured window (or an explicit --start/--end range) and records a finding
per check, issues or not.`,
	Run: func(cmd *cobra.Command, args []string) {
		runJob(cmd, qualityDays, job.KindQualityChecks, func(ctx context.Context, a *app, runner *job.Runner) (job.Summary, error) {
			if qualityStart != "" || qualityEnd != "" {
				start, end, err := parseRange(qualityStart, qualityEnd, a.tz)
				if err != nil {
					return job.Summary{}, err
				}
				return runner.RunQualityChecksRange(ctx, start, end, args...)
			}
			return runner.RunQualityChecks(ctx, args...)
		})
	},
}

func init() {
	qualityCmd.Flags().IntVar(&qualityDays, "days", 0, "lookback window in days (0 uses the configured window)")
	qualityCmd.Flags().StringVar(&qualityStart, "start", "", "first session to check (2006-01-02)")
	qualityCmd.Flags().StringVar(&qualityEnd, "end", "", "last session to check (2006-01-02, defaults to today)")
	rootCmd.AddCommand(qualityCmd)
}
