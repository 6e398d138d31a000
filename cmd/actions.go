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

var actionsDays int

var actionsCmd = &cobra.Command{
	Use:   "actions [symbol...]",
	Short: "Track recent splits and dividends for every active symbol",
	Run: func(cmd *cobra.Command, args []string) {
		runJob(cmd, actionsDays, job.KindCorporateActions, func(ctx context.Context, a *app, runner *job.Runner) (job.Summary, error) {
			return runner.RunCorporateActions(ctx, args...)
		})
	},
}

func init() {
	actionsCmd.Flags().IntVar(&actionsDays, "days", 0, "lookback window in days (0 uses the configured window)")
	rootCmd.AddCommand(actionsCmd)
}
