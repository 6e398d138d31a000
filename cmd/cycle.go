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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajjensen13/markethub/internal/util"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle [symbol...]",
	Short: "Run every maintenance job once in order",
	Long: `cycle runs ingestion, gap repair, corporate-action tracking, and the
quality checks back to back, the same order the scheduler uses. A failing job
does not stop the ones after it.`,
	Run: func(cmd *cobra.Command, args []string) {
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

		sums, err := app.runner.RunCycle(ctx, args...)
		for _, sum := range sums {
			logSummary(lg, sum)
		}
		if err != nil {
			panic(lg.ErrorErr(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(cycleCmd)
}
