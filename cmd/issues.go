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
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajjensen13/markethub/internal/model"
	"github.com/ajjensen13/markethub/internal/util"
)

var (
	issuesSymbol   string
	issuesDays     int
	issuesSeverity string
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Show unresolved data-quality findings",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		var severity model.Severity
		if issuesSeverity != "" {
			var err error
			severity, err = model.ParseSeverity(issuesSeverity)
			if err != nil {
				panic(lg.ErrorErr(err))
			}
		}

		ctx := util.WithLogger(cmd.Context(), lg)
		app, cleanupApp, err := buildApp(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to wire application: %w", err)))
		}
		defer cleanupApp()

		findings, err := app.quality.RecentFindings(ctx, strings.ToUpper(issuesSymbol), issuesDays, severity)
		if err != nil {
			panic(lg.ErrorErr(err))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSYMBOL\tCHECK\tSEVERITY\tISSUES\tDETAILS")
		for _, f := range findings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", f.CheckTime.Format("2006-01-02 15:04"), f.Symbol, f.CheckType, f.Severity, f.IssueCount, f.Details)
		}
		if err := w.Flush(); err != nil {
			panic(lg.ErrorErr(err))
		}

		lg.Defaultf("%d unresolved findings", len(findings))
	},
}

func init() {
	issuesCmd.Flags().StringVar(&issuesSymbol, "symbol", "", "only findings for this symbol")
	issuesCmd.Flags().IntVar(&issuesDays, "days", 7, "how many days back to look")
	issuesCmd.Flags().StringVar(&issuesSeverity, "severity", "", "only findings at this severity (warning or error)")
	rootCmd.AddCommand(issuesCmd)
}
