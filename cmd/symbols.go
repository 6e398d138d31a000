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

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Manage the symbol registry",
}

var (
	addName     string
	addExchange string
	addType     string
	addSector   string
	addIndustry string
	addDiscover bool
)

var addSymbolCmd = &cobra.Command{
	Use:   "add <symbol>",
	Short: "Register a symbol for maintenance",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		assetType, err := model.ParseAssetType(addType)
		if err != nil {
			panic(lg.ErrorErr(err))
		}

		ctx := util.WithLogger(cmd.Context(), lg)
		app, cleanupApp, err := buildApp(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to wire application: %w", err)))
		}
		defer cleanupApp()

		sym := model.Symbol{
			Symbol:     strings.ToUpper(args[0]),
			Name:       addName,
			Exchange:   addExchange,
			AssetType:  assetType,
			Sector:     addSector,
			Industry:   addIndustry,
			IsActive:   true,
			DataSource: "finnhub",
		}
		created, err := app.store.AddSymbol(ctx, sym)
		if err != nil {
			panic(lg.ErrorErr(err))
		}
		if created {
			lg.Defaultf("registered symbol %q", sym.Symbol)
		} else {
			lg.Defaultf("symbol %q is already registered", sym.Symbol)
		}

		if !addDiscover {
			return
		}

		auth, err := apiAuth(ctx)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to load api credentials: %w", err)))
		}
		profile, err := app.market.Profile(auth, sym.Symbol)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to fetch company profile for %q: %w", sym.Symbol, err)))
		}
		if _, err := app.store.EnrichSymbol(ctx, sym.Symbol, profile.Name, profile.Exchange, profile.Industry); err != nil {
			panic(lg.ErrorErr(err))
		}
		lg.Defaultf("enriched symbol %q from its company profile", sym.Symbol)
	},
}

var listAll bool

var listSymbolsCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered symbols",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx := util.WithLogger(cmd.Context(), lg)
		app, cleanupApp, err := buildApp(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to wire application: %w", err)))
		}
		defer cleanupApp()

		symbols, err := app.store.ListSymbols(ctx, listAll)
		if err != nil {
			panic(lg.ErrorErr(err))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tNAME\tEXCHANGE\tTYPE\tACTIVE")
		for _, s := range symbols {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", s.Symbol, s.Name, s.Exchange, s.AssetType, s.IsActive)
		}
		if err := w.Flush(); err != nil {
			panic(lg.ErrorErr(err))
		}
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <symbol>",
	Short: "Resume maintenance for a symbol",
	Args:  cobra.ExactArgs(1),
	Run:   setActiveRun(true),
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <symbol>",
	Short: "Pause maintenance for a symbol without deleting its history",
	Args:  cobra.ExactArgs(1),
	Run:   setActiveRun(false),
}

func setActiveRun(active bool) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx := util.WithLogger(cmd.Context(), lg)
		app, cleanupApp, err := buildApp(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to wire application: %w", err)))
		}
		defer cleanupApp()

		symbol := strings.ToUpper(args[0])
		found, err := app.store.SetActive(ctx, symbol, active)
		if err != nil {
			panic(lg.ErrorErr(err))
		}
		if !found {
			panic(lg.ErrorErr(fmt.Errorf("symbol %q is not registered", symbol)))
		}
		if active {
			lg.Defaultf("symbol %q is active", symbol)
		} else {
			lg.Defaultf("symbol %q is inactive", symbol)
		}
	}
}

var discoverExchange string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Register every listing on an exchange",
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

		exchange := discoverExchange
		if exchange == "" {
			exchange = app.cfg.Exchange
		}
		if exchange == "" {
			exchange = "US"
		}

		listings, err := app.market.Symbols(ctx, exchange)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to list %q listings: %w", exchange, err)))
		}

		var added int
		for _, l := range listings {
			created, err := app.store.AddSymbol(ctx, model.Symbol{
				Symbol:     l.Symbol,
				Name:       l.Description,
				Exchange:   exchange,
				AssetType:  model.AssetEquity,
				IsActive:   true,
				DataSource: "finnhub",
			})
			if err != nil {
				panic(lg.ErrorErr(fmt.Errorf("failed to register %q: %w", l.Symbol, err)))
			}
			if created {
				added++
			}
		}
		lg.Defaultf("registered %d of %d listings on %q", added, len(listings), exchange)
	},
}

func init() {
	addSymbolCmd.Flags().StringVar(&addName, "name", "", "company or instrument name")
	addSymbolCmd.Flags().StringVar(&addExchange, "exchange", "", "listing exchange")
	addSymbolCmd.Flags().StringVar(&addType, "type", string(model.AssetEquity), "asset type (equity, etf, index, crypto)")
	addSymbolCmd.Flags().StringVar(&addSector, "sector", "", "sector")
	addSymbolCmd.Flags().StringVar(&addIndustry, "industry", "", "industry")
	addSymbolCmd.Flags().BoolVar(&addDiscover, "discover", false, "fill missing metadata from the company profile")
	listSymbolsCmd.Flags().BoolVar(&listAll, "all", false, "include inactive symbols")
	discoverCmd.Flags().StringVar(&discoverExchange, "exchange", "", "exchange code (defaults to the configured exchange)")

	symbolsCmd.AddCommand(addSymbolCmd)
	symbolsCmd.AddCommand(listSymbolsCmd)
	symbolsCmd.AddCommand(activateCmd)
	symbolsCmd.AddCommand(deactivateCmd)
	symbolsCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(symbolsCmd)
}
