//go:build wireinject
// +build wireinject

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

	"github.com/ajjensen13/gke"
	"github.com/golang-migrate/migrate/v4"
	"github.com/google/wire"
)

func logger() (lg gke.Logger, cleanup func()) {
	panic(wire.Build(provideLogger))
}

func apiAuth(ctx context.Context) (auth apiAuthContext, err error) {
	panic(wire.Build(provideApiAuthContext, provideAppSecrets))
}

func buildApp(ctx context.Context, lg gke.Logger) (a *app, cleanup func(), err error) {
	panic(wire.Build(
		newApp,
		provideAppConfig,
		provideTimezone,
		provideDbSecrets,
		provideDataSourceName,
		provideDbConnPool,
		provideBackoffFactory,
		provideBackoffNotifier,
		provideStore,
		provideApiServiceClient,
		provideRateLimiter,
		provideMarketData,
		provideIngestService,
		provideTracker,
		provideQualityService,
		provideRunner,
	))
}

func migrator(lg gke.Logger) (m *migrate.Migrate, err error) {
	panic(wire.Build(provideMigrator, provideMigrationSourceURL, provideDataSourceName, provideDbSecrets, provideAppConfig))
}
