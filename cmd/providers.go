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
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/ajjensen13/config"
	"github.com/ajjensen13/gke"
	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgtype"
	shopspringnumeric "github.com/jackc/pgtype/ext/shopspring-numeric"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/time/rate"

	"github.com/ajjensen13/markethub/internal/actions"
	"github.com/ajjensen13/markethub/internal/ingest"
	"github.com/ajjensen13/markethub/internal/job"
	"github.com/ajjensen13/markethub/internal/provider"
	"github.com/ajjensen13/markethub/internal/quality"
	"github.com/ajjensen13/markethub/internal/store"
)

const (
	dbSecretName  = "markethub-db-secret.json"
	appConfigName = "markethub-config-cm.json"
	apiSecretName = "markethub-api-secret.json"
)

type appConfig struct {
	Timezone            string         `json:"timezone"`
	Exchange            string         `json:"exchange"`
	DataSourceName      string         `json:"data_source_name"`
	MigrationSourceURL  string         `json:"migration_source_url"`
	AtomicIngest        bool           `json:"atomic_ingest"`
	RateLimitPerSecond  float64        `json:"rate_limit_per_second"`
	RateLimitBurst      int            `json:"rate_limit_burst"`
	MinBarsPerMonth     int            `json:"min_bars_per_month"`
	PriceSigmaThreshold float64        `json:"price_sigma_threshold"`
	VolumeZThreshold    float64        `json:"volume_z_threshold"`
	Jobs                job.Config     `json:"jobs"`
	Schedule            scheduleConfig `json:"schedule"`
	RunJobsOnStartup    bool           `json:"run_jobs_on_startup"`
}

// scheduleConfig holds the local wall-clock times the daemon fires each job
// at, in "15:04" form.
type scheduleConfig struct {
	Ingestion        string `json:"ingestion"`
	Repair           string `json:"repair"`
	CorporateActions string `json:"corporate_actions"`
	QualityChecks    string `json:"quality_checks"`
}

func (s scheduleConfig) withDefaults() scheduleConfig {
	if s.Ingestion == "" {
		s.Ingestion = "18:00"
	}
	if s.Repair == "" {
		s.Repair = "19:00"
	}
	if s.CorporateActions == "" {
		s.CorporateActions = "20:00"
	}
	if s.QualityChecks == "" {
		s.QualityChecks = "21:00"
	}
	return s
}

type appSecrets struct {
	ApiKey string `json:"api_key"`
}

// apiAuthContext is a context carrying the upstream credential.
type apiAuthContext context.Context

// app bundles the wired services behind the commands.
type app struct {
	cfg     *appConfig
	tz      *time.Location
	store   *store.Store
	market  *provider.Finnhub
	ingest  *ingest.Service
	actions *actions.Tracker
	quality *quality.Service
	runner  *job.Runner
}

func newApp(cfg *appConfig, tz *time.Location, st *store.Store, market *provider.Finnhub, ingestSvc *ingest.Service, tracker *actions.Tracker, qualitySvc *quality.Service, runner *job.Runner) *app {
	return &app{
		cfg:     cfg,
		tz:      tz,
		store:   st,
		market:  market,
		ingest:  ingestSvc,
		actions: tracker,
		quality: qualitySvc,
		runner:  runner,
	}
}

// runnerWithDays returns the configured runner, or a runner whose window for
// kind is overridden to days when a command passes an explicit flag.
func (a *app) runnerWithDays(kind job.Kind, days int) *job.Runner {
	if days <= 0 {
		return a.runner
	}
	cfg := a.cfg.Jobs
	switch kind {
	case job.KindIngestion:
		cfg.IngestDays = days
	case job.KindRepair:
		cfg.RepairDays = days
	case job.KindCorporateActions:
		cfg.ActionsDays = days
	case job.KindQualityChecks:
		cfg.QualityDays = days
	}
	return job.NewRunner(a.store, a.ingest, a.actions, a.quality, a.tz, cfg)
}

func provideAppConfig() (*appConfig, error) {
	var result appConfig
	err := config.InterfaceJson(appConfigName, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func provideAppSecrets() (*appSecrets, error) {
	var result appSecrets
	err := config.InterfaceJson(apiSecretName, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func provideDbSecrets() (*url.Userinfo, error) {
	ui, err := config.Userinfo(dbSecretName)
	if err != nil {
		return nil, err
	}
	return ui, nil
}

func provideTimezone(appConfig *appConfig) (*time.Location, error) {
	if appConfig.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(appConfig.Timezone)
}

func provideApiServiceClient() *finnhub.DefaultApiService {
	return finnhub.NewAPIClient(finnhub.NewConfiguration()).DefaultApi
}

func provideApiAuthContext(ctx context.Context, secrets *appSecrets) apiAuthContext {
	return provider.WithAPIKey(ctx, secrets.ApiKey)
}

func provideBackoffFactory() func() backoff.BackOff {
	return func() backoff.BackOff {
		result := backoff.NewExponentialBackOff()
		result.InitialInterval = time.Second
		result.MaxElapsedTime = time.Minute
		return result
	}
}

func provideBackoffNotifier(lg gke.Logger) backoff.Notify {
	return func(err error, duration time.Duration) {
		if errors.Is(err, provider.ErrTooManyRequests) {
			lg.Info(gke.NewFmtMsgData("request exceeded rate limit, waiting %v before retrying: %v", duration, err))
			return
		}
		lg.Warning(gke.NewFmtMsgData("request failed, waiting %v before retrying: %v", duration, err))
	}
}

func provideRateLimiter(cfg *appConfig) *rate.Limiter {
	rps := cfg.RateLimitPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func provideDataSourceName(user *url.Userinfo, cfg *appConfig) (dsn *url.URL, err error) {
	dsn, err = url.Parse(cfg.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data source name: %w", err)
	}
	dsn.User = user

	return dsn, nil
}

func provideDbConnPool(ctx context.Context, dsn *url.URL) (ret *pgxpool.Pool, cleanup func(), err error) {
	cfg, err := pgxpool.ParseConfig(dsn.String())
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	// split ratios and dividend amounts bind as shopspring decimals
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		conn.ConnInfo().RegisterDataType(pgtype.DataType{
			Value: &shopspringnumeric.Numeric{},
			Name:  "numeric",
			OID:   pgtype.NumericOID,
		})
		return nil
	}

	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database connection pool: %w", err)
	}

	return pool, pool.Close, nil
}

func provideStore(pool *pgxpool.Pool, newBackOff func() backoff.BackOff, notify backoff.Notify, cfg *appConfig) *store.Store {
	return store.New(pool, newBackOff, notify, cfg.AtomicIngest)
}

func provideMarketData(client *finnhub.DefaultApiService, limiter *rate.Limiter, newBackOff func() backoff.BackOff, notify backoff.Notify, tz *time.Location) *provider.Finnhub {
	return provider.NewFinnhub(client, limiter, newBackOff, notify, tz)
}

func provideIngestService(market *provider.Finnhub, st *store.Store, tz *time.Location) *ingest.Service {
	return ingest.New(market, st, tz)
}

func provideTracker(market *provider.Finnhub, st *store.Store) *actions.Tracker {
	return actions.New(market, st)
}

func provideQualityService(st *store.Store, tz *time.Location, cfg *appConfig) *quality.Service {
	return quality.New(st, tz, cfg.MinBarsPerMonth, cfg.PriceSigmaThreshold, cfg.VolumeZThreshold)
}

func provideRunner(st *store.Store, ingestSvc *ingest.Service, tracker *actions.Tracker, qualitySvc *quality.Service, tz *time.Location, cfg *appConfig) *job.Runner {
	return job.NewRunner(st, ingestSvc, tracker, qualitySvc, tz, cfg.Jobs)
}

func provideMigrationSourceURL(cfg *appConfig) string {
	return cfg.MigrationSourceURL
}

func provideLogger() (lg gke.Logger, cleanup func()) {
	lg, cleanup, err := gke.NewLogger(context.Background())
	if err != nil {
		panic(err)
	}

	gke.LogEnv(lg)
	gke.LogMetadata(lg)

	return lg, cleanup
}

func provideMigrator(lg gke.Logger, databaseURL *url.URL, sourceURL string) (m *migrate.Migrate, err error) {
	m, err = migrate.New(sourceURL, databaseURL.String())
	if err != nil {
		return nil, err
	}
	m.Log = migrationLogger{lg}
	return m, err
}

type migrationLogger struct {
	gke.Logger
}

func (m migrationLogger) Printf(format string, v ...interface{}) {
	m.Defaultf(format, v...)
}

func (m migrationLogger) Verbose() bool {
	return false
}
