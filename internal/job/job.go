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

// Package job runs the maintenance jobs across the symbol registry. One
// runner executes one job at a time; within a job, symbols proceed in
// parallel but fail independently, so a bad symbol never poisons the rest.
package job

import (
	"time"

	"github.com/google/uuid"
)

// Kind names a maintenance job.
type Kind string

const (
	KindIngestion        Kind = "ingestion"
	KindRepair           Kind = "repair"
	KindCorporateActions Kind = "corporate_actions"
	KindQualityChecks    Kind = "quality_checks"
)

// Lookback windows used when the configuration leaves them unset.
const (
	DefaultIngestDays  = 5
	DefaultRepairDays  = 30
	DefaultActionsDays = 7
	DefaultQualityDays = 30
	DefaultParallelism = 4
)

// Config sets the lookback window of each job in days and how many symbols
// run concurrently.
type Config struct {
	IngestDays  int `json:"ingest_days"`
	RepairDays  int `json:"repair_days"`
	ActionsDays int `json:"actions_days"`
	QualityDays int `json:"quality_days"`
	Parallelism int `json:"parallelism"`
}

func (c Config) withDefaults() Config {
	if c.IngestDays <= 0 {
		c.IngestDays = DefaultIngestDays
	}
	if c.RepairDays <= 0 {
		c.RepairDays = DefaultRepairDays
	}
	if c.ActionsDays <= 0 {
		c.ActionsDays = DefaultActionsDays
	}
	if c.QualityDays <= 0 {
		c.QualityDays = DefaultQualityDays
	}
	if c.Parallelism <= 0 {
		c.Parallelism = DefaultParallelism
	}
	return c
}

// SymbolResult is the outcome of one job for one symbol. Written counts bars
// or corporate actions persisted, Issues counts quality issues found; each
// job fills the fields that apply to it.
type SymbolResult struct {
	Symbol  string
	Written int
	Issues  int
	Err     error
}

// Summary is the outcome of one job run across the registry.
type Summary struct {
	RunID    uuid.UUID
	Kind     Kind
	Started  time.Time
	Finished time.Time
	Symbols  int
	Failed   int
	Written  int
	Issues   int
	Results  []SymbolResult
}

func (s Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}
