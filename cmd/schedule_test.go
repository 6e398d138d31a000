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
	"testing"
	"time"

	"github.com/ajjensen13/markethub/internal/job"
)

// Every schedule entry must carry its own job kind and configured time, so
// a trigger that fails before producing a summary can still be attributed
// to the job that fired.
func TestScheduleEntriesCarryKindAndTime(t *testing.T) {
	runner := job.NewRunner(nil, nil, nil, nil, time.UTC, job.Config{})
	entries := scheduleEntries(runner, scheduleConfig{}.withDefaults())

	want := []struct {
		kind job.Kind
		at   string
	}{
		{job.KindIngestion, "18:00"},
		{job.KindRepair, "19:00"},
		{job.KindCorporateActions, "20:00"},
		{job.KindQualityChecks, "21:00"},
	}
	if len(entries) != len(want) {
		t.Fatalf("scheduleEntries() returned %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].kind != w.kind {
			t.Errorf("entry %d kind = %s, want %s", i, entries[i].kind, w.kind)
		}
		if entries[i].at != w.at {
			t.Errorf("entry %d time = %s, want %s", i, entries[i].at, w.at)
		}
		if entries[i].run == nil {
			t.Errorf("entry %d has no trigger", i)
		}
	}
}
