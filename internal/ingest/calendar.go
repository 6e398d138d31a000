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

package ingest

import (
	"time"

	"github.com/ajjensen13/markethub/internal/model"
)

// sessionsBetween returns the expected trading sessions between start and end
// inclusive, ascending. A session is any weekday; market holidays are not
// modeled, so holiday gaps surface as missing sessions until a bar arrives.
func sessionsBetween(start, end time.Time, loc *time.Location) []time.Time {
	first := model.SessionDate(start, loc)
	last := model.SessionDate(end, loc)

	var ret []time.Time
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}
		ret = append(ret, day)
	}
	return ret
}

// nextSession returns the first session after day, skipping weekends.
func nextSession(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// missingRuns partitions missing sessions into session-contiguous runs.
// Sessions separated only by a weekend belong to the same run, so a gap over
// Friday and Monday repairs with a single upstream request.
func missingRuns(missing []time.Time) [][]time.Time {
	if len(missing) == 0 {
		return nil
	}

	ret := [][]time.Time{{missing[0]}}
	for _, session := range missing[1:] {
		last := ret[len(ret)-1]
		if session.Equal(nextSession(last[len(last)-1])) {
			ret[len(ret)-1] = append(last, session)
			continue
		}
		ret = append(ret, []time.Time{session})
	}
	return ret
}
