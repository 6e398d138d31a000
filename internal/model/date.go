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

package model

import (
	"fmt"
	"time"
)

// SessionDate truncates t to the trading-session date (midnight) in loc.
// All bar timestamps and gap arithmetic are normalized through here so that
// provider timestamps and stored timestamps compare equal for the same
// session.
func SessionDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// YearMonth is a calendar month bucket, the grain of the completeness check
// and of the store's time partitioning.
type YearMonth struct {
	Year  int
	Month time.Month
}

func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// MonthsBetween enumerates every calendar month touched by [start, end],
// inclusive. Months with no stored bars still count toward completeness, so
// the enumeration cannot come from the store. Returns nil when end precedes
// start.
func MonthsBetween(start, end time.Time) []YearMonth {
	first := YearMonthOf(start)
	last := YearMonthOf(end)
	if end.Before(start) {
		return nil
	}
	var out []YearMonth
	for ym := first; ; ym = ym.Next() {
		out = append(out, ym)
		if ym == last {
			break
		}
	}
	return out
}
