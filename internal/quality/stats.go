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

package quality

import (
	"math"
	"time"

	"github.com/ajjensen13/markethub/internal/model"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev returns the population standard deviation of xs.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// dailyReturns computes simple close-to-close returns. The two slices stay
// aligned: rets[i] is the return realized on dates[i]. Pairs with a
// non-positive previous close are dropped since a ratio against them is
// meaningless.
func dailyReturns(bars []model.Bar) (dates []time.Time, rets []float64) {
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		dates = append(dates, bars[i].Timestamp)
		rets = append(rets, (bars[i].Close-prev)/prev)
	}
	return dates, rets
}
