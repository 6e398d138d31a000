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
	"github.com/shopspring/decimal"
	"time"
)

// CorporateAction is a split or dividend event for a symbol. Storage uses a
// surrogate id, but the natural identity is (Symbol, ExDate, Type); the
// tracker de-duplicates on that triple before insert. Processed flips
// exactly once when a downstream adjustment consumer takes the event.
type CorporateAction struct {
	ID             int64
	Symbol         string
	Type           ActionType
	ExDate         time.Time
	SplitRatio     decimal.NullDecimal
	DividendAmount decimal.NullDecimal
	Processed      bool
	ProcessedAt    *time.Time
	CreatedAt      time.Time
}
