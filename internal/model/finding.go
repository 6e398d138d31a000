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
	"time"
)

// QualityFinding is the persisted outcome of a single data-quality check
// invocation over a symbol and date range. One row per invocation, not per
// issue; zero-issue runs are recorded too so the audit trail shows the check
// ran. Resolution happens out of band by setting Resolved.
type QualityFinding struct {
	ID         int64
	Symbol     string
	CheckType  CheckType
	Severity   Severity
	CheckTime  time.Time
	RangeStart time.Time
	RangeEnd   time.Time
	IssueCount int
	Details    string
	Resolved   bool
	ResolvedAt *time.Time
}
