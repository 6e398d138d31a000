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
)

// The enumerations below are closed sets. Values cross the storage boundary
// as strings, but everything inside the engine goes through the Parse
// functions so an unknown value fails at the edge instead of leaking in.

type AssetType string

const (
	AssetEquity AssetType = "equity"
	AssetETF    AssetType = "etf"
	AssetIndex  AssetType = "index"
	AssetCrypto AssetType = "crypto"
)

func ParseAssetType(s string) (AssetType, error) {
	switch AssetType(s) {
	case AssetEquity, AssetETF, AssetIndex, AssetCrypto:
		return AssetType(s), nil
	}
	return "", fmt.Errorf("unknown asset type %q", s)
}

type ActionType string

const (
	ActionSplit    ActionType = "split"
	ActionDividend ActionType = "dividend"
)

func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionSplit, ActionDividend:
		return ActionType(s), nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

type CheckType string

const (
	CheckDuplicate     CheckType = "duplicate"
	CheckCompleteness  CheckType = "completeness"
	CheckPriceAnomaly  CheckType = "price_anomaly"
	CheckVolumeAnomaly CheckType = "volume_anomaly"
)

func ParseCheckType(s string) (CheckType, error) {
	switch CheckType(s) {
	case CheckDuplicate, CheckCompleteness, CheckPriceAnomaly, CheckVolumeAnomaly:
		return CheckType(s), nil
	}
	return "", fmt.Errorf("unknown check type %q", s)
}

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity accepts the closed severity set. The empty string is not a
// severity; callers that treat it as "no filter" must check before parsing.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityWarning, SeverityError:
		return Severity(s), nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}
