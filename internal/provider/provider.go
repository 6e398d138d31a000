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

// Package provider adapts the upstream market-data service. The upstream is
// unreliable on purpose: empty, partial, and rate-limited responses are
// normal outcomes that callers must absorb, not exceptions.
package provider

import (
	"context"
	"errors"
	"github.com/Finnhub-Stock-API/finnhub-go"
)

// ErrTooManyRequests marks responses rejected by the upstream rate limit.
// It stays retryable; the backoff notifier logs these waits distinctly.
var ErrTooManyRequests = errors.New("error: too many requests")

// Listing is one entry of an exchange's symbol directory.
type Listing struct {
	Symbol        string
	DisplaySymbol string
	Description   string
}

// Profile is the subset of a company profile used to enrich the symbol
// registry.
type Profile struct {
	Symbol   string
	Name     string
	Exchange string
	Industry string
	Country  string
	Currency string
}

// WithAPIKey attaches the upstream credential to ctx. Every request method
// expects a context that has passed through here.
func WithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, finnhub.ContextAPIKey, finnhub.APIKey{Key: key})
}
