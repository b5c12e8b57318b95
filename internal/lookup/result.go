// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package lookup

import (
	"errors"
)

// ErrMetadataFetch wraps any failure of the external source on a cache miss.
var ErrMetadataFetch = errors.New("metadata fetch failed")

// Outcome classifies how a row's name was produced.
type Outcome int

const (
	// OutcomeResolved means the name came from protocol metadata.
	OutcomeResolved Outcome = iota
	// OutcomeNoMetadata means the source returned no metadata; the raw key is used.
	OutcomeNoMetadata
	// OutcomeMalformedKey means the key did not parse; the raw key is used.
	OutcomeMalformedKey
	// OutcomeFetchFailed means the source lookup failed; the placeholder is used.
	OutcomeFetchFailed
	// OutcomeUnknownParameter means the protocol lacks the parameter; the placeholder is used.
	OutcomeUnknownParameter
)

var outcomeNames = [...]string{
	OutcomeResolved:         "resolved",
	OutcomeNoMetadata:       "no_metadata",
	OutcomeMalformedKey:     "malformed_key",
	OutcomeFetchFailed:      "fetch_failed",
	OutcomeUnknownParameter: "unknown_parameter",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Strategy is how the cache key for a row was derived.
type Strategy int

const (
	// StrategyNone is used when the key never parsed.
	StrategyNone Strategy = iota
	// StrategyByProtocol keys the cache by "name/version".
	StrategyByProtocol
	// StrategyByElement keys the cache by "dataminerID/elementID".
	StrategyByElement
)

func (s Strategy) String() string {
	switch s {
	case StrategyByProtocol:
		return "by_protocol"
	case StrategyByElement:
		return "by_element"
	default:
		return "none"
	}
}

// Result is the outcome of resolving one key. Name is always the value to
// write, including the fallback cases; Err explains non-resolved outcomes.
type Result struct {
	Name     string
	Outcome  Outcome
	Strategy Strategy
	CacheKey string
	Err      error
}

// Fallback reports whether Name is a substitute rather than a resolved name.
func (r Result) Fallback() bool {
	return r.Outcome != OutcomeResolved
}
