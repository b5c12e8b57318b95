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

// Package paramkey parses parameter keys of the form
// "dataminerID/elementID/parameterID[/index]" into their numeric identity.
package paramkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedKey is returned (wrapped in a *ParseError) when a key string
// does not have the expected structure.
var ErrMalformedKey = errors.New("malformed parameter key")

// ParseError describes why a key could not be parsed.
type ParseError struct {
	Key    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedKey, e.Key, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedKey
}

// Identity is the parsed form of a parameter key.
type Identity struct {
	DataMinerID int
	ElementID   int
	ParameterID int
	// Index is the optional table row index that follows the parameter id.
	// It is kept verbatim and may itself contain slashes.
	Index string
}

// Parse converts key into an Identity. It either returns a fully populated
// Identity or a *ParseError; it never returns a partial value.
func Parse(key string) (Identity, error) {
	parts := strings.SplitN(strings.TrimSpace(key), "/", 4)
	if len(parts) < 3 {
		return Identity{}, &ParseError{Key: key, Reason: "expected at least three '/' separated ids"}
	}

	ids := [3]int{}
	names := [3]string{"dataminer id", "element id", "parameter id"}
	for i := range ids {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return Identity{}, &ParseError{Key: key, Reason: "invalid " + names[i] + " " + strconv.Quote(parts[i])}
		}
		ids[i] = n
	}

	id := Identity{
		DataMinerID: ids[0],
		ElementID:   ids[1],
		ParameterID: ids[2],
	}
	if len(parts) == 4 {
		if parts[3] == "" {
			return Identity{}, &ParseError{Key: key, Reason: "empty table index"}
		}
		id.Index = parts[3]
	}
	return id, nil
}

// String renders the identity back into key form. Parse(id.String()) == id
// for every Identity with non-negative ids.
func (id Identity) String() string {
	s := fmt.Sprintf("%d/%d/%d", id.DataMinerID, id.ElementID, id.ParameterID)
	if id.Index != "" {
		s += "/" + id.Index
	}
	return s
}

// ElementKey returns "dataminerID/elementID", the identity of the owning element.
func (id Identity) ElementKey() string {
	return strconv.Itoa(id.DataMinerID) + "/" + strconv.Itoa(id.ElementID)
}
