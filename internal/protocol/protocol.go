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

// Package protocol defines the contracts the lookup pipeline needs from an
// external protocol metadata source.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

var (
	// ErrProtocolNotFound is returned when no protocol matches a name and version.
	ErrProtocolNotFound = errors.New("protocol not found")
	// ErrElementNotFound is returned when an element is unknown to the source.
	ErrElementNotFound = errors.New("element not found")
	// ErrUnknownParameter is returned when a protocol has no parameter with the requested id.
	ErrUnknownParameter = errors.New("unknown parameter id")
)

// Metadata is a protocol definition. Implementations must be safe for
// concurrent use and must not change once handed out.
type Metadata interface {
	ParameterName(parameterID int) (string, error)
}

// Connection resolves protocol metadata from an external source.
// Both methods may block on I/O and should honour ctx.
type Connection interface {
	GetProtocol(ctx context.Context, name, version string) (Metadata, error)
	GetElementProtocol(ctx context.Context, dataminerID, elementID int) (Metadata, error)
}

// Definition is a Metadata backed by an id to name map.
type Definition struct {
	Name       string
	Version    string
	Parameters map[int]string
}

var _ Metadata = (*Definition)(nil)

// NewDefinition copies params so later changes by the caller are not visible.
func NewDefinition(name, version string, params map[int]string) *Definition {
	cp := make(map[int]string, len(params))
	maps.Copy(cp, params)
	return &Definition{Name: name, Version: version, Parameters: cp}
}

// ParameterName returns the display name of parameterID.
func (d *Definition) ParameterName(parameterID int) (string, error) {
	if d == nil {
		return "", fmt.Errorf("%w: %d", ErrUnknownParameter, parameterID)
	}
	name, ok := d.Parameters[parameterID]
	if !ok {
		return "", fmt.Errorf("%w: %d in %s/%s", ErrUnknownParameter, parameterID, d.Name, d.Version)
	}
	return name, nil
}

// Key returns "name/version", the cache key of a protocol looked up by name.
func (d *Definition) Key() string {
	return CacheKey(d.Name, d.Version)
}

// CacheKey formats the by-protocol cache key.
func CacheKey(name, version string) string {
	return name + "/" + version
}
