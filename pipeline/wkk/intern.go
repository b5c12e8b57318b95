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

// Package wkk interns column names so rows can be keyed by cheap,
// comparable handles.
package wkk

import (
	"unique"
)

type rowkey string

type RowKey = unique.Handle[rowkey]

func NewRowKey(s string) RowKey {
	return unique.Make(rowkey(s))
}

func RowKeyValue(rk RowKey) string {
	return string(rk.Value())
}

// Default column names used when no explicit binding is configured.
var (
	// RowKeyParameterKey: "parameter_key"
	RowKeyParameterKey = NewRowKey("parameter_key")

	// RowKeyProtocolName: "protocol_name"
	RowKeyProtocolName = NewRowKey("protocol_name")

	// RowKeyProtocolVersion: "protocol_version"
	RowKeyProtocolVersion = NewRowKey("protocol_version")

	// RowKeyParameterName: "parameter_name"
	RowKeyParameterName = NewRowKey("parameter_name")
)
