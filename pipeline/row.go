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

// Package pipeline holds the row model the lookup operator reads from and
// writes to.
package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cardinalhq/keytoname/pipeline/wkk"
)

// Row represents a single data row as a map of RowKey to any value.
type Row map[wkk.RowKey]any

// GetString retrieves a string value from the Row.
// Returns empty string if the key is not found or the value is not a string.
func (r Row) GetString(key wkk.RowKey) string {
	if val, ok := r[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// Text renders the cell at key as a string. Numbers decoded from JSON keep
// their literal form, so a version column holding 1.0 reads as "1.0".
// The second result is false when the key is absent or nil.
func (r Row) Text(key wkk.RowKey) (string, bool) {
	val, ok := r[key]
	if !ok || val == nil {
		return "", false
	}
	switch v := val.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// SetString stores a string value.
func (r Row) SetString(key wkk.RowKey, value string) {
	r[key] = value
}
