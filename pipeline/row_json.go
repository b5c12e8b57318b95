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

package pipeline

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/cardinalhq/keytoname/pipeline/wkk"
)

// MarshalJSON renders the row as a JSON object with keys in sorted order.
func (r Row) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r))
	values := make(map[string]any, len(r))
	for k, v := range r {
		name := wkk.RowKeyValue(k)
		keys = append(keys, name)
		values[name] = v
	}
	slices.Sort(keys)

	buf := make([]byte, 0, 64*len(keys)+2)
	buf = append(buf, '{')
	for i, name := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(values[name])
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON decodes a JSON object into the row, interning every key.
// Numbers are kept as json.Number so their literal text survives.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}

	*r = make(Row, len(m))
	for k, v := range m {
		(*r)[wkk.NewRowKey(k)] = v
	}
	return nil
}
