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

package paramkey

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want Identity
	}{
		{"simple", "1/5/200", Identity{DataMinerID: 1, ElementID: 5, ParameterID: 200}},
		{"zero ids", "0/0/0", Identity{}},
		{"surrounding space", " 12/34/56 ", Identity{DataMinerID: 12, ElementID: 34, ParameterID: 56}},
		{"table index", "1/5/1001/row_a", Identity{DataMinerID: 1, ElementID: 5, ParameterID: 1001, Index: "row_a"}},
		{"index with slash", "1/5/1001/a/b", Identity{DataMinerID: 1, ElementID: 5, ParameterID: 1001, Index: "a/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	keys := []string{
		"",
		"not-a-key",
		"1/5",
		"a/5/200",
		"1/b/200",
		"1/5/c",
		"1/5/-3",
		"1//200",
		"1/5/200/",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			got, err := Parse(key)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedKey))
			assert.Equal(t, Identity{}, got, "no partial identity on failure")

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, key, pe.Key)
		})
	}
}

func TestIdentity_RoundTrip(t *testing.T) {
	ids := []Identity{
		{DataMinerID: 1, ElementID: 5, ParameterID: 200},
		{DataMinerID: 346, ElementID: 12001, ParameterID: 65012},
		{DataMinerID: 2147483647, ElementID: 1, ParameterID: 0},
		{DataMinerID: 7, ElementID: 8, ParameterID: 9, Index: "idx/with/slashes"},
	}
	for dma := 0; dma < 20; dma++ {
		for pid := 0; pid < 300; pid += 37 {
			ids = append(ids, Identity{DataMinerID: dma, ElementID: dma * 3, ParameterID: pid})
		}
	}

	for _, id := range ids {
		got, err := Parse(id.String())
		require.NoError(t, err, id.String())
		assert.Equal(t, id, got)
	}
}

func TestIdentity_ElementKey(t *testing.T) {
	id, err := Parse("1/5/200/x")
	require.NoError(t, err)
	assert.Equal(t, "1/5", id.ElementKey())
}
