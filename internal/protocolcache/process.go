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

package protocolcache

import (
	"sync"

	"github.com/cardinalhq/keytoname/internal/protocol"
)

// MetadataCache is the cache type used by lookup pipelines.
type MetadataCache = Cache[protocol.Metadata]

var (
	processCache     *MetadataCache
	processCacheOnce sync.Once
)

// Process returns the process-wide metadata cache, creating it on first use.
// Only the options of the first call take effect.
func Process(opts ...Option) *MetadataCache {
	processCacheOnce.Do(func() {
		opts = append([]Option{WithName("process")}, opts...)
		processCache = New[protocol.Metadata](opts...)
	})
	return processCache
}
