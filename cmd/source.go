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

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cardinalhq/keytoname/config"
	"github.com/cardinalhq/keytoname/internal/logctx"
	"github.com/cardinalhq/keytoname/internal/protocol"
	"github.com/cardinalhq/keytoname/internal/protocol/catalog"
	"github.com/cardinalhq/keytoname/internal/protocolcache"
	"github.com/cardinalhq/keytoname/internal/protocoldb"
)

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

// openConnection returns the configured protocol source and a function that
// releases it.
func openConnection(ctx context.Context, cfg *config.Config) (protocol.Connection, func(), error) {
	ll := logctx.FromContext(ctx)

	switch cfg.Source.Kind {
	case config.SourceCatalog:
		c, err := catalog.Load(cfg.Source.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		ll.Info("Loaded protocol catalog",
			slog.String("path", cfg.Source.CatalogPath),
			slog.Int("protocols", c.Protocols()),
			slog.Int("elements", c.Elements()))
		return c, func() {}, nil

	case config.SourcePostgres:
		url := cfg.Source.DatabaseURL
		if url == "" {
			var err error
			url, err = protocoldb.DatabaseURLFromEnv("PROTOCOLDB")
			if err != nil {
				return nil, nil, err
			}
		}
		pool, err := protocoldb.NewConnectionPool(ctx, url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to protocol database: %w", err)
		}
		ll.Info("Connected to protocol database")
		return protocoldb.New(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// newMetadataCache returns the cache for one pipeline according to the
// configured scope, and a function to call when the pipeline is done.
func newMetadataCache(cfg *config.Config) (*protocolcache.MetadataCache, func()) {
	opts := append(cfg.CacheOptions(), protocolcache.WithLogger(slog.Default()))
	if cfg.Cache.Scope == config.ScopePipeline {
		c := protocolcache.New[protocol.Metadata](append([]protocolcache.Option{protocolcache.WithName("pipeline")}, opts...)...)
		return c, c.Close
	}
	return protocolcache.Process(opts...), func() {}
}
