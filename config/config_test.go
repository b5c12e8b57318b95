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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/keytoname/internal/lookup"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "parameter_key", cfg.Columns.ParameterKey)
	assert.Equal(t, "parameter_name", cfg.Columns.ParameterName)
	assert.Empty(t, cfg.Columns.ProtocolName)
	assert.Equal(t, time.Hour, cfg.Cache.IdleTimeout)
	assert.Equal(t, ScopeProcess, cfg.Cache.Scope)
	assert.Equal(t, SourceCatalog, cfg.Source.Kind)
	assert.Equal(t, lookup.DefaultPlaceholder, cfg.Placeholder)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("KEYTONAME_CACHE_IDLE_TIMEOUT", "30m")
	t.Setenv("KEYTONAME_CACHE_SCOPE", "Pipeline")
	t.Setenv("KEYTONAME_CACHE_COALESCE_FETCHES", "true")
	t.Setenv("KEYTONAME_COLUMNS_PROTOCOL_NAME", "proto")
	t.Setenv("KEYTONAME_COLUMNS_PROTOCOL_VERSION", "ver")
	t.Setenv("KEYTONAME_SOURCE_KIND", "postgres")
	t.Setenv("KEYTONAME_CONCURRENCY", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Cache.IdleTimeout)
	assert.Equal(t, ScopePipeline, cfg.Cache.Scope)
	assert.True(t, cfg.Cache.CoalesceFetches)
	assert.Equal(t, "proto", cfg.Columns.ProtocolName)
	assert.Equal(t, "ver", cfg.Columns.ProtocolVersion)
	assert.Equal(t, SourcePostgres, cfg.Source.Kind)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keytoname.yaml")
	doc := `
columns:
  parameter_key: pk
  parameter_name: display
source:
  kind: catalog
  catalog_path: /etc/keytoname/catalog.yaml
  fetch_timeout: 2s
placeholder: unknown
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pk", cfg.Columns.ParameterKey)
	assert.Equal(t, "display", cfg.Columns.ParameterName)
	assert.Equal(t, "/etc/keytoname/catalog.yaml", cfg.Source.CatalogPath)
	assert.Equal(t, 2*time.Second, cfg.Source.FetchTimeout)
	assert.Equal(t, "unknown", cfg.Placeholder)
	assert.Equal(t, time.Hour, cfg.Cache.IdleTimeout, "defaults survive partial files")
	assert.NoError(t, cfg.Validate())

	opts := cfg.LookupOptions()
	assert.Equal(t, "pk", opts.Columns.ParameterKey)
	assert.Equal(t, 2*time.Second, opts.FetchTimeout)
	assert.Len(t, cfg.CacheOptions(), 3)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Columns.ParameterKey = ""
	cfg.Columns.ProtocolName = "proto"
	cfg.Cache.IdleTimeout = 0
	cfg.Cache.Scope = "global"
	cfg.Source.Kind = "http"
	cfg.Concurrency = -1

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "columns.parameter_key is required")
	assert.Contains(t, msg, "must be set together")
	assert.Contains(t, msg, "cache.idle_timeout")
	assert.Contains(t, msg, "cache.scope")
	assert.Contains(t, msg, "source.kind")
	assert.Contains(t, msg, "concurrency")
}

func TestValidate_CatalogNeedsPath(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.catalog_path")

	cfg.Source.CatalogPath = "catalog.yaml"
	assert.NoError(t, cfg.Validate())
}
