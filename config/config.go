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
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/cardinalhq/keytoname/internal/lookup"
	"github.com/cardinalhq/keytoname/internal/protocolcache"
)

const (
	// ScopeProcess shares one metadata cache between every pipeline in the process.
	ScopeProcess = "process"
	// ScopePipeline gives each pipeline its own metadata cache.
	ScopePipeline = "pipeline"

	// SourceCatalog reads protocols from a YAML catalog file.
	SourceCatalog = "catalog"
	// SourcePostgres reads protocols from PostgreSQL.
	SourcePostgres = "postgres"
)

// Config aggregates configuration for the application.
type Config struct {
	Columns     lookup.Columns `mapstructure:"columns"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Source      SourceConfig   `mapstructure:"source"`
	Placeholder string         `mapstructure:"placeholder"`
	Concurrency int            `mapstructure:"concurrency"`
}

type CacheConfig struct {
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	Scope           string        `mapstructure:"scope"`
	CoalesceFetches bool          `mapstructure:"coalesce_fetches"`
}

type SourceConfig struct {
	Kind         string        `mapstructure:"kind"`
	CatalogPath  string        `mapstructure:"catalog_path"`
	DatabaseURL  string        `mapstructure:"database_url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Columns: lookup.DefaultColumns(),
		Cache: CacheConfig{
			IdleTimeout:   protocolcache.DefaultIdleTimeout,
			SweepInterval: protocolcache.DefaultSweepInterval,
			Scope:         ScopeProcess,
		},
		Source: SourceConfig{
			Kind:         SourceCatalog,
			FetchTimeout: 10 * time.Second,
		},
		Placeholder: lookup.DefaultPlaceholder,
	}
}

// Load reads configuration from an optional config.yaml in the working
// directory and from environment variables. Environment variables use the
// prefix "KEYTONAME" and the dot character in keys is replaced by an
// underscore. For example, "cache.idle_timeout" becomes
// "KEYTONAME_CACHE_IDLE_TIMEOUT".
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFile is Load with an explicit config file, which must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("KEYTONAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := Default()
	bindEnvs(v, cfg)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.Cache.Scope = strings.ToLower(strings.TrimSpace(cfg.Cache.Scope))
	cfg.Source.Kind = strings.ToLower(strings.TrimSpace(cfg.Source.Kind))
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(slices.Clone(parts), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if strings.TrimSpace(c.Columns.ParameterKey) == "" {
		errs = multierror.Append(errs, fmt.Errorf("columns.parameter_key is required"))
	}
	if c.Columns.ParameterName != "" && c.Columns.ParameterName == c.Columns.ParameterKey {
		errs = multierror.Append(errs, fmt.Errorf("columns.parameter_name must differ from columns.parameter_key"))
	}
	if (c.Columns.ProtocolName == "") != (c.Columns.ProtocolVersion == "") {
		errs = multierror.Append(errs, fmt.Errorf("columns.protocol_name and columns.protocol_version must be set together"))
	}

	if c.Cache.IdleTimeout <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("cache.idle_timeout must be positive, got %s", c.Cache.IdleTimeout))
	}
	if c.Cache.SweepInterval <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("cache.sweep_interval must be positive, got %s", c.Cache.SweepInterval))
	}
	switch c.Cache.Scope {
	case ScopeProcess, ScopePipeline:
	default:
		errs = multierror.Append(errs, fmt.Errorf("cache.scope must be %q or %q, got %q", ScopeProcess, ScopePipeline, c.Cache.Scope))
	}

	switch c.Source.Kind {
	case SourceCatalog:
		if c.Source.CatalogPath == "" {
			errs = multierror.Append(errs, fmt.Errorf("source.catalog_path is required for the catalog source"))
		}
	case SourcePostgres:
	default:
		errs = multierror.Append(errs, fmt.Errorf("source.kind must be %q or %q, got %q", SourceCatalog, SourcePostgres, c.Source.Kind))
	}
	if c.Source.FetchTimeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("source.fetch_timeout must not be negative"))
	}
	if c.Concurrency < 0 {
		errs = multierror.Append(errs, fmt.Errorf("concurrency must not be negative"))
	}

	return errs.ErrorOrNil()
}

// CacheOptions converts the cache section into protocolcache options.
func (c *Config) CacheOptions() []protocolcache.Option {
	return []protocolcache.Option{
		protocolcache.WithIdleTimeout(c.Cache.IdleTimeout),
		protocolcache.WithSweepInterval(c.Cache.SweepInterval),
		protocolcache.WithCoalescedFetches(c.Cache.CoalesceFetches),
	}
}

// LookupOptions converts the configuration into lookup pipeline options.
func (c *Config) LookupOptions() lookup.Options {
	return lookup.Options{
		Columns:      c.Columns,
		Placeholder:  c.Placeholder,
		FetchTimeout: c.Source.FetchTimeout,
		Concurrency:  c.Concurrency,
	}
}
