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

// Package lookup resolves parameter keys in rows to display names using
// cached protocol metadata.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/cardinalhq/keytoname/internal/paramkey"
	"github.com/cardinalhq/keytoname/internal/protocol"
	"github.com/cardinalhq/keytoname/internal/protocolcache"
	"github.com/cardinalhq/keytoname/pipeline/wkk"
)

// DefaultPlaceholder is written when a key parses but no name can be found.
const DefaultPlaceholder = "Some parameter name"

// Columns names the row columns the pipeline reads and writes.
// ProtocolName and ProtocolVersion are optional; the protocol strategy is
// only used when both are set.
type Columns struct {
	ParameterKey    string `mapstructure:"parameter_key"`
	ProtocolName    string `mapstructure:"protocol_name"`
	ProtocolVersion string `mapstructure:"protocol_version"`
	ParameterName   string `mapstructure:"parameter_name"`
}

// DefaultColumns returns the conventional column names without protocol columns.
func DefaultColumns() Columns {
	return Columns{
		ParameterKey:  wkk.RowKeyValue(wkk.RowKeyParameterKey),
		ParameterName: wkk.RowKeyValue(wkk.RowKeyParameterName),
	}
}

// Options tunes a Pipeline. Zero values select defaults.
type Options struct {
	Columns      Columns
	Placeholder  string
	FetchTimeout time.Duration
	Concurrency  int
}

type bindings struct {
	key         wkk.RowKey
	name        wkk.RowKey
	version     wkk.RowKey
	output      wkk.RowKey
	hasProtocol bool
}

// Pipeline is safe for concurrent use; many pipelines may share one cache.
type Pipeline struct {
	conn         protocol.Connection
	cache        *protocolcache.MetadataCache
	cols         bindings
	placeholder  string
	fetchTimeout time.Duration
	concurrency  int
}

// New builds a pipeline over conn and cache. The pipeline never closes conn.
func New(conn protocol.Connection, cache *protocolcache.MetadataCache, opts Options) (*Pipeline, error) {
	if conn == nil {
		return nil, errors.New("lookup: connection is required")
	}
	if cache == nil {
		return nil, errors.New("lookup: cache is required")
	}

	cols := opts.Columns
	if cols.ParameterKey == "" {
		return nil, errors.New("lookup: parameter key column is required")
	}
	if cols.ParameterName == "" {
		cols.ParameterName = wkk.RowKeyValue(wkk.RowKeyParameterName)
	}

	p := &Pipeline{
		conn:  conn,
		cache: cache,
		cols: bindings{
			key:    wkk.NewRowKey(cols.ParameterKey),
			output: wkk.NewRowKey(cols.ParameterName),
		},
		placeholder:  opts.Placeholder,
		fetchTimeout: opts.FetchTimeout,
		concurrency:  opts.Concurrency,
	}
	if cols.ProtocolName != "" && cols.ProtocolVersion != "" {
		p.cols.name = wkk.NewRowKey(cols.ProtocolName)
		p.cols.version = wkk.NewRowKey(cols.ProtocolVersion)
		p.cols.hasProtocol = true
	}
	if p.placeholder == "" {
		p.placeholder = DefaultPlaceholder
	}
	if p.concurrency <= 0 {
		p.concurrency = runtime.GOMAXPROCS(0)
	}
	return p, nil
}

// Resolve maps one parameter key to a display name. It never fails: every
// problem is reported through Result.Outcome with Result.Name set to the
// fallback value. protocolName and protocolVersion select the protocol
// strategy only when both are non-empty.
func (p *Pipeline) Resolve(ctx context.Context, key, protocolName, protocolVersion string) Result {
	id, err := paramkey.Parse(key)
	if err != nil {
		name := key
		if strings.TrimSpace(key) == "" {
			name = p.placeholder
		}
		return Result{Name: name, Outcome: OutcomeMalformedKey, Err: err}
	}

	res := Result{}
	var fetch protocolcache.FetchFunc[protocol.Metadata]
	if protocolName != "" && protocolVersion != "" {
		res.Strategy = StrategyByProtocol
		res.CacheKey = protocol.CacheKey(protocolName, protocolVersion)
		fetch = p.fetchByProtocol(protocolName, protocolVersion)
	} else {
		res.Strategy = StrategyByElement
		res.CacheKey = id.ElementKey()
		fetch = p.fetchByElement(id.DataMinerID, id.ElementID)
	}

	md, err := p.cache.GetOrFetch(ctx, res.CacheKey, fetch)
	switch {
	case err != nil:
		res.Name = p.placeholder
		res.Outcome = OutcomeFetchFailed
		res.Err = fmt.Errorf("%w for %s: %w", ErrMetadataFetch, res.CacheKey, err)
	case md == nil:
		res.Name = key
		res.Outcome = OutcomeNoMetadata
	default:
		name, err := md.ParameterName(id.ParameterID)
		if err != nil {
			res.Name = p.placeholder
			res.Outcome = OutcomeUnknownParameter
			res.Err = err
		} else {
			res.Name = name
			res.Outcome = OutcomeResolved
		}
	}
	return res
}

func (p *Pipeline) fetchByProtocol(name, version string) protocolcache.FetchFunc[protocol.Metadata] {
	return func(ctx context.Context) (protocol.Metadata, error) {
		ctx, cancel := p.fetchContext(ctx)
		defer cancel()
		return p.conn.GetProtocol(ctx, name, version)
	}
}

func (p *Pipeline) fetchByElement(dataminerID, elementID int) protocolcache.FetchFunc[protocol.Metadata] {
	return func(ctx context.Context) (protocol.Metadata, error) {
		ctx, cancel := p.fetchContext(ctx)
		defer cancel()
		return p.conn.GetElementProtocol(ctx, dataminerID, elementID)
	}
}

func (p *Pipeline) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.fetchTimeout > 0 {
		return context.WithTimeout(ctx, p.fetchTimeout)
	}
	return context.WithCancel(ctx)
}

// OutputColumn returns the name of the column HandleRow writes.
func (p *Pipeline) OutputColumn() string {
	return wkk.RowKeyValue(p.cols.output)
}

// Placeholder returns the fallback name for failed lookups.
func (p *Pipeline) Placeholder() string {
	return p.placeholder
}
