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

package lookup

import (
	"context"
	"log"
	"log/slog"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/keytoname/internal/logctx"
	"github.com/cardinalhq/keytoname/pipeline"
)

var rowsCounter metric.Int64Counter

func init() {
	meter := otel.Meter("github.com/cardinalhq/keytoname/internal/lookup")

	var err error
	rowsCounter, err = meter.Int64Counter(
		"keytoname.lookup.rows",
		metric.WithDescription("Number of rows processed, by outcome"),
	)
	if err != nil {
		log.Fatalf("failed to create lookup.rows counter: %v", err)
	}
}

// HandleRow resolves the row's parameter key and writes the name to the
// output column. It always writes a value.
func (p *Pipeline) HandleRow(ctx context.Context, row pipeline.Row) Result {
	key, _ := row.Text(p.cols.key)

	var name, version string
	if p.cols.hasProtocol {
		name, _ = row.Text(p.cols.name)
		version, _ = row.Text(p.cols.version)
	}

	res := p.Resolve(ctx, key, name, version)
	row.SetString(p.cols.output, res.Name)

	rowsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", res.Outcome.String())))
	if res.Err != nil {
		logctx.FromContext(ctx).Debug("Parameter lookup fell back",
			slog.String("key", key),
			slog.String("outcome", res.Outcome.String()),
			slog.String("cacheKey", res.CacheKey),
			slog.Any("error", res.Err))
	}
	return res
}

// Summary describes a ProcessRows run.
type Summary struct {
	Rows     int
	Outcomes map[Outcome]int
	// FailedKeys lists, sorted, the distinct cache keys whose fetch failed.
	FailedKeys []string
}

// Resolved returns the number of rows whose name came from metadata.
func (s Summary) Resolved() int {
	return s.Outcomes[OutcomeResolved]
}

// Fallbacks returns the number of rows that received a substitute name.
func (s Summary) Fallbacks() int {
	return s.Rows - s.Resolved()
}

// ProcessRows runs HandleRow over rows with bounded concurrency. Row failures
// never stop the batch; the only error returned is ctx's, in which case rows
// not yet started are left untouched.
func (p *Pipeline) ProcessRows(ctx context.Context, rows []pipeline.Row) (Summary, error) {
	ll := logctx.FromContext(ctx)
	failed := mapset.NewSet[string]()

	var mu sync.Mutex
	summary := Summary{Outcomes: make(map[Outcome]int)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := p.HandleRow(gctx, row)
			if res.Outcome == OutcomeFetchFailed && failed.Add(res.CacheKey) {
				ll.Warn("Protocol metadata unavailable",
					slog.String("cacheKey", res.CacheKey),
					slog.String("strategy", res.Strategy.String()),
					slog.Any("error", res.Err))
			}

			mu.Lock()
			summary.Rows++
			summary.Outcomes[res.Outcome]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary.FailedKeys = failed.ToSlice()
	slices.Sort(summary.FailedKeys)
	return summary, ctx.Err()
}
