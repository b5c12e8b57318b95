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
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/keytoname/config"
	"github.com/cardinalhq/keytoname/internal/logctx"
	"github.com/cardinalhq/keytoname/internal/lookup"
	"github.com/cardinalhq/keytoname/internal/protocol"
	"github.com/cardinalhq/keytoname/pipeline"
)

type enrichFlags struct {
	input          string
	output         string
	catalogPath    string
	keyColumn      string
	protocolColumn string
	versionColumn  string
	outputColumn   string
	concurrency    int
}

var enrichOpts enrichFlags

func init() {
	f := enrichCmd.Flags()
	f.StringVarP(&enrichOpts.input, "input", "i", "-", "JSON-lines file to read rows from (- for stdin)")
	f.StringVarP(&enrichOpts.output, "output", "o", "-", "JSON-lines file to write rows to (- for stdout)")
	f.StringVar(&enrichOpts.catalogPath, "catalog", "", "Protocol catalog file; selects the catalog source")
	f.StringVar(&enrichOpts.keyColumn, "key-column", "", "Column holding the parameter key")
	f.StringVar(&enrichOpts.protocolColumn, "protocol-column", "", "Column holding the protocol name")
	f.StringVar(&enrichOpts.versionColumn, "version-column", "", "Column holding the protocol version")
	f.StringVar(&enrichOpts.outputColumn, "output-column", "", "Column to write the parameter name to")
	f.IntVar(&enrichOpts.concurrency, "concurrency", 0, "Rows resolved in parallel (default GOMAXPROCS)")

	rootCmd.AddCommand(enrichCmd)
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Add parameter names to JSON-lines rows",
	Long:  "Read rows as JSON lines, resolve each row's parameter key to a parameter name, and write the rows back out with the name column added.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, shutdown, err := setupTelemetry("keytoname-enrich")
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(); err != nil {
				slog.Error("Error during telemetry shutdown", slog.Any("error", err))
			}
		}()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyEnrichFlags(cmd, cfg, enrichOpts)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx = logctx.WithLogger(ctx, slog.Default().With(slog.String("runID", ulid.Make().String())))

		conn, closeConn, err := openConnection(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeConn()

		in, closeIn, err := openInput(enrichOpts.input)
		if err != nil {
			return err
		}
		defer closeIn()

		out, closeOut, err := openOutput(enrichOpts.output)
		if err != nil {
			return err
		}

		_, err = runEnrich(ctx, cfg, conn, in, out)
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		return err
	},
}

func applyEnrichFlags(cmd *cobra.Command, cfg *config.Config, opts enrichFlags) {
	flags := cmd.Flags()
	if flags.Changed("catalog") {
		cfg.Source.Kind = config.SourceCatalog
		cfg.Source.CatalogPath = opts.catalogPath
	}
	if flags.Changed("key-column") {
		cfg.Columns.ParameterKey = opts.keyColumn
	}
	if flags.Changed("protocol-column") {
		cfg.Columns.ProtocolName = opts.protocolColumn
	}
	if flags.Changed("version-column") {
		cfg.Columns.ProtocolVersion = opts.versionColumn
	}
	if flags.Changed("output-column") {
		cfg.Columns.ParameterName = opts.outputColumn
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
}

// runEnrich reads every row from in, resolves names and writes the rows to out.
func runEnrich(ctx context.Context, cfg *config.Config, conn protocol.Connection, in io.Reader, out io.Writer) (lookup.Summary, error) {
	ll := logctx.FromContext(ctx)

	rows, err := pipeline.ReadJSONLines(in)
	if err != nil {
		return lookup.Summary{}, err
	}

	cache, release := newMetadataCache(cfg)
	defer release()
	stopSweeper := cache.Start(ctx)
	defer stopSweeper()

	p, err := lookup.New(conn, cache, cfg.LookupOptions())
	if err != nil {
		return lookup.Summary{}, err
	}

	start := time.Now()
	summary, err := p.ProcessRows(ctx, rows)
	if err != nil {
		return summary, err
	}

	if err := pipeline.WriteJSONLines(out, rows); err != nil {
		return summary, fmt.Errorf("failed to write rows: %w", err)
	}

	ll.Info("Enrichment complete",
		slog.Int("rows", summary.Rows),
		slog.Int("resolved", summary.Resolved()),
		slog.Int("fallbacks", summary.Fallbacks()),
		slog.Int("failedSources", len(summary.FailedKeys)),
		slog.Int("cachedProtocols", cache.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return summary, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}
