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

	"github.com/spf13/cobra"

	"github.com/cardinalhq/keytoname/config"
	"github.com/cardinalhq/keytoname/internal/lookup"
	"github.com/cardinalhq/keytoname/internal/protocol"
)

var (
	lookupProtocol string
	lookupVersion  string
	lookupCatalog  string
)

func init() {
	lookupCmd.Flags().StringVar(&lookupProtocol, "protocol", "", "Protocol name; with --version looks up by protocol instead of by element")
	lookupCmd.Flags().StringVar(&lookupVersion, "version", "", "Protocol version")
	lookupCmd.Flags().StringVar(&lookupCatalog, "catalog", "", "Protocol catalog file; selects the catalog source")

	rootCmd.AddCommand(lookupCmd)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup KEY...",
	Short: "Resolve parameter keys and print their names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, shutdown, err := setupTelemetry("keytoname-lookup")
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
		if cmd.Flags().Changed("catalog") {
			cfg.Source.Kind = config.SourceCatalog
			cfg.Source.CatalogPath = lookupCatalog
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		conn, closeConn, err := openConnection(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeConn()

		return runLookup(ctx, cfg, conn, args, lookupProtocol, lookupVersion, cmd.OutOrStdout())
	},
}

// runLookup prints one "key<TAB>name<TAB>outcome" line per key.
func runLookup(ctx context.Context, cfg *config.Config, conn protocol.Connection, keys []string, name, version string, w io.Writer) error {
	cache, release := newMetadataCache(cfg)
	defer release()

	p, err := lookup.New(conn, cache, cfg.LookupOptions())
	if err != nil {
		return err
	}

	for _, key := range keys {
		res := p.Resolve(ctx, key, name, version)
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", key, res.Name, res.Outcome); err != nil {
			return err
		}
		if res.Err != nil {
			slog.Debug("Lookup fell back", slog.String("key", key), slog.Any("error", res.Err))
		}
	}
	return nil
}
