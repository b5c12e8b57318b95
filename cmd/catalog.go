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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/keytoname/internal/protocol/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Protocol catalog utilities",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check that protocol catalog files are well formed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed int
		for _, path := range args {
			c, err := catalog.Load(path)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d protocols, %d elements)\n", path, c.Protocols(), c.Elements())
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d catalogs failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
