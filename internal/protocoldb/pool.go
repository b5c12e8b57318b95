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

package protocoldb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgx-contrib/pgxotel"
)

// ErrDatabaseNotConfigured is returned when neither a URL nor host and
// database name are available.
var ErrDatabaseNotConfigured = errors.New("protocol database connection configuration is unavailable")

// NewConnectionPool creates a pgx v5 pool with OpenTelemetry query tracing.
func NewConnectionPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	cfg.ConnConfig.Tracer = &pgxotel.QueryTracer{
		Name: "protocoldb",
	}

	return pgxpool.NewWithConfig(ctx, cfg)
}

// DatabaseURLFromEnv builds a connection URL from prefix_URL, or from
// prefix_HOST, prefix_PORT, prefix_DBNAME, prefix_USER, prefix_PASSWORD and
// prefix_SSLMODE.
func DatabaseURLFromEnv(prefix string) (string, error) {
	return databaseURL(prefix, os.Getenv)
}

func databaseURL(prefix string, getenv func(string) string) (string, error) {
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	if urlStr := getenv(prefix + "URL"); urlStr != "" {
		return urlStr, nil
	}

	host := getenv(prefix + "HOST")
	dbname := getenv(prefix + "DBNAME")
	if host == "" && dbname == "" {
		return "", ErrDatabaseNotConfigured
	}

	var missing []string
	if host == "" {
		missing = append(missing, prefix+"HOST")
	}
	if dbname == "" {
		missing = append(missing, prefix+"DBNAME")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	port := getenv(prefix + "PORT")
	if port == "" {
		port = "5432"
	}

	u := &url.URL{
		Scheme: "postgresql",
		Host:   host + ":" + port,
		Path:   dbname,
	}
	if user := getenv(prefix + "USER"); user != "" {
		if pass := getenv(prefix + "PASSWORD"); pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}

	q := u.Query()
	if sslmode := getenv(prefix + "SSLMODE"); sslmode != "" {
		q.Set("sslmode", sslmode)
	}
	q.Set("application_name", "keytoname")
	u.RawQuery = q.Encode()

	return u.String(), nil
}
