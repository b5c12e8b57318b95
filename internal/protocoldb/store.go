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

// Package protocoldb implements protocol.Connection over PostgreSQL.
//
// Expected tables:
//
//	CREATE TABLE protocol_parameters (
//	  protocol_name    TEXT    NOT NULL,
//	  protocol_version TEXT    NOT NULL,
//	  parameter_id     INTEGER NOT NULL,
//	  name             TEXT    NOT NULL,
//	  PRIMARY KEY (protocol_name, protocol_version, parameter_id)
//	);
//
//	CREATE TABLE element_protocols (
//	  dataminer_id     INTEGER NOT NULL,
//	  element_id       INTEGER NOT NULL,
//	  protocol_name    TEXT    NOT NULL,
//	  protocol_version TEXT    NOT NULL,
//	  PRIMARY KEY (dataminer_id, element_id)
//	);
package protocoldb

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/cardinalhq/keytoname/internal/protocol"
)

// DBTX is the subset of *pgxpool.Pool the store uses.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const listProtocolParameters = `-- name: ListProtocolParameters
SELECT parameter_id, name
FROM protocol_parameters
WHERE protocol_name = $1 AND protocol_version = $2
`

const getElementProtocol = `-- name: GetElementProtocol
SELECT protocol_name, protocol_version
FROM element_protocols
WHERE dataminer_id = $1 AND element_id = $2
`

// Store reads protocol definitions. It never closes db.
type Store struct {
	db DBTX
}

var _ protocol.Connection = (*Store)(nil)

func New(db DBTX) *Store {
	return &Store{db: db}
}

// GetProtocol loads every parameter of the protocol. A protocol with no
// parameter rows is reported as not found.
func (s *Store) GetProtocol(ctx context.Context, name, version string) (protocol.Metadata, error) {
	rows, err := s.db.Query(ctx, listProtocolParameters, name, version)
	if err != nil {
		return nil, fmt.Errorf("query protocol %s: %w", protocol.CacheKey(name, version), err)
	}
	defer rows.Close()

	params := make(map[int]string)
	for rows.Next() {
		var (
			id        int32
			paramName string
		)
		if err := rows.Scan(&id, &paramName); err != nil {
			return nil, fmt.Errorf("scan protocol %s: %w", protocol.CacheKey(name, version), err)
		}
		params[int(id)] = paramName
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read protocol %s: %w", protocol.CacheKey(name, version), err)
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: %s", protocol.ErrProtocolNotFound, protocol.CacheKey(name, version))
	}

	// params is not shared, so skip the copy NewDefinition would make.
	return &protocol.Definition{Name: name, Version: version, Parameters: params}, nil
}

// GetElementProtocol finds the protocol assigned to the element and loads it.
func (s *Store) GetElementProtocol(ctx context.Context, dataminerID, elementID int) (protocol.Metadata, error) {
	// Ids are int4 columns; a larger id cannot match and must not wrap.
	if !fitsInt4(dataminerID) || !fitsInt4(elementID) {
		return nil, fmt.Errorf("%w: %d/%d", protocol.ErrElementNotFound, dataminerID, elementID)
	}

	var name, version string
	err := s.db.QueryRow(ctx, getElementProtocol, int32(dataminerID), int32(elementID)).Scan(&name, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d/%d", protocol.ErrElementNotFound, dataminerID, elementID)
	}
	if err != nil {
		return nil, fmt.Errorf("query element %d/%d: %w", dataminerID, elementID, err)
	}
	return s.GetProtocol(ctx, name, version)
}

func fitsInt4(v int) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}
