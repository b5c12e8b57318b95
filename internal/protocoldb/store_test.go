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
	"math"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/keytoname/internal/protocol"
)

type paramRow struct {
	id   int32
	name string
}

// fakeRows is a minimal pgx.Rows over parameter rows.
type fakeRows struct {
	rows []paramRow
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	*dest[0].(*int32) = row.id
	*dest[1].(*string) = row.name
	return nil
}

type fakeRow struct {
	values []string
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		*d.(*string) = r.values[i]
	}
	return nil
}

type fakeDB struct {
	params   map[string][]paramRow
	elements map[string][2]string
	queryErr error
	queries  []string
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	key := fmt.Sprintf("%s/%s", args[0], args[1])
	return &fakeRows{rows: f.params[key]}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	key := fmt.Sprintf("%d/%d", args[0], args[1])
	v, ok := f.elements[key]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{values: v[:]}
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		params: map[string][]paramRow{
			"MyProto/1.0": {{200, "Input Level"}, {201, "Output Level"}},
		},
		elements: map[string][2]string{
			"1/5": {"MyProto", "1.0"},
			"1/6": {"Gone", "0.1"},
		},
	}
}

func TestStore_GetProtocol(t *testing.T) {
	db := newFakeDB()
	s := New(db)

	md, err := s.GetProtocol(context.Background(), "MyProto", "1.0")
	require.NoError(t, err)
	name, err := md.ParameterName(201)
	require.NoError(t, err)
	assert.Equal(t, "Output Level", name)
	require.Len(t, db.queries, 1)
	assert.True(t, strings.Contains(db.queries[0], "FROM protocol_parameters"))
}

func TestStore_GetProtocolNotFound(t *testing.T) {
	s := New(newFakeDB())
	_, err := s.GetProtocol(context.Background(), "Other", "1.0")
	assert.ErrorIs(t, err, protocol.ErrProtocolNotFound)
}

func TestStore_GetProtocolQueryError(t *testing.T) {
	db := newFakeDB()
	db.queryErr = errors.New("conn refused")
	s := New(db)
	_, err := s.GetProtocol(context.Background(), "MyProto", "1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn refused")
}

func TestStore_GetElementProtocol(t *testing.T) {
	db := newFakeDB()
	s := New(db)
	ctx := context.Background()

	md, err := s.GetElementProtocol(ctx, 1, 5)
	require.NoError(t, err)
	name, err := md.ParameterName(200)
	require.NoError(t, err)
	assert.Equal(t, "Input Level", name)
	assert.Len(t, db.queries, 2)

	_, err = s.GetElementProtocol(ctx, 9, 9)
	assert.ErrorIs(t, err, protocol.ErrElementNotFound)

	_, err = s.GetElementProtocol(ctx, 1, 6)
	assert.ErrorIs(t, err, protocol.ErrProtocolNotFound)
}

func TestStore_GetElementProtocolOutOfRangeID(t *testing.T) {
	db := newFakeDB()
	s := New(db)
	ctx := context.Background()

	// 4294967301 wraps to 5 as an int32, which would hit element 1/5.
	_, err := s.GetElementProtocol(ctx, 1, 4294967301)
	assert.ErrorIs(t, err, protocol.ErrElementNotFound)

	_, err = s.GetElementProtocol(ctx, math.MaxInt32+1, 5)
	assert.ErrorIs(t, err, protocol.ErrElementNotFound)
	assert.Empty(t, db.queries, "no query is issued for ids outside int4")
}

func TestDatabaseURL(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}

	u, err := databaseURL("PROTOCOLDB", env(map[string]string{"PROTOCOLDB_URL": "postgres://x/y"}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://x/y", u)

	u, err = databaseURL("PROTOCOLDB_", env(map[string]string{
		"PROTOCOLDB_HOST":     "db",
		"PROTOCOLDB_DBNAME":   "protocols",
		"PROTOCOLDB_USER":     "reader",
		"PROTOCOLDB_PASSWORD": "secret",
		"PROTOCOLDB_SSLMODE":  "disable",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgresql://reader:secret@db:5432/protocols?application_name=keytoname&sslmode=disable", u)

	_, err = databaseURL("PROTOCOLDB", env(nil))
	assert.ErrorIs(t, err, ErrDatabaseNotConfigured)

	_, err = databaseURL("PROTOCOLDB", env(map[string]string{"PROTOCOLDB_HOST": "db"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROTOCOLDB_DBNAME")
}
