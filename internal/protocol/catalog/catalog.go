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

// Package catalog implements protocol.Connection over a YAML document that
// lists protocol definitions and the protocol each element runs.
//
//	protocols:
//	  - name: MyProto
//	    version: "1.0"
//	    parameters:
//	      200: Input Level
//	elements:
//	  - dataminer_id: 1
//	    element_id: 5
//	    protocol: MyProto
//	    version: "1.0"
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/keytoname/internal/paramkey"
	"github.com/cardinalhq/keytoname/internal/protocol"
)

type protocolDoc struct {
	Name       string         `yaml:"name"`
	Version    string         `yaml:"version"`
	Parameters map[int]string `yaml:"parameters"`
}

type elementDoc struct {
	DataMinerID int    `yaml:"dataminer_id"`
	ElementID   int    `yaml:"element_id"`
	Protocol    string `yaml:"protocol"`
	Version     string `yaml:"version"`
}

type document struct {
	Protocols []protocolDoc `yaml:"protocols"`
	Elements  []elementDoc  `yaml:"elements"`
}

// Catalog is an in-memory protocol source. It is read-only after Parse.
type Catalog struct {
	protocols map[string]*protocol.Definition
	elements  map[string]string
}

var _ protocol.Connection = (*Catalog)(nil)

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document. Unknown fields are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}

	c := &Catalog{
		protocols: make(map[string]*protocol.Definition, len(doc.Protocols)),
		elements:  make(map[string]string, len(doc.Elements)),
	}
	for _, p := range doc.Protocols {
		def := protocol.NewDefinition(p.Name, p.Version, p.Parameters)
		c.protocols[def.Key()] = def
	}
	for _, e := range doc.Elements {
		c.elements[elementKey(e.DataMinerID, e.ElementID)] = protocol.CacheKey(e.Protocol, e.Version)
	}
	return c, nil
}

func (d *document) validate() error {
	var errs *multierror.Error

	seenProtocols := mapset.NewThreadUnsafeSet[string]()
	for i, p := range d.Protocols {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Version) == "" {
			errs = multierror.Append(errs, fmt.Errorf("protocols[%d]: name and version are required", i))
			continue
		}
		key := protocol.CacheKey(p.Name, p.Version)
		if !seenProtocols.Add(key) {
			errs = multierror.Append(errs, fmt.Errorf("protocols[%d]: duplicate protocol %s", i, key))
		}
		for id, name := range p.Parameters {
			if id < 0 {
				errs = multierror.Append(errs, fmt.Errorf("protocols[%d]: negative parameter id %d", i, id))
			}
			if strings.TrimSpace(name) == "" {
				errs = multierror.Append(errs, fmt.Errorf("protocols[%d]: parameter %d has no name", i, id))
			}
		}
	}

	seenElements := mapset.NewThreadUnsafeSet[string]()
	for i, e := range d.Elements {
		if e.DataMinerID < 0 || e.ElementID < 0 {
			errs = multierror.Append(errs, fmt.Errorf("elements[%d]: ids must not be negative", i))
			continue
		}
		key := elementKey(e.DataMinerID, e.ElementID)
		if !seenElements.Add(key) {
			errs = multierror.Append(errs, fmt.Errorf("elements[%d]: duplicate element %s", i, key))
		}
		if !seenProtocols.Contains(protocol.CacheKey(e.Protocol, e.Version)) {
			errs = multierror.Append(errs, fmt.Errorf("elements[%d]: element %s references unknown protocol %s",
				i, key, protocol.CacheKey(e.Protocol, e.Version)))
		}
	}

	return errs.ErrorOrNil()
}

func elementKey(dataminerID, elementID int) string {
	return paramkey.Identity{DataMinerID: dataminerID, ElementID: elementID}.ElementKey()
}

// GetProtocol returns the protocol with the given name and version.
func (c *Catalog) GetProtocol(ctx context.Context, name, version string) (protocol.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	def, ok := c.protocols[protocol.CacheKey(name, version)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", protocol.ErrProtocolNotFound, protocol.CacheKey(name, version))
	}
	return def, nil
}

// GetElementProtocol returns the protocol the element runs.
func (c *Catalog) GetElementProtocol(ctx context.Context, dataminerID, elementID int) (protocol.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := elementKey(dataminerID, elementID)
	protoKey, ok := c.elements[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", protocol.ErrElementNotFound, key)
	}
	// validate guarantees the referenced protocol exists.
	return c.protocols[protoKey], nil
}

// Protocols returns the number of protocol definitions.
func (c *Catalog) Protocols() int {
	return len(c.protocols)
}

// Elements returns the number of element assignments.
func (c *Catalog) Elements() int {
	return len(c.elements)
}
