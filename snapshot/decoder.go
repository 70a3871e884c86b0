// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import (
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/adxquery/adxquery/internal/logging"
)

// Decoder owns a decoded snapshot: the parsed header, schema, and object
// offset index live as long as the decoder. Entries are ephemeral views
// constructed on iteration; see Entry.
//
// A Decoder is not safe for concurrent use from multiple goroutines without
// external synchronization, because reads are position-relative over a
// shared byte source. Memory maps over the same file are safe to open
// from multiple Decoders concurrently.
type Decoder struct {
	src *source

	header  Header
	schema  schema
	offsets []uint32

	// SchemaMismatch is set when the header's attribute count disagreed
	// with the schema table's own property count. The schema table's count
	// always wins; this field only records that the disagreement happened.
	SchemaMismatch bool

	mapping mmap.MMap
	file    *os.File
	log     *logging.Helper
}

type decoderOptions struct {
	logger  *logging.Helper
	useMmap bool
}

// Option configures Open/OpenBytes.
type Option func(*decoderOptions)

// WithLogger attaches a logging helper used to report non-fatal warnings
// (schema mismatches, corrupt entries skipped mid-scan).
func WithLogger(log *logging.Helper) Option {
	return func(o *decoderOptions) { o.logger = log }
}

// WithoutMmap disables the memory-map fast path, forcing a single buffered
// read of the whole file. Mostly useful for special files mmap can't map.
func WithoutMmap() Option {
	return func(o *decoderOptions) { o.useMmap = false }
}

func newOptions(opts []Option) *decoderOptions {
	o := &decoderOptions{useMmap: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return o
}

// Open opens a snapshot file for read-only access. The file is memory-mapped
// by default; WithoutMmap forces a buffered read instead. Open fails with
// ErrNotFound if path does not point to a regular file, ErrTruncatedFile if
// a fixed-size structure extends past the file end, and ErrMalformedHeader
// if the mapping-offset halves produce an offset outside the file.
func Open(path string, opts ...Option) (*Decoder, error) {
	o := newOptions(opts)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, ErrNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}

	dec := &Decoder{file: f, log: o.logger}

	if o.useMmap {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			// Fall back to a buffered read; the read surface is identical
			// either way.
			o.logger.Warnf("mmap failed for %s, falling back to buffered read: %v", path, err)
			data, rerr := readAllAt(f)
			if rerr != nil {
				f.Close()
				return nil, fmt.Errorf("snapshot: read %s: %w", path, rerr)
			}
			dec.src = newSource(data)
		} else {
			dec.mapping = m
			dec.src = newSource(m)
		}
	} else {
		data, err := readAllAt(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
		}
		dec.src = newSource(data)
	}

	if err := dec.parse(); err != nil {
		dec.Close()
		return nil, err
	}
	return dec, nil
}

// OpenBytes builds a decoder directly over an in-memory buffer, used by the
// fuzz harness and by tests that don't want a temp file.
func OpenBytes(data []byte, opts ...Option) (*Decoder, error) {
	o := newOptions(opts)
	dec := &Decoder{src: newSource(data), log: o.logger}
	if err := dec.parse(); err != nil {
		return nil, err
	}
	return dec, nil
}

func readAllAt(f *os.File) ([]byte, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

func (d *Decoder) parse() error {
	h, err := parseHeader(d.src)
	if err != nil {
		return err
	}
	d.header = h

	sc, tableCount, err := parseSchema(d.src, h.mappingOffset)
	if err != nil {
		return err
	}
	if tableCount != h.AttributeCount {
		d.SchemaMismatch = true
		d.log.Warnf("schema property count %d disagrees with header attribute count %d; using schema table value", tableCount, h.AttributeCount)
	}
	d.schema = sc

	d.offsets = parseObjectOffsets(d.src, h.ObjectCount)
	return nil
}

// Close releases the memory map (if any) and the underlying file handle.
// After Close, any outstanding Entry obtained from this Decoder is invalid
// and must not be dereferenced.
func (d *Decoder) Close() error {
	if d.mapping != nil {
		_ = d.mapping.Unmap()
		d.mapping = nil
	}
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}

// Header returns the parsed snapshot header.
func (d *Decoder) Header() Header {
	return d.header
}

// Properties returns the ordered schema table.
func (d *Decoder) Properties() []PropertyDefinition {
	return d.schema.properties
}

// GetProperty looks up a property by name, case-insensitively. An empty
// name always returns (nil, false).
func (d *Decoder) GetProperty(name string) (*PropertyDefinition, bool) {
	if name == "" {
		return nil, false
	}
	idx, ok := d.schema.byName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return &d.schema.properties[idx], true
}

// propertyByIndex resolves a property by its schema-table index, used when
// walking an entry's attribute-mapping table in storage order.
func (d *Decoder) propertyByIndex(idx int) (*PropertyDefinition, bool) {
	if idx < 0 || idx >= len(d.schema.properties) {
		return nil, false
	}
	return &d.schema.properties[idx], true
}

// ObjectCount returns the number of object offsets actually indexed, which
// may be less than the header's object count if the file was truncated.
func (d *Decoder) ObjectCount() int {
	return len(d.offsets)
}

// Entries returns a lazy sequence over every object record in declaration
// order. Decoding errors on an individual record are isolated: they are
// logged and the record is skipped rather than aborting the whole scan.
func (d *Decoder) Entries() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, offset := range d.offsets {
			entry, err := newEntry(d, offset)
			if err != nil {
				d.log.Warnf("skipping corrupt object record at offset %d: %v", offset, err)
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}
