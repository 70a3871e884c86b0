// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

// attrPair is one (property index, relative offset) pair from an object
// record's attribute-mapping table. The offset is relative to the
// enclosing object's start offset, not the file start.
type attrPair struct {
	propertyIndex int
	relOffset     int32
}

// Entry is a lazy view over one object record. It holds a non-owning
// reference back to its Decoder for schema and byte access, and must never
// be used after that Decoder is closed.
type Entry struct {
	dec *Decoder

	// Offset is the absolute byte offset of this object's record.
	Offset uint32

	// Size is the record size in bytes, read from the first u32 of the
	// record.
	Size uint32

	mapping []attrPair

	cache    map[int]AttributeValueList
	rawCache map[int]AttributeValueList
}

// newEntry constructs an Entry by reading its header: a u32 record size,
// a u32 attribute-mapping pair count, then that many (u32 property-index,
// i32 relative-offset) pairs.
func newEntry(dec *Decoder, offset uint32) (*Entry, error) {
	size, err := dec.src.ReadUint32(offset)
	if err != nil {
		return nil, err
	}
	pairCount, err := dec.src.ReadUint32(offset + 4)
	if err != nil {
		return nil, err
	}

	mapping := make([]attrPair, 0, pairCount)
	pos := offset + 8
	for i := uint32(0); i < pairCount; i++ {
		propIdx, err := dec.src.ReadUint32(pos)
		if err != nil {
			return nil, err
		}
		relOffset, err := dec.src.ReadInt32(pos + 4)
		if err != nil {
			return nil, err
		}
		mapping = append(mapping, attrPair{propertyIndex: int(propIdx), relOffset: relOffset})
		pos += 8
	}

	return &Entry{
		dec:      dec,
		Offset:   offset,
		Size:     size,
		mapping:  mapping,
		cache:    make(map[int]AttributeValueList),
		rawCache: make(map[int]AttributeValueList),
	}, nil
}

// findOffset returns the relative attribute offset stored for the given
// property index, if the entry carries that attribute.
func (e *Entry) findOffset(propertyIndex int) (int32, bool) {
	for _, pair := range e.mapping {
		if pair.propertyIndex == propertyIndex {
			return pair.relOffset, true
		}
	}
	return 0, false
}

// Values returns the decoded (human-readable) values for the named
// attribute. If the attribute is not in the schema or not present on this
// entry, it returns ErrAttributeAbsent; callers in the evaluator treat this
// as "no match", never as a hard error.
func (e *Entry) Values(name string) (AttributeValueList, error) {
	return e.getValues(name, false)
}

// RawValues returns the raw byte-oriented representation of the named
// attribute's values (octet strings and security descriptors stay []byte
// rather than being rendered as GUID/SID/hex strings).
func (e *Entry) RawValues(name string) (AttributeValueList, error) {
	return e.getValues(name, true)
}

func (e *Entry) getValues(name string, raw bool) (AttributeValueList, error) {
	prop, ok := e.dec.GetProperty(name)
	if !ok {
		return nil, ErrAttributeAbsent
	}

	cache := e.cache
	if raw {
		cache = e.rawCache
	}
	if cached, ok := cache[prop.Index]; ok {
		return cached, nil
	}

	relOffset, ok := e.findOffset(prop.Index)
	if !ok {
		return nil, ErrAttributeAbsent
	}

	values, err := decodeAttributeValues(e.dec.src, *prop, e.Offset, relOffset, raw)
	if err != nil {
		return nil, err
	}
	cache[prop.Index] = values
	return values, nil
}

// attrByStorageOrder iterates the entry's attribute-mapping table in
// storage order, resolving each pair to its PropertyDefinition.
func (e *Entry) attrByStorageOrder(yield func(prop *PropertyDefinition) bool) {
	for _, pair := range e.mapping {
		prop, ok := e.dec.propertyByIndex(pair.propertyIndex)
		if !ok {
			// Out-of-range property index: attribute absent, skip.
			continue
		}
		if !yield(prop) {
			return
		}
	}
}

// Attribute is one projected attribute: the property's on-disk name and
// its collapsed value.
type Attribute struct {
	Name  string
	Value any
}

// Project projects the entry's attributes as an ordered name/value list.
// If selection is non-empty, only those attributes are included, in the
// given order, and attributes not present on the entry are omitted;
// otherwise every attribute present is included in storage order. Empty
// value lists collapse to an empty slice, singletons to their scalar,
// multi-valued lists stay as-is.
func (e *Entry) Project(selection []string) []Attribute {
	var result []Attribute

	if len(selection) > 0 {
		for _, name := range selection {
			prop, ok := e.dec.GetProperty(name)
			if !ok {
				continue
			}
			values, err := e.Values(prop.Name)
			if err != nil {
				continue
			}
			result = append(result, Attribute{Name: prop.Name, Value: collapse(values)})
		}
		return result
	}

	e.attrByStorageOrder(func(prop *PropertyDefinition) bool {
		values, err := e.Values(prop.Name)
		if err != nil {
			return true
		}
		result = append(result, Attribute{Name: prop.Name, Value: collapse(values)})
		return true
	})
	return result
}

// collapse implements the projection collapse policy: empty -> [], one ->
// scalar, many -> slice.
func collapse(values AttributeValueList) any {
	switch len(values) {
	case 0:
		return []any{}
	case 1:
		return values[0]
	default:
		return []any(values)
	}
}
