// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import "strings"

// ADSType identifies the storage type of a directory attribute, as defined
// by the ADSI ADS_ATTRIBUTE_DEF type enumeration.
type ADSType uint32

// ADSI type codes referenced by this decoder. Codes not listed here are
// treated as a length-prefixed opaque blob, same as NTSecurityDescriptor.
const (
	ADSTypeDNString             ADSType = 1
	ADSTypeCaseExactString      ADSType = 2
	ADSTypeCaseIgnoreString     ADSType = 3
	ADSTypePrintableString      ADSType = 4
	ADSTypeNumericString        ADSType = 5
	ADSTypeBoolean              ADSType = 6
	ADSTypeInteger              ADSType = 7
	ADSTypeOctetString          ADSType = 8
	ADSTypeUTCTime              ADSType = 9
	ADSTypeLargeInteger         ADSType = 10
	ADSTypeObjectClass          ADSType = 12
	ADSTypeNTSecurityDescriptor ADSType = 25
)

// isStringType reports whether t is one of the NUL-terminated,
// offset-table-indirected UTF-16LE string attribute types.
func (t ADSType) isStringType() bool {
	switch t {
	case ADSTypeDNString, ADSTypeCaseExactString, ADSTypeCaseIgnoreString,
		ADSTypePrintableString, ADSTypeNumericString, ADSTypeObjectClass:
		return true
	default:
		return false
	}
}

// GUID is a 128-bit identifier stored in little-endian byte order, as used
// for schema and attribute-security GUIDs.
type GUID [16]byte

// String renders the GUID in canonical 8-4-4-4-12 form.
func (g GUID) String() string {
	return formatGUIDBytes(g[:])
}

// PropertyDefinition describes one attribute known to the snapshot's
// schema table. Immutable after parse.
type PropertyDefinition struct {
	// Index is the property's position in the schema table; it is also the
	// key used by attribute tables inside objects.
	Index int

	// Name is the attribute's on-disk display name, in its original casing.
	Name string

	// ADSType is the storage type used to decode attribute payloads.
	ADSType ADSType

	// DistinguishedName is the DN of the schema element this property
	// corresponds to.
	DistinguishedName string

	// SchemaGUID is the attribute's schema GUID.
	SchemaGUID GUID

	// AttributeSecurityGUID is the attribute's security GUID.
	AttributeSecurityGUID GUID
}

// schema is the parsed property schema table plus a case-insensitive name
// index.
type schema struct {
	properties []PropertyDefinition
	byName     map[string]int // lower-cased name -> index
}

// parseSchema reads the property schema table starting at the header's
// mapping offset. If the table's own property count disagrees with the
// header's attribute count, the table's count wins; the caller is expected
// to log the disagreement as a non-fatal warning.
func parseSchema(s *source, mappingOffset uint64) (schema, uint32, error) {
	var sc schema

	count, err := s.ReadUint32(uint32(mappingOffset))
	if err != nil {
		return sc, 0, ErrTruncatedFile
	}

	sc.properties = make([]PropertyDefinition, 0, count)
	sc.byName = make(map[string]int, count)

	offset := uint32(mappingOffset) + 4
	for idx := uint32(0); idx < count; idx++ {
		prop, next, err := parsePropertyDefinition(s, offset, int(idx))
		if err != nil {
			return sc, count, err
		}
		sc.properties = append(sc.properties, prop)
		sc.byName[strings.ToLower(prop.Name)] = int(idx)
		offset = next
	}

	return sc, count, nil
}

func parsePropertyDefinition(s *source, offset uint32, index int) (PropertyDefinition, uint32, error) {
	var prop PropertyDefinition
	prop.Index = index

	nameLen, err := s.ReadUint32(offset)
	if err != nil {
		return prop, 0, ErrTruncatedFile
	}
	offset += 4

	nameBytes, err := s.ReadBytes(offset, nameLen)
	if err != nil {
		return prop, 0, ErrTruncatedFile
	}
	name, err := decodeUTF16LE(nameBytes)
	if err != nil {
		return prop, 0, err
	}
	prop.Name = name
	offset += nameLen

	// reserved
	offset += 4

	adsType, err := s.ReadUint32(offset)
	if err != nil {
		return prop, 0, ErrTruncatedFile
	}
	prop.ADSType = ADSType(adsType)
	offset += 4

	dnLen, err := s.ReadUint32(offset)
	if err != nil {
		return prop, 0, ErrTruncatedFile
	}
	offset += 4

	dnBytes, err := s.ReadBytes(offset, dnLen)
	if err != nil {
		return prop, 0, ErrTruncatedFile
	}
	dn, err := decodeUTF16LE(dnBytes)
	if err != nil {
		return prop, 0, err
	}
	prop.DistinguishedName = dn
	offset += dnLen

	schemaGUIDBytes, err := s.ReadBytes(offset, 16)
	if err != nil {
		return prop, 0, ErrTruncatedFile
	}
	copy(prop.SchemaGUID[:], schemaGUIDBytes)
	offset += 16

	attrGUIDBytes, err := s.ReadBytes(offset, 16)
	if err != nil {
		return prop, 0, ErrTruncatedFile
	}
	copy(prop.AttributeSecurityGUID[:], attrGUIDBytes)
	offset += 16

	// trailing 4-byte reserved blob.
	offset += 4

	return prop, offset, nil
}
