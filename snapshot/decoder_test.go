// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import (
	"testing"
	"time"
)

var aliceProps = []testProperty{
	{name: "cn", adsType: ADSTypeCaseIgnoreString, dn: "CN=Common-Name"},
	{name: "objectClass", adsType: ADSTypeObjectClass, dn: "CN=Object-Class"},
	{name: "distinguishedName", adsType: ADSTypeDNString, dn: "CN=Distinguished-Name"},
	{name: "userAccountControl", adsType: ADSTypeInteger, dn: "CN=User-Account-Control"},
	{name: "objectGUID", adsType: ADSTypeOctetString, dn: "CN=Object-Guid"},
	{name: "objectSid", adsType: ADSTypeOctetString, dn: "CN=Object-Sid"},
	{name: "whenCreated", adsType: ADSTypeUTCTime, dn: "CN=When-Created"},
	{name: "isDeleted", adsType: ADSTypeBoolean, dn: "CN=Is-Deleted"},
}

var aliceGUIDBytes = []byte{
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
}

// a well-formed SID: S-1-5-21-111-222-333
var aliceSIDBytes = func() []byte {
	b := []byte{1, 4, 0, 0, 0, 0, 0, 5}
	for _, sub := range []uint32{21, 111, 222, 333} {
		tmp := make([]byte, 4)
		tmp[0] = byte(sub)
		tmp[1] = byte(sub >> 8)
		tmp[2] = byte(sub >> 16)
		tmp[3] = byte(sub >> 24)
		b = append(b, tmp...)
	}
	return b
}()

func aliceObject() testObject {
	return testObject{attrs: []testAttr{
		{name: "cn", values: []any{"alice"}},
		{name: "objectClass", values: []any{"top", "person", "user"}},
		{name: "distinguishedName", values: []any{"CN=alice,OU=People,DC=x"}},
		{name: "userAccountControl", values: []any{uint32(514)}},
		{name: "objectGUID", values: []any{aliceGUIDBytes}},
		{name: "objectSid", values: []any{aliceSIDBytes}},
		{name: "whenCreated", values: []any{utcTimeFields{2024, 1, 15, 10, 0, 0}}},
		{name: "isDeleted", values: []any{false}},
	}}
}

func bobObject() testObject {
	return testObject{attrs: []testAttr{
		{name: "cn", values: []any{"bob"}},
		{name: "objectClass", values: []any{"top", "person", "user"}},
	}}
}

func openTestSnapshot(t *testing.T, props []testProperty, objects []testObject) *Decoder {
	t.Helper()
	data := buildSnapshot(props, objects)
	dec, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	t.Cleanup(func() { _ = dec.Close() })
	return dec
}

func TestHeaderParse(t *testing.T) {
	dec := openTestSnapshot(t, aliceProps, []testObject{aliceObject()})

	h := dec.Header()
	if h.Signature != "ADSNAPSHOT" {
		t.Errorf("signature = %q", h.Signature)
	}
	if h.Description != "test capture" {
		t.Errorf("description = %q", h.Description)
	}
	if h.Server != "dc01.example.test" {
		t.Errorf("server = %q", h.Server)
	}
	if h.ObjectCount != 1 {
		t.Errorf("object count = %d", h.ObjectCount)
	}
	if h.AttributeCount != uint32(len(aliceProps)) {
		t.Errorf("attribute count = %d", h.AttributeCount)
	}
	if !h.CapturedAt.Equal(time.Unix(0, 0).UTC()) {
		t.Errorf("captured at = %v, want unix epoch (filetime 0)", h.CapturedAt)
	}
	if dec.SchemaMismatch {
		t.Errorf("unexpected schema mismatch")
	}
}

func TestGetPropertyCaseInsensitive(t *testing.T) {
	dec := openTestSnapshot(t, aliceProps, []testObject{aliceObject()})

	for _, name := range []string{"cn", "CN", "Cn", "cN"} {
		prop, ok := dec.GetProperty(name)
		if !ok {
			t.Fatalf("GetProperty(%q) not found", name)
		}
		if prop.Name != "cn" {
			t.Errorf("GetProperty(%q).Name = %q, want on-disk casing preserved", name, prop.Name)
		}
		if prop.Index != 0 {
			t.Errorf("GetProperty(%q).Index = %d, want 0", name, prop.Index)
		}
	}

	if _, ok := dec.GetProperty(""); ok {
		t.Errorf("GetProperty(\"\") should not resolve")
	}
	if _, ok := dec.GetProperty("doesNotExist"); ok {
		t.Errorf("GetProperty of unknown attribute should not resolve")
	}
}

func TestEntryValuesAndCacheIdempotence(t *testing.T) {
	dec := openTestSnapshot(t, aliceProps, []testObject{aliceObject()})

	var entries []*Entry
	for e := range dec.Entries() {
		entries = append(entries, e)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]

	v1, err := entry.Values("cn")
	if err != nil {
		t.Fatalf("Values(cn): %v", err)
	}
	v2, err := entry.Values("CN")
	if err != nil {
		t.Fatalf("Values(CN): %v", err)
	}
	if len(v1) != 1 || v1[0] != "alice" {
		t.Fatalf("cn = %v", v1)
	}
	if len(v2) != 1 || v2[0] != "alice" {
		t.Fatalf("second read of cn = %v", v2)
	}

	classes, err := entry.Values("objectClass")
	if err != nil {
		t.Fatalf("Values(objectClass): %v", err)
	}
	if len(classes) != 3 {
		t.Fatalf("objectClass values = %v", classes)
	}

	if _, err := entry.Values("doesNotExist"); err != ErrAttributeAbsent {
		t.Errorf("Values(doesNotExist) err = %v, want ErrAttributeAbsent", err)
	}
}

func TestEntryGUIDAndSIDPresentation(t *testing.T) {
	dec := openTestSnapshot(t, aliceProps, []testObject{aliceObject()})
	entry := firstEntry(t, dec)

	guidValues, err := entry.Values("objectGUID")
	if err != nil {
		t.Fatalf("Values(objectGUID): %v", err)
	}
	guidStr, ok := guidValues[0].(string)
	if !ok {
		t.Fatalf("objectGUID value is %T, want string", guidValues[0])
	}
	if want := "04030201-0605-0807-090a-0b0c0d0e0f10"; guidStr != want {
		t.Errorf("objectGUID = %q, want %q", guidStr, want)
	}

	sidValues, err := entry.Values("objectSid")
	if err != nil {
		t.Fatalf("Values(objectSid): %v", err)
	}
	sidStr, ok := sidValues[0].(string)
	if !ok {
		t.Fatalf("objectSid value is %T, want string", sidValues[0])
	}
	if want := "S-1-5-21-111-222-333"; sidStr != want {
		t.Errorf("objectSid = %q, want %q", sidStr, want)
	}

	rawGUID, err := entry.RawValues("objectGUID")
	if err != nil {
		t.Fatalf("RawValues(objectGUID): %v", err)
	}
	rawBytes, ok := rawGUID[0].([]byte)
	if !ok || len(rawBytes) != 16 {
		t.Fatalf("raw objectGUID = %#v", rawGUID[0])
	}
}

func TestEntryUTCTimeDecoding(t *testing.T) {
	dec := openTestSnapshot(t, aliceProps, []testObject{aliceObject()})
	entry := firstEntry(t, dec)

	values, err := entry.Values("whenCreated")
	if err != nil {
		t.Fatalf("Values(whenCreated): %v", err)
	}
	got, ok := values[0].(int64)
	if !ok {
		t.Fatalf("whenCreated value is %T", values[0])
	}
	want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Errorf("whenCreated = %d, want %d", got, want)
	}
}

func TestProjection(t *testing.T) {
	dec := openTestSnapshot(t, aliceProps, []testObject{aliceObject()})
	entry := firstEntry(t, dec)

	attrs := entry.Project([]string{"objectGUID", "cn"})
	if len(attrs) != 2 {
		t.Fatalf("Project selection = %v", attrs)
	}
	if attrs[0].Name != "objectGUID" || attrs[1].Name != "cn" {
		t.Errorf("projection order = [%s %s], want selection order", attrs[0].Name, attrs[1].Name)
	}
	if attrs[1].Value != "alice" {
		t.Errorf("cn = %v", attrs[1].Value)
	}
	if guidStr, _ := attrs[0].Value.(string); guidStr == "" {
		t.Errorf("objectGUID missing from projection")
	}

	full := entry.Project(nil)
	if len(full) != len(aliceProps) {
		t.Fatalf("full projection has %d attrs, want %d", len(full), len(aliceProps))
	}
	for i, want := range aliceObject().attrs {
		if full[i].Name != want.name {
			t.Errorf("full projection[%d] = %s, want storage order %s", i, full[i].Name, want.name)
		}
	}
	classes, ok := full[1].Value.([]any)
	if !ok || len(classes) != 3 {
		t.Errorf("objectClass projection = %v", full[1].Value)
	}
}

func TestMultipleObjects(t *testing.T) {
	dec := openTestSnapshot(t, aliceProps, []testObject{aliceObject(), bobObject()})
	if dec.ObjectCount() != 2 {
		t.Fatalf("object count = %d, want 2", dec.ObjectCount())
	}

	var names []string
	for e := range dec.Entries() {
		values, err := e.Values("cn")
		if err != nil {
			t.Fatalf("Values(cn): %v", err)
		}
		names = append(names, values[0].(string))
	}
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Errorf("names = %v", names)
	}
}

func TestOpenTruncatedFile(t *testing.T) {
	data := buildSnapshot(aliceProps, []testObject{aliceObject()})
	truncated := data[:firstObjectOffset-10]
	if _, err := OpenBytes(truncated); err == nil {
		t.Errorf("expected error opening truncated header")
	}
}

func firstEntry(t *testing.T, dec *Decoder) *Entry {
	t.Helper()
	for e := range dec.Entries() {
		return e
	}
	t.Fatal("no entries")
	return nil
}
