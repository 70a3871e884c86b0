// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import "testing"

// FuzzOpenBytes exercises the header/schema/offset-index decode path and
// every attribute decode arm against arbitrary input.
func FuzzOpenBytes(f *testing.F) {
	f.Add(buildSnapshot(aliceProps, []testObject{aliceObject()}))
	f.Add([]byte("short"))
	f.Add(make([]byte, firstObjectOffset))

	f.Fuzz(func(t *testing.T, data []byte) {
		dec, err := OpenBytes(data)
		if err != nil {
			return
		}
		defer dec.Close()

		for e := range dec.Entries() {
			for _, prop := range dec.Properties() {
				_, _ = e.Values(prop.Name)
			}
		}
	})
}
