// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import "time"

// windowsEpoch is 1601-01-01 UTC, the origin of the Windows FILETIME clock.
var windowsEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

// filetimeToUTC converts a Windows FILETIME (100-ns intervals since
// 1601-01-01 UTC) to a UTC time.Time. A value of zero maps to the UNIX
// epoch rather than literally onto 1601.
func filetimeToUTC(value uint64) time.Time {
	if value == 0 {
		return time.Unix(0, 0).UTC()
	}
	// Convert to microseconds, truncating toward zero, then add onto 1601.
	micros := int64(value) / 10
	return windowsEpoch.Add(time.Duration(micros) * time.Microsecond).UTC()
}
