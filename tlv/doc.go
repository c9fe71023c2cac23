// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tlv decodes the type-length-value blobs stored in field replaceable
// unit EEPROMs.
//
// A blob starts with a big-endian uint16 holding the number of record bytes
// that follow, then records packed back to back:
//
//	+--------+--------+--------+---------------+
//	| len hi | len lo |  type  | length | value ...
//	+--------+--------+--------+---------------+
//
// The declared length comes from storage that may be blank (all 0x00 or all
// 0xFF) or corrupted, so it is range checked before any record is visited and
// no record is ever read past it.
package tlv
