// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package superio

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// ioportsLine matches "  0500-057f : gpio" lines of /proc/ioports.
var ioportsLine = regexp.MustCompile(`^\s*([0-9a-fA-F]+)-([0-9a-fA-F]+)\s*:\s*(.+)$`)

// getXeonBase queries /proc/ioports under root for the GPIO region.
//
// Defaults to XeonDefaultBase if it could not find it.
func getXeonBase(root string) uint16 {
	f, err := os.Open(path.Join(root, "proc/ioports"))
	if err != nil {
		return XeonDefaultBase
	}
	defer f.Close()
	start, _, err := findRegion(f, "gpio")
	if err != nil {
		return XeonDefaultBase
	}
	return start
}

// findRegion returns the first region whose name starts with prefix, case
// insensitively.
func findRegion(r io.Reader, prefix string) (uint16, uint16, error) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		m := ioportsLine.FindStringSubmatch(s.Text())
		if m == nil {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(m[3])), prefix) {
			continue
		}
		start, err := strconv.ParseUint(m[1], 16, 16)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(m[2], 16, 16)
		if err != nil || end < start {
			continue
		}
		return uint16(start), uint16(end), nil
	}
	if err := s.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, errors.New("superio: I/O port region not found")
}
