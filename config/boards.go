// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// The board descriptions shipped with the module, one file per chassis.
//
//go:embed boards/*.yaml
var boardFiles embed.FS

// EnvPath is the environment variable naming a chassis description file.
const EnvPath = "CHASSIS_CONFIG"

// DefaultPath is the chassis description file used when present.
const DefaultPath = "/etc/chassis.yaml"

// ErrNoBoard is returned by Detect when no description matches the host.
var ErrNoBoard = errors.New("config: no chassis description found")

// Boards returns the names of the embedded board descriptions.
func Boards() []string {
	items, err := boardFiles.ReadDir("boards")
	if err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		out = append(out, strings.TrimSuffix(item.Name(), ".yaml"))
	}
	sort.Strings(out)
	return out
}

// Builtin returns the embedded description of board name.
func Builtin(name string) (*Config, error) {
	b, err := boardFiles.ReadFile(path.Join("boards", strings.ToLower(name)+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("config: unknown board %q", name)
	}
	return Parse(b)
}

// Detect returns the description of the host chassis.
//
// In order: the file named by $CHASSIS_CONFIG, /etc/chassis.yaml, then the
// embedded board whose product list matches the DMI product name.
func Detect() (*Config, error) {
	return detect("/", os.Getenv(EnvPath))
}

func detect(root, env string) (*Config, error) {
	if env != "" {
		return Load(env)
	}
	p := filepath.Join(root, DefaultPath)
	if _, err := os.Stat(p); err == nil {
		return Load(p)
	}
	product := readProductName(root)
	if product == "" {
		return nil, ErrNoBoard
	}
	for _, name := range Boards() {
		c, err := Builtin(name)
		if err != nil {
			return nil, err
		}
		if c.matches(product) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w for product %q", ErrNoBoard, product)
}

// readProductName returns the DMI product name, or "" when unavailable.
func readProductName(root string) string {
	b, err := os.ReadFile(filepath.Join(root, "sys/class/dmi/id/product_name"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (c *Config) matches(product string) bool {
	for _, p := range c.Product {
		if strings.EqualFold(p, product) {
			return true
		}
	}
	return false
}
