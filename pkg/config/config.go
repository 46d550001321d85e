// Package config loads the catalog and agent files the binaries are started with.
package config

import (
	"fmt"
	"os"

	"github.com/dukex/flowcanvas/pkg/agents"
	"github.com/dukex/flowcanvas/pkg/catalog"
)

// LoadCatalog reads a template catalog YAML file.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	templates, err := catalog.Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog file %s: %w", path, err)
	}

	return templates, nil
}

// LoadCatalogOrDefault returns the built-in catalog when path is empty.
func LoadCatalogOrDefault(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}

	return LoadCatalog(path)
}

// LoadAgents reads an agent directory YAML file.
func LoadAgents(path string) (*agents.StaticDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agents file %s: %w", path, err)
	}

	directory, err := agents.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load agents file %s: %w", path, err)
	}

	return directory, nil
}

// LoadAgentsOrEmpty returns an empty directory when path is empty.
func LoadAgentsOrEmpty(path string) (*agents.StaticDirectory, error) {
	if path == "" {
		return agents.NewStaticDirectory()
	}

	return LoadAgents(path)
}
