package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// platformConfig describes the emulated platform: the peer's node
// inventory and the registers it proxies.
type platformConfig struct {
	Nodes     []nodeConfig     `yaml:"nodes"`
	Registers []registerConfig `yaml:"registers"`
}

type nodeConfig struct {
	ID   uint32 `yaml:"id"`
	Name string `yaml:"name"`
}

type registerConfig struct {
	Address uint32 `yaml:"address"`
	Value   uint32 `yaml:"value"`
}

func loadPlatformConfig(path string) (*platformConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platform config: %w", err)
	}
	var cfg platformConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse platform config %s: %w", path, err)
	}
	for i, node := range cfg.Nodes {
		if node.Name == "" {
			return nil, fmt.Errorf("platform config %s: node %d has no name", path, i)
		}
	}
	return &cfg, nil
}

func (c *platformConfig) nodeIDs() []uint32 {
	ids := make([]uint32, 0, len(c.Nodes))
	for _, node := range c.Nodes {
		ids = append(ids, node.ID)
	}
	return ids
}
