// Package config loads a cluster's static membership descriptor from disk.
// Grounded on leifdb's node.NodeConfig/NewNodeConfig (internal/node/node.go),
// generalized from command-line construction to a YAML file so a cluster's
// full initial membership list can be described in one place.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/quietpeer/raft/internal/raft"
)

// PeerSpec names one member of the cluster: its stable raft.NodeId and the
// "host:port" address its gRPC transport listens on.
type PeerSpec struct {
	Id      raft.NodeId `yaml:"id"`
	Address string      `yaml:"address"`
}

// ClusterConfig is the YAML-loaded shape of a cluster descriptor file:
// this replica's own id, where to keep its data, where it listens, the
// admin HTTP address, and the full initial membership list (including
// itself).
type ClusterConfig struct {
	Self       raft.NodeId `yaml:"self"`
	DataDir    string      `yaml:"data_dir"`
	ListenAddr string      `yaml:"listen_addr"`
	AdminAddr  string      `yaml:"admin_addr"`
	Peers      []PeerSpec  `yaml:"peers"`
}

// Load reads and parses a cluster descriptor from filename.
func Load(filename string) (*ClusterConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", filename, err)
	}

	var cfg ClusterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", filename, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(".", fmt.Sprintf("node-%d", cfg.Self))
	}
	return &cfg, nil
}

func (c *ClusterConfig) validate() error {
	if c.Self == raft.NoNode {
		return fmt.Errorf("config: self id must be set and nonzero")
	}
	found := false
	for _, p := range c.Peers {
		if p.Id == c.Self {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("config: self id %d must appear in the peers list", c.Self)
	}
	return nil
}

// Members returns every peer's NodeId, including this replica's own,
// suitable for raft.NewWithMembers.
func (c *ClusterConfig) Members() []raft.NodeId {
	out := make([]raft.NodeId, 0, len(c.Peers))
	for _, p := range c.Peers {
		out = append(out, p.Id)
	}
	return out
}

// PeerAddresses returns every other member's address, keyed by id (this
// replica's own id is omitted).
func (c *ClusterConfig) PeerAddresses() map[raft.NodeId]string {
	out := make(map[raft.NodeId]string, len(c.Peers))
	for _, p := range c.Peers {
		if p.Id == c.Self {
			continue
		}
		out[p.Id] = p.Address
	}
	return out
}
