package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
self: 1
listen_addr: "127.0.0.1:9001"
admin_addr: "127.0.0.1:8001"
peers:
  - id: 1
    address: "127.0.0.1:9001"
  - id: 2
    address: "127.0.0.1:9002"
  - id: 3
    address: "127.0.0.1:9003"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unexpected error writing temp config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeTemp(t, sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Self != 1 {
		t.Fatalf("expected self id 1, got %d", cfg.Self)
	}
	if len(cfg.Members()) != 3 {
		t.Fatalf("expected 3 members, got %d", len(cfg.Members()))
	}
	addrs := cfg.PeerAddresses()
	if len(addrs) != 2 {
		t.Fatalf("expected 2 peer addresses (excluding self), got %d", len(addrs))
	}
	if addrs[2] != "127.0.0.1:9002" {
		t.Fatalf("expected node 2's address, got %q", addrs[2])
	}
}

func TestLoadRejectsSelfNotInPeers(t *testing.T) {
	bad := `
self: 99
peers:
  - id: 1
    address: "127.0.0.1:9001"
`
	if _, err := Load(writeTemp(t, bad)); err == nil {
		t.Fatal("expected an error when self is not a member of peers")
	}
}

func TestLoadRejectsMissingSelf(t *testing.T) {
	bad := `
peers:
  - id: 1
    address: "127.0.0.1:9001"
`
	if _, err := Load(writeTemp(t, bad)); err == nil {
		t.Fatal("expected an error when self is unset")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
