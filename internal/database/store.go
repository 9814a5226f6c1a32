// Package database is the key-value state machine the raft core applies
// committed entries to. Grounded on leifdb's internal/database.Database
// (referenced by internal/node/node.go's Store field and Set/Delete calls),
// rebuilt here on an immutable radix tree so a tree taken with Snapshot can
// be read while later Applies build new versions. Get itself waits for an
// in-progress Set or Delete to finish.
package database

import (
	"bytes"
	"encoding/gob"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/rs/zerolog/log"

	"github.com/quietpeer/raft/internal/raft"
)

// Op identifies the kind of mutation a Command applies.
type Op uint8

const (
	OpSet Op = iota
	OpDelete
)

// Command is the user-entry payload format this package expects: every
// Entry.Data submitted via raft.Server.AddEntry for this state machine must
// gob-decode to a Command.
type Command struct {
	Op    Op
	Key   string
	Value string
}

// EncodeCommand serializes cmd for use as an Entry's Data.
func EncodeCommand(cmd Command) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cmd); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCommand is the inverse of EncodeCommand.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Database is a point-in-time-snapshottable key-value store: a tree returned
// by Snapshot never changes, even while a later Apply builds the next one.
// Get and Snapshot take a read lock and wait while Set or Delete holds the
// write lock. Implements raft.Applier.
type Database struct {
	mu   sync.RWMutex
	tree *iradix.Tree
}

// NewDatabase returns an empty Database.
func NewDatabase() *Database {
	return &Database{tree: iradix.New()}
}

// Get returns the value stored for key, if present.
func (d *Database) Get(key string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.tree.Get([]byte(key))
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Snapshot returns the current immutable tree, safe to range over while
// further Set/Delete calls proceed concurrently.
func (d *Database) Snapshot() *iradix.Tree {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tree
}

// Set stores value under key.
func (d *Database) Set(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	txn := d.tree.Txn()
	txn.Insert([]byte(key), value)
	d.tree = txn.Commit()
}

// Delete removes key, a no-op if it is not present.
func (d *Database) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	txn := d.tree.Txn()
	txn.Delete([]byte(key))
	d.tree = txn.Commit()
}

// Apply implements raft.Applier: internal (membership) entries carry no
// user data and are skipped here, since the raft core already applies their
// membership effects directly.
func (d *Database) Apply(e raft.Entry) error {
	if e.IsInternal || len(e.Data) == 0 {
		return nil
	}
	cmd, err := DecodeCommand(e.Data)
	if err != nil {
		log.Error().Err(err).Uint64("entry", uint64(e.Id)).Msg("database: failed to decode committed entry")
		return err
	}
	switch cmd.Op {
	case OpSet:
		d.Set(cmd.Key, cmd.Value)
	case OpDelete:
		d.Delete(cmd.Key)
	}
	return nil
}

// Log implements raft.Applier, routing the core's diagnostic lines through
// the same structured logger as the rest of this module.
func (d *Database) Log(msg string) {
	log.Debug().Msg(msg)
}
