// Package storage provides a disk-backed implementation of raft.Storage.
package storage

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quietpeer/raft/internal/raft"
)

// termRecord is the gob-encoded on-disk representation of the current term
// and vote, mirroring leifdb's protobuf TermRecord (term.go's WriteTerm/
// ReadTerm). protobuf itself is not used here: without a protoc toolchain
// available, hand-authoring the generated .pb.go would risk an incorrect
// protoreflect.ProtoMessage implementation that could not be verified, so
// encoding/gob stands in as the wire format for local persistence (see
// DESIGN.md).
type termRecord struct {
	Term     raft.TermId
	VotedFor raft.NodeId
	HasVote  bool
}

// logRecord is the gob-encoded on-disk representation of the full log.
type logRecord struct {
	Entries []raft.Entry
}

// FileStorage persists term/vote and the log to two files under a data
// directory, each written atomically via a temp-file-then-rename, mirroring
// leifdb's node.WriteTerm/WriteLogs.
type FileStorage struct {
	mu sync.Mutex

	termFile string
	logFile  string

	term     raft.TermId
	votedFor raft.NodeId
	hasVote  bool
	log      []raft.Entry
}

// NewFileStorage opens (or initializes) a FileStorage rooted at dataDir,
// loading any previously persisted term, vote, and log.
func NewFileStorage(dataDir string) (*FileStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	fs := &FileStorage{
		termFile: filepath.Join(dataDir, "term"),
		logFile:  filepath.Join(dataDir, "raftlog"),
	}

	tr, err := readGob[termRecord](fs.termFile)
	if err != nil {
		return nil, err
	}
	if tr != nil {
		fs.term = tr.Term
		fs.votedFor = tr.VotedFor
		fs.hasVote = tr.HasVote
	}

	lr, err := readGob[logRecord](fs.logFile)
	if err != nil {
		return nil, err
	}
	if lr != nil {
		fs.log = lr.Entries
	}

	log.Info().
		Uint64("term", uint64(fs.term)).
		Int("nLogs", len(fs.log)).
		Msg("storage: loaded persisted state")

	return fs, nil
}

func readGob[T any](filename string) (*T, error) {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var v T
	if err := gob.NewDecoder(f).Decode(&v); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("storage: failed to decode, treating as empty")
		return nil, nil
	}
	return &v, nil
}

// writeGobAtomic writes v to filename by encoding to a temp file in the same
// directory and renaming over the destination, so a crash mid-write never
// leaves a corrupt or partial file in place.
func writeGobAtomic(filename string, v interface{}) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filename)
}

// Term returns the current persisted term.
func (fs *FileStorage) Term() raft.TermId {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.term
}

// Vote returns the current persisted vote.
func (fs *FileStorage) Vote() (raft.NodeId, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.votedFor, fs.hasVote
}

// PersistTermVote durably records term and vote before returning.
func (fs *FileStorage) PersistTermVote(term raft.TermId, votedFor raft.NodeId, hasVote bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec := termRecord{Term: term, VotedFor: votedFor, HasVote: hasVote}
	if err := writeGobAtomic(fs.termFile, rec); err != nil {
		log.Error().Err(err).Msg("storage: failed to persist term/vote")
		return err
	}
	fs.term = term
	fs.votedFor = votedFor
	fs.hasVote = hasVote
	return nil
}

// AppendEntry appends e to the log and persists the updated log.
func (fs *FileStorage) AppendEntry(e raft.Entry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	newLog := append(append([]raft.Entry(nil), fs.log...), e)
	if err := writeGobAtomic(fs.logFile, logRecord{Entries: newLog}); err != nil {
		log.Error().Err(err).Msg("storage: failed to persist log append")
		return err
	}
	fs.log = newLog
	return nil
}

// PopEntry removes and returns the last entry in the log, if any, and
// persists the truncated log.
func (fs *FileStorage) PopEntry() (raft.Entry, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if len(fs.log) == 0 {
		return raft.Entry{}, false
	}
	e := fs.log[len(fs.log)-1]
	newLog := fs.log[:len(fs.log)-1]
	if err := writeGobAtomic(fs.logFile, logRecord{Entries: newLog}); err != nil {
		log.Error().Err(err).Msg("storage: failed to persist log truncation")
		return raft.Entry{}, false
	}
	fs.log = newLog
	return e, true
}

// EntryAt returns the entry at the 1-based index idx, if present.
func (fs *FileStorage) EntryAt(idx raft.Index) (raft.Entry, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if idx == 0 || int(idx) > len(fs.log) {
		return raft.Entry{}, false
	}
	return fs.log[idx-1], true
}

// EntriesFrom returns every entry from the 1-based index idx through the
// tail of the log.
func (fs *FileStorage) EntriesFrom(idx raft.Index) []raft.Entry {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if idx == 0 {
		idx = 1
	}
	if int(idx) > len(fs.log) {
		return nil
	}
	out := make([]raft.Entry, len(fs.log)-int(idx)+1)
	copy(out, fs.log[idx-1:])
	return out
}

// CurrentIdx returns the index of the last entry in the log, 0 if empty.
func (fs *FileStorage) CurrentIdx() raft.Index {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return raft.Index(len(fs.log))
}

// LastLogTerm returns the term of the last entry in the log, if any.
func (fs *FileStorage) LastLogTerm() (raft.TermId, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.log) == 0 {
		return 0, false
	}
	return fs.log[len(fs.log)-1].Term, true
}
