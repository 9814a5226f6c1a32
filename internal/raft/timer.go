package raft

import (
	"math/rand"
	"time"
)

// DefaultElectionTimeout is the base election timeout. The actual timeout
// used by a given election round is randomized into [base, 2*base), per
// §4.7, matching bernerdschaefer-raft's ElectionTimeout()/
// MinimumElectionTimeoutMs jitter pattern.
const DefaultElectionTimeout = 250 * time.Millisecond

// DefaultHeartbeatInterval is the leader's AppendEntries broadcast interval.
// As in bernerdschaefer-raft's BroadcastInterval, it should be much smaller
// than the election timeout (BroadcastInterval << ElectionTimeout << MTBF).
const DefaultHeartbeatInterval = DefaultElectionTimeout / 10

// Timer tracks the election timeout (randomized per round) and heartbeat
// interval, accumulating elapsed time as ticks arrive from the host.
type Timer struct {
	electionTimeout   time.Duration
	heartbeatInterval time.Duration
	electionRand      time.Duration
	elapsed           time.Duration
	rng               *rand.Rand
}

// NewTimer builds a Timer with the given base election timeout and
// heartbeat interval, and an initial randomized election timeout.
func NewTimer(electionTimeout, heartbeatInterval time.Duration) *Timer {
	t := &Timer{
		electionTimeout:   electionTimeout,
		heartbeatInterval: heartbeatInterval,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	t.RandomizeElectionTimeout()
	return t
}

// AddElapsed accumulates d since the last tick.
func (t *Timer) AddElapsed(d time.Duration) {
	t.elapsed += d
}

// ResetElapsed zeroes the elapsed accumulator, without changing the
// randomized timeout.
func (t *Timer) ResetElapsed() {
	t.elapsed = 0
}

// Elapsed returns the accumulated elapsed time since the last reset.
func (t *Timer) Elapsed() time.Duration {
	return t.elapsed
}

// RandomizeElectionTimeout draws a new randomized election timeout in
// [electionTimeout, 2*electionTimeout).
func (t *Timer) RandomizeElectionTimeout() {
	n := time.Duration(t.rng.Int63n(int64(t.electionTimeout)))
	t.electionRand = t.electionTimeout + n
}

// ElectionTimeoutRand returns the current round's randomized election
// timeout.
func (t *Timer) ElectionTimeoutRand() time.Duration {
	return t.electionRand
}

// IsTimeToPing reports whether a leader should broadcast a heartbeat.
func (t *Timer) IsTimeToPing() bool {
	return t.elapsed >= t.heartbeatInterval
}

// IsTimeToElect reports whether a non-leader should start a new election
// round.
func (t *Timer) IsTimeToElect() bool {
	return t.elapsed >= t.electionRand
}
