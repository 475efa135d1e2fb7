package replication

import (
	"github.com/panunburn/kv/lib/paxos"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/store"
	"gopkg.in/yaml.v3"
	"io"
	"sort"
)

// State is the replicated state of a node: its store, its view of the
// membership directory and its consensus log. The owner's lock guards the
// directory.
type State struct {
	Store     store.IStore
	Directory map[protocol.Address]IReplica
	Log       *paxos.Log[protocol.Transaction]
}

// NewState creates a state with an empty directory.
func NewState(s store.IStore, log *paxos.Log[protocol.Transaction]) *State {
	return &State{
		Store:     s,
		Directory: make(map[protocol.Address]IReplica),
		Log:       log,
	}
}

// Members returns the addresses in the directory, sorted.
func (s *State) Members() []protocol.Address {
	members := make([]protocol.Address, 0, len(s.Directory))
	for addr := range s.Directory {
		members = append(members, addr)
	}
	sortAddresses(members)
	return members
}

// Join stores handle for addr. A handle it replaces is released.
func (s *State) Join(addr protocol.Address, handle IReplica) {
	if old, ok := s.Directory[addr]; ok && old != handle {
		release(addr, old)
	}
	s.Directory[addr] = handle
}

// Drop removes addr from the directory and releases its handle. It reports
// whether addr was a member.
func (s *State) Drop(addr protocol.Address) bool {
	handle, ok := s.Directory[addr]
	if !ok {
		return false
	}
	delete(s.Directory, addr)
	release(addr, handle)
	return true
}

// release closes handles holding network resources
func release(addr protocol.Address, handle IReplica) {
	if closer, ok := handle.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			Logger.Debugf("failed to release handle of %s: %v", addr, err)
		}
	}
}

// Snapshot copies the state into its transferable form.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Entries: s.Store.Entries(),
		Members: s.Members(),
		Rounds:  s.Log.Records(),
		Learned: s.Log.LearnedValues(),
	}
}

// Describe renders the state as YAML.
func (s *State) Describe() string {
	return s.Snapshot().Describe()
}

// --------------------------------------------------------------------------
// Snapshot
// --------------------------------------------------------------------------

// Snapshot is the state handed to a node when it connects.
type Snapshot struct {
	Entries map[string]string                           `json:"entries"`
	Members []protocol.Address                          `json:"members"`
	Rounds  map[int64]paxos.Record[protocol.Transaction] `json:"rounds"`
	Learned map[int64]protocol.Transaction              `json:"learned"`
}

// Restore builds the state of a joining node. Every member other than self
// is dialed, and members that cannot be dialed are left out.
func (snap Snapshot) Restore(s store.IStore, log *paxos.Log[protocol.Transaction], self protocol.Address, dial Dialer) *State {
	s.Replace(snap.Entries)
	log.Restore(snap.Rounds, snap.Learned)

	state := NewState(s, log)
	for _, addr := range snap.Members {
		if addr == self {
			continue
		}
		handle, err := dial(addr)
		if err != nil {
			Logger.Warningf("failed to dial member %s: %v", addr, err)
			continue
		}
		state.Join(addr, handle)
	}
	return state
}

type describedRound struct {
	Promised int64  `yaml:"promised"`
	Accepted string `yaml:"accepted,omitempty"`
	Learned  string `yaml:"learned,omitempty"`
}

type describedState struct {
	Store   map[string]string        `yaml:"store"`
	Members []string                 `yaml:"members"`
	Rounds  map[int64]describedRound `yaml:"rounds,omitempty"`
}

// Describe renders the snapshot as YAML.
func (snap Snapshot) Describe() string {
	d := describedState{
		Store:   snap.Entries,
		Members: make([]string, 0, len(snap.Members)),
		Rounds:  make(map[int64]describedRound, len(snap.Rounds)),
	}
	for _, m := range snap.Members {
		d.Members = append(d.Members, m.String())
	}
	for r, rec := range snap.Rounds {
		dr := describedRound{Promised: rec.Promised}
		if rec.Accepted != nil {
			dr.Accepted = rec.Accepted.Value.String()
		}
		d.Rounds[r] = dr
	}
	for r, tx := range snap.Learned {
		dr := d.Rounds[r]
		dr.Learned = tx.String()
		d.Rounds[r] = dr
	}

	out, err := yaml.Marshal(d)
	if err != nil {
		return err.Error()
	}
	return string(out)
}

// --------------------------------------------------------------------------
// Command Application
// --------------------------------------------------------------------------

// apply executes cmd against the node's state.
func apply(s *State, cmd protocol.Command) protocol.Result {
	switch cmd.Kind {
	case protocol.KindGet:
		v, ok := s.Store.Get(cmd.Key)
		return protocol.Result{Value: v, Found: ok}
	case protocol.KindPut:
		prev, ok := s.Store.Put(cmd.Key, cmd.Value)
		return protocol.Result{Value: prev, Found: ok}
	case protocol.KindDelete:
		prev, ok := s.Store.Delete(cmd.Key)
		return protocol.Result{Value: prev, Found: ok}
	case protocol.KindPrint:
		Logger.Infof("replicated state:\n%s", s.Describe())
		return protocol.Result{}
	default:
		Logger.Errorf("cannot apply unknown command %s", cmd)
		return protocol.Result{}
	}
}

func sortAddresses(addrs []protocol.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].String() < addrs[j].String()
	})
}
