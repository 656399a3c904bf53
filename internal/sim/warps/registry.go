package warps

import (
	"fmt"
	"sort"
	"sync"

	"lapiswarps.ai/internal/sim/voxel"
)

// anchorSet is an array-backed set: O(1) membership, removal and uniform sampling.
type anchorSet struct {
	items []voxel.Vec3i
	index map[voxel.Vec3i]int
}

func newAnchorSet() *anchorSet {
	return &anchorSet{index: map[voxel.Vec3i]int{}}
}

func (s *anchorSet) add(p voxel.Vec3i) bool {
	if _, ok := s.index[p]; ok {
		return false
	}
	s.index[p] = len(s.items)
	s.items = append(s.items, p)
	return true
}

func (s *anchorSet) remove(p voxel.Vec3i) bool {
	i, ok := s.index[p]
	if !ok {
		return false
	}
	last := len(s.items) - 1
	if i != last {
		moved := s.items[last]
		s.items[i] = moved
		s.index[moved] = i
	}
	s.items = s.items[:last]
	delete(s.index, p)
	return true
}

func (s *anchorSet) sorted() []voxel.Vec3i {
	out := append([]voxel.Vec3i(nil), s.items...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Entry is one channel and the anchors registered under it.
type Entry struct {
	Channel int32
	Anchors []voxel.Vec3i
}

// Registry maps channels to the portal anchors registered under them.
// An anchor belongs to at most one channel at a time.
type Registry struct {
	mu        sync.Mutex
	byChannel map[int32]*anchorSet
	owner     map[voxel.Vec3i]int32
}

// NewRegistry is the factory for the empty registry of a freshly created world.
func NewRegistry() *Registry {
	return &Registry{
		byChannel: map[int32]*anchorSet{},
		owner:     map[voxel.Vec3i]int32{},
	}
}

// LookupPartner picks an anchor under channel other than exclude, uniformly at random.
func (r *Registry) LookupPartner(channel int32, exclude voxel.Vec3i, rng Rand) (voxel.Vec3i, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.byChannel[channel]
	if s == nil {
		return voxel.Vec3i{}, false
	}
	n := len(s.items)
	skip, excluded := s.index[exclude]
	if excluded {
		n--
	}
	if n <= 0 {
		return voxel.Vec3i{}, false
	}
	i := 0
	if n > 1 {
		i = rng.Intn(n)
	}
	if excluded && i >= skip {
		i++
	}
	return s.items[i], true
}

// Register adds anchor under channel unless the anchor is already registered
// under any channel. Callers move an anchor between channels by purging first.
func (r *Registry) Register(channel int32, anchor voxel.Vec3i) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owner[anchor]; ok {
		return false
	}
	s := r.byChannel[channel]
	if s == nil {
		s = newAnchorSet()
		r.byChannel[channel] = s
	}
	s.add(anchor)
	r.owner[anchor] = channel
	return true
}

// Unregister removes anchor from channel. Empty channels are dropped.
func (r *Registry) Unregister(channel int32, anchor voxel.Vec3i) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterLocked(channel, anchor)
}

func (r *Registry) unregisterLocked(channel int32, anchor voxel.Vec3i) bool {
	s := r.byChannel[channel]
	if s == nil || !s.remove(anchor) {
		return false
	}
	if len(s.items) == 0 {
		delete(r.byChannel, channel)
	}
	if c, ok := r.owner[anchor]; ok && c == channel {
		delete(r.owner, anchor)
	}
	return true
}

// PurgeAnchorFromOtherChannels removes anchor from every channel except current
// and returns how many entries were removed.
func (r *Registry) PurgeAnchorFromOtherChannels(current int32, anchor voxel.Vec3i) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The owner index would suffice while the invariant holds; scanning keeps
	// the purge total even if it did not.
	var stale []int32
	for ch, s := range r.byChannel {
		if ch == current {
			continue
		}
		if _, ok := s.index[anchor]; ok {
			stale = append(stale, ch)
		}
	}
	n := 0
	for _, ch := range stale {
		if r.unregisterLocked(ch, anchor) {
			n++
		}
	}
	return n
}

func (r *Registry) Contains(anchor voxel.Vec3i) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.owner[anchor]
	return ok
}

// ChannelOf returns the channel anchor is registered under.
func (r *Registry) ChannelOf(anchor voxel.Vec3i) (int32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.owner[anchor]
	return ch, ok
}

// Anchors returns the anchors under channel, sorted.
func (r *Registry) Anchors(channel int32) []voxel.Vec3i {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byChannel[channel]
	if s == nil {
		return nil
	}
	return s.sorted()
}

// Len is the number of registered anchors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owner)
}

func (r *Registry) Channels() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int32, 0, len(r.byChannel))
	for ch := range r.byChannel {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Entries returns the full contents in a stable order, for persistence.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.byChannel))
	for ch, s := range r.byChannel {
		out = append(out, Entry{Channel: ch, Anchors: s.sorted()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Restore replaces the registry contents. It fails without modifying the
// registry if an anchor appears more than once.
func (r *Registry) Restore(entries []Entry) error {
	byChannel := map[int32]*anchorSet{}
	owner := map[voxel.Vec3i]int32{}
	for _, e := range entries {
		for _, a := range e.Anchors {
			if prev, ok := owner[a]; ok {
				return fmt.Errorf("anchor %s registered under channels %d and %d", a, prev, e.Channel)
			}
			owner[a] = e.Channel
			s := byChannel[e.Channel]
			if s == nil {
				s = newAnchorSet()
				byChannel[e.Channel] = s
			}
			s.add(a)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byChannel = byChannel
	r.owner = owner
	return nil
}

// CheckInvariant verifies that every anchor sits under exactly one channel and
// that the reverse index agrees with the channel sets.
func (r *Registry) CheckInvariant() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[voxel.Vec3i]int32{}
	for ch, s := range r.byChannel {
		if len(s.items) == 0 {
			return fmt.Errorf("channel %d is empty", ch)
		}
		if len(s.items) != len(s.index) {
			return fmt.Errorf("channel %d: %d items, %d indexed", ch, len(s.items), len(s.index))
		}
		for i, a := range s.items {
			if s.index[a] != i {
				return fmt.Errorf("channel %d: anchor %s index mismatch", ch, a)
			}
			if prev, ok := seen[a]; ok {
				return fmt.Errorf("anchor %s under channels %d and %d", a, prev, ch)
			}
			seen[a] = ch
			if r.owner[a] != ch {
				return fmt.Errorf("anchor %s owner=%d set=%d", a, r.owner[a], ch)
			}
		}
	}
	if len(seen) != len(r.owner) {
		return fmt.Errorf("owner index has %d anchors, sets have %d", len(r.owner), len(seen))
	}
	return nil
}
