// Package store holds the node's ordered chain plus the three auxiliary
// buffers (invalid, orphan, pending) and the classification rule that
// routes an incoming block to exactly one of them. Every mutation here
// is expected to happen while the caller holds the node's single mutex
// (see the node package); this package does no locking of its own.
package store

import (
	"sort"

	"github.com/ledgerline/node/block"
)

// Classification is the disjoint outcome of classifying a candidate
// block against the current chain tip.
type Classification int

const (
	Invalid Classification = iota
	Valid
	Fork
	Orphan
)

func (c Classification) String() string {
	switch c {
	case Valid:
		return "valid"
	case Fork:
		return "fork"
	case Orphan:
		return "orphan"
	default:
		return "invalid"
	}
}

// ChainStore is the ordered chain plus its auxiliary buffers.
type ChainStore struct {
	Chain         []block.Block
	InvalidBlocks []block.Block
	OrphanBlocks  []block.Block
	PendingBlocks []block.Block
}

// New returns an empty chain store.
func New() *ChainStore {
	return &ChainStore{}
}

// Tip returns the current chain tip and true, or a zero block and false
// if the chain is empty.
func (s *ChainStore) Tip() (block.Block, bool) {
	if len(s.Chain) == 0 {
		return block.Block{}, false
	}
	return s.Chain[len(s.Chain)-1], true
}

// Classify determines b's relationship to the current tip without
// mutating anything.
func (s *ChainStore) Classify(b block.Block) Classification {
	tip, ok := s.Tip()
	if !ok {
		return Valid
	}
	if b.PreviousBlockHash == tip.Hash && b.Index == tip.Index+1 {
		if b.Valid() {
			return Valid
		}
		return Invalid
	}
	if b.PreviousBlockHash != tip.Hash {
		if b.Index > tip.Index+1 {
			return Orphan
		}
		return Fork
	}
	// previous-hash matches the tip but the index doesn't chain: neither
	// a clean extension nor a recognizable fork/orphan shape.
	return Invalid
}

// Accept classifies b and applies the corresponding effect: append to
// Chain, InvalidBlocks, or OrphanBlocks. Invalid blocks are discarded.
// It returns the classification that was applied.
func (s *ChainStore) Accept(b block.Block) Classification {
	c := s.Classify(b)
	switch c {
	case Valid:
		s.Chain = append(s.Chain, b)
	case Fork:
		s.InvalidBlocks = append(s.InvalidBlocks, b)
	case Orphan:
		s.OrphanBlocks = append(s.OrphanBlocks, b)
	}
	return c
}

// AppendWithoutValidation is used by the mining loop: a block this node
// just mined itself is known-good by construction and is appended
// directly rather than re-run through Classify.
func (s *ChainStore) AppendWithoutValidation(b block.Block) {
	s.Chain = append(s.Chain, b)
}

// HashesTipFirst returns the chain's block hashes newest-first, the
// payload BlockHashesRequest carries during fork resolution.
func (s *ChainStore) HashesTipFirst() []string {
	hashes := make([]string, len(s.Chain))
	for i := range s.Chain {
		hashes[i] = s.Chain[len(s.Chain)-1-i].Hash
	}
	return hashes
}

// IndexOfHash returns the local chain index of hash and true, or false if
// this chain does not contain it.
func (s *ChainStore) IndexOfHash(hash string) (int, bool) {
	for i, b := range s.Chain {
		if b.Hash == hash {
			return i, true
		}
	}
	return 0, false
}

// OrphanIndexes returns the set of block indexes currently sitting in
// OrphanBlocks, used to compute a gap's missing indexes.
func (s *ChainStore) OrphanIndexes() []uint64 {
	out := make([]uint64, len(s.OrphanBlocks))
	for i, b := range s.OrphanBlocks {
		out[i] = b.Index
	}
	return out
}

// MissingIndexesForOrphans computes {tip.Index+1..max(observed)} minus
// the observed orphan indexes (starting from min(observed) when the
// chain is empty), i.e. the gap that needs to be fetched to make the
// orphan buffer contiguous with the chain.
func (s *ChainStore) MissingIndexesForOrphans() []uint64 {
	if len(s.OrphanBlocks) == 0 {
		return nil
	}
	observed := map[uint64]bool{}
	var lo, hi uint64
	first := true
	for _, b := range s.OrphanBlocks {
		observed[b.Index] = true
		if first || b.Index < lo {
			lo = b.Index
		}
		if first || b.Index > hi {
			hi = b.Index
		}
		first = false
	}
	if tip, ok := s.Tip(); ok {
		lo = tip.Index + 1
	}
	var missing []uint64
	for i := lo; i < hi; i++ {
		if !observed[i] {
			missing = append(missing, i)
		}
	}
	return missing
}

// AbsorbOrphans inserts any orphan blocks that now extend the chain
// contiguously, draining OrphanBlocks of whatever got consumed. It does
// this repeatedly since healing one gap can make the next orphan
// contiguous in turn.
func (s *ChainStore) AbsorbOrphans() {
	for {
		tip, ok := s.Tip()
		if !ok {
			return
		}
		progressed := false
		remaining := s.OrphanBlocks[:0:0]
		for _, b := range s.OrphanBlocks {
			if b.PreviousBlockHash == tip.Hash && b.Index == tip.Index+1 && b.Valid() {
				s.Chain = append(s.Chain, b)
				tip = b
				progressed = true
				continue
			}
			remaining = append(remaining, b)
		}
		s.OrphanBlocks = remaining
		if !progressed {
			return
		}
	}
}

// InsertMissingAndSort inserts each block from blocks whose index is not
// already present in Chain, then re-sorts Chain by index. Used by the
// orphan-healing fetch path, which heals gaps rather than
// replacing a prefix.
func (s *ChainStore) InsertMissingAndSort(blocks []block.Block) {
	present := map[uint64]bool{}
	for _, b := range s.Chain {
		present[b.Index] = true
	}
	for _, b := range blocks {
		if !present[b.Index] {
			s.Chain = append(s.Chain, b)
			present[b.Index] = true
		}
	}
	sort.Slice(s.Chain, func(i, j int) bool { return s.Chain[i].Index < s.Chain[j].Index })
}

// SpliceFrom replaces Chain from commonIndex+1 onward with candidates,
// sorted by index and filtered to a strictly-contiguous run starting at
// commonIndex+1; any block whose index is not exactly one greater than
// the previously appended block is dropped.
func (s *ChainStore) SpliceFrom(commonIndex int, candidates []block.Block) {
	if commonIndex < 0 || commonIndex >= len(s.Chain) {
		return
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Index < candidates[j].Index })
	prefix := s.Chain[:commonIndex+1]
	last := prefix[len(prefix)-1]
	spliced := make([]block.Block, len(prefix))
	copy(spliced, prefix)
	for _, b := range candidates {
		if b.Index != last.Index+1 {
			continue
		}
		spliced = append(spliced, b)
		last = b
	}
	s.Chain = spliced
	s.InvalidBlocks = nil
}
