// Package planner owns the block cursor and decides which inclusive block
// range to fetch next.
package planner

import "fmt"

// DefaultChunkSize bounds the width of a single getLogs query. Providers
// commonly reject wider ranges.
const DefaultChunkSize uint64 = 2000

// Range is an inclusive block range.
type Range struct {
	From uint64
	To   uint64
}

// Width returns the number of blocks covered by the range.
func (r Range) Width() uint64 {
	return r.To - r.From + 1
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.From, r.To)
}

// Planner hands out contiguous, non-overlapping ranges starting at the
// cursor. The cursor only moves forward, and only via Advance, so a failed
// fetch leaves the same range to be retried on the next cycle.
type Planner struct {
	cursor    uint64
	chunkSize uint64
}

// New creates a planner whose first range starts at startBlock.
func New(startBlock, chunkSize uint64) *Planner {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	return &Planner{cursor: startBlock, chunkSize: chunkSize}
}

// Next returns the next range to fetch given the latest known block, capped
// at the chunk size. It returns ok=false when the cursor is already past the
// latest block, which simply means there is nothing new to do.
// Calling Next repeatedly without Advance yields the same range.
func (p *Planner) Next(latestKnownBlock uint64) (Range, bool) {
	if latestKnownBlock < p.cursor {
		return Range{}, false
	}
	to := latestKnownBlock
	if max := p.cursor + p.chunkSize - 1; to > max {
		to = max
	}
	return Range{From: p.cursor, To: to}, true
}

// Advance moves the cursor past the range. Call it only after the range's
// logs have been matched and handed to the dispatcher.
func (p *Planner) Advance(r Range) {
	if r.To+1 > p.cursor {
		p.cursor = r.To + 1
	}
}

// Shrink halves the chunk size in response to a provider range-too-large
// error, with a floor of one block.
func (p *Planner) Shrink() uint64 {
	if p.chunkSize > 1 {
		p.chunkSize /= 2
	}
	return p.chunkSize
}

// Cursor returns the next block number to be processed.
func (p *Planner) Cursor() uint64 {
	return p.cursor
}

// ChunkSize returns the current per-query block cap.
func (p *Planner) ChunkSize() uint64 {
	return p.chunkSize
}
