// internal/memory/bestfit.go

package memory

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/trees/redblacktree"
)

// DefaultBlocks is the block table used when no configuration overrides it.
var DefaultBlocks = []int{100, 400, 200, 500, 250, 450, 150, 1000, 150, 550}

// BestFit keeps an ordered table of free capacities and serves each request
// from the smallest block that can hold it. Capacity is consumed in place and
// never returned.
type BestFit struct {
	mu     sync.Mutex
	blocks *arraylist.List    // table order, values are int capacities
	index  *redblacktree.Tree // blockKey -> table position
}

// NewBestFit builds an allocator over a copy of capacities.
func NewBestFit(capacities []int) (*BestFit, error) {
	m := &BestFit{
		blocks: arraylist.New(),
		index:  redblacktree.NewWith(cmp),
	}
	for i, c := range capacities {
		if c < 0 {
			return nil, fmt.Errorf("block %d has negative capacity %d", i, c)
		}
		m.blocks.Add(c)
		m.index.Put(blockKey{capacity: c, pos: i}, i)
	}
	return m, nil
}

// Allocate carves size units out of the best fitting block and returns the
// block's table position. Ties go to the block earliest in the table.
// When nothing fits the table is left untouched.
func (m *BestFit) Allocate(size int) (int, bool) {
	if size < 0 {
		return -1, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// pos -1 sorts before every real block of the same capacity
	node, ok := m.index.Ceiling(blockKey{capacity: size, pos: -1})
	if !ok {
		return -1, false
	}

	key := node.Key.(blockKey)
	m.index.Remove(key)
	key.capacity -= size
	m.index.Put(key, key.pos)
	m.blocks.Set(key.pos, key.capacity)
	return key.pos, true
}

// Status returns a snapshot of the capacities in table order.
func (m *BestFit) Status() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int, 0, m.blocks.Size())
	m.blocks.Each(func(_ int, v interface{}) {
		out = append(out, v.(int))
	})
	return out
}

// Free is the total capacity still available.
func (m *BestFit) Free() int {
	total := 0
	for _, c := range m.Status() {
		total += c
	}
	return total
}

// String renders the table as "100->400->...".
func (m *BestFit) String() string {
	status := m.Status()
	parts := make([]string, len(status))
	for i, c := range status {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, "->")
}

// blockKey orders blocks by capacity, then by table position.
type blockKey struct {
	capacity int
	pos      int
}

func cmp(a, b any) int {
	ka, kb := a.(blockKey), b.(blockKey)
	switch {
	case ka.capacity < kb.capacity:
		return -1
	case ka.capacity > kb.capacity:
		return 1
	case ka.pos < kb.pos:
		return -1
	case ka.pos > kb.pos:
		return 1
	default:
		return 0
	}
}
