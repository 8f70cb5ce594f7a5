package executor

// ResultBuffer holds one result slot per key for a single run
//
// Slots are allocated up front and addressed through an index that never changes after
// construction, so distinct keys can be written from different goroutines without locking.
// Each key has a single writer; readers must only read a slot after observing the control
// message that announces it.
type ResultBuffer struct {
	index map[int]int
	slots [][]Result
}

// NewResultBuffer allocates a slot for each key
// Duplicate keys share a slot
func NewResultBuffer(keys ...int) *ResultBuffer {
	b := &ResultBuffer{
		index: make(map[int]int, len(keys)),
		slots: make([][]Result, 0, len(keys)),
	}
	for _, k := range keys {
		if _, ok := b.index[k]; ok {
			continue
		}
		b.index[k] = len(b.slots)
		b.slots = append(b.slots, nil)
	}
	return b
}

// NewResultBufferFrom builds a buffer pre-filled with results
// It is intended for scripted runs where the buffer content is known in advance
func NewResultBufferFrom(entries map[int][]Result) *ResultBuffer {
	keys := make([]int, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	b := NewResultBuffer(keys...)
	for k, results := range entries {
		b.Set(k, results)
	}
	return b
}

// Set stores the results for key
// It reports false if key has no slot
func (b *ResultBuffer) Set(key int, results []Result) bool {
	if b == nil {
		return false
	}
	i, ok := b.index[key]
	if !ok {
		return false
	}
	b.slots[i] = results
	return true
}

// Get returns the results stored for key
// The second value is false if key has no slot
func (b *ResultBuffer) Get(key int) ([]Result, bool) {
	if b == nil {
		return nil, false
	}
	i, ok := b.index[key]
	if !ok {
		return nil, false
	}
	return b.slots[i], true
}

// Has reports whether key has a slot
func (b *ResultBuffer) Has(key int) bool {
	if b == nil {
		return false
	}
	_, ok := b.index[key]
	return ok
}

// Len returns the number of slots
func (b *ResultBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.slots)
}
