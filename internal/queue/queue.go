// Package queue provides a bounded candidate heap for top-k selection.
package queue

// Candidate pairs a slot with its similarity score.
type Candidate struct {
	Slot  int
	Score float32
}

// worse reports whether a ranks strictly below b in the final ordering:
// lower score is worse, and among equal scores the later slot is worse.
// This makes the ordering total, so ties resolve deterministically to the
// earlier-inserted slot rather than depending on sort stability.
func worse(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Slot > b.Slot
}

// CandidateQueue keeps the k best candidates seen so far.
// The root of the heap is the worst retained candidate, so a newcomer only
// displaces it when the newcomer ranks strictly higher.
type CandidateQueue struct {
	limit int
	items []Candidate
}

// NewCandidateQueue creates a queue retaining at most limit candidates.
func NewCandidateQueue(limit int) *CandidateQueue {
	if limit < 0 {
		limit = 0
	}
	return &CandidateQueue{
		limit: limit,
		items: make([]Candidate, 0, limit),
	}
}

// Len returns the number of retained candidates.
func (q *CandidateQueue) Len() int { return len(q.items) }

// Push offers a candidate. If the queue is full and the candidate does not
// outrank the current worst, it is dropped.
func (q *CandidateQueue) Push(c Candidate) {
	if q.limit == 0 {
		return
	}
	if len(q.items) < q.limit {
		q.items = append(q.items, c)
		q.siftUp(len(q.items) - 1)
		return
	}
	if worse(q.items[0], c) {
		q.items[0] = c
		q.siftDown(0)
	}
}

// Ranked drains the queue and returns candidates best-first:
// descending score, ascending slot among ties. The queue is empty after.
func (q *CandidateQueue) Ranked() []Candidate {
	out := make([]Candidate, len(q.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = q.pop()
	}
	return out
}

func (q *CandidateQueue) pop() Candidate {
	n := len(q.items)
	root := q.items[0]
	last := q.items[n-1]
	q.items = q.items[:n-1]
	if n-1 > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return root
}

func (q *CandidateQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(q.items[i], q.items[p]) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *CandidateQueue) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		min := l
		if r := l + 1; r < n && worse(q.items[r], q.items[l]) {
			min = r
		}
		if !worse(q.items[min], q.items[i]) {
			return
		}
		q.items[i], q.items[min] = q.items[min], q.items[i]
		i = min
	}
}
