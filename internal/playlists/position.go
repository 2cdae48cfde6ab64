package playlists

import "slices"

// block is a set of playlist positions that move together.
type block struct {
	at []int // sorted, unique
}

func newBlock(positions []int) block {
	at := slices.Clone(positions)
	slices.Sort(at)
	return block{at: slices.Compact(at)}
}

// within reports whether every position indexes a list of length n.
func (b block) within(n int) bool {
	return len(b.at) > 0 && b.at[0] >= 0 && b.at[len(b.at)-1] < n
}

// clamp limits delta so the block stays inside a list of length n.
func (b block) clamp(delta, n int) int {
	if len(b.at) == 0 {
		return 0
	}
	return max(-b.at[0], min(delta, n-1-b.at[len(b.at)-1]))
}

// shift returns ids with the block moved by delta. Entries outside the
// block keep their relative order in the slots left over.
func (b block) shift(ids []string, delta int) []string {
	out := make([]string, len(ids))
	taken := make([]bool, len(ids))
	for _, pos := range b.at {
		out[pos+delta] = ids[pos]
		taken[pos+delta] = true
	}

	slot := 0
	for i, id := range ids {
		if _, in := slices.BinarySearch(b.at, i); in {
			continue
		}
		for taken[slot] {
			slot++
		}
		out[slot] = id
		slot++
	}
	return out
}

func offset(positions []int, delta int) []int {
	out := make([]int, len(positions))
	for i, p := range positions {
		out[i] = p + delta
	}
	return out
}
