package game

// moveWindow holds a player's most recent placements, oldest first.
type moveWindow struct {
	moves [MaxMarks + 1]int
	n     int
}

// push records index. Once more than MaxMarks moves are held, the oldest
// is dropped and returned.
func (w *moveWindow) push(index int) (int, bool) {
	w.moves[w.n] = index
	w.n++
	if w.n <= MaxMarks {
		return 0, false
	}
	evicted := w.moves[0]
	copy(w.moves[:], w.moves[1:w.n])
	w.n--
	return evicted, true
}

func (w *moveWindow) indices() []int {
	out := make([]int, w.n)
	copy(out, w.moves[:w.n])
	return out
}

func (w *moveWindow) Len() int {
	return w.n
}
