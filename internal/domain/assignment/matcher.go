package assignment

// Match finds a perfect matching over the zero cells of a reduced square
// matrix using augmenting paths (Kuhn's algorithm). Rows and columns are
// tried in ascending order, so the result is deterministic. The returned
// slice maps row -> column. When some row cannot be matched Match returns
// ErrMatchIncomplete and no partial mapping.
//
// Work is O(n^3) and recursion depth is bounded by n, which the slot clamp
// keeps at MaxSize.
func Match(m CostMatrix) ([]int, error) {
	n := len(m)
	km := &kuhn{
		cost:     m,
		rowToCol: filled(n, -1),
		colToRow: filled(n, -1),
		seen:     make([]bool, n),
	}
	matched := 0
	for row := 0; row < n; row++ {
		clear(km.seen)
		if km.augment(row) {
			matched++
		}
	}
	if matched < n {
		return nil, ErrMatchIncomplete
	}
	return km.rowToCol, nil
}

type kuhn struct {
	cost     CostMatrix
	rowToCol []int
	colToRow []int
	seen     []bool // columns visited during the current augmentation
}

func (k *kuhn) augment(row int) bool {
	for col, c := range k.cost[row] {
		if c != 0 || k.seen[col] {
			continue
		}
		k.seen[col] = true
		if owner := k.colToRow[col]; owner == -1 || k.augment(owner) {
			k.rowToCol[row] = col
			k.colToRow[col] = row
			return true
		}
	}
	return false
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
