package assignment

// CostMatrix is a square matrix of non-negative integer costs indexed
// [candidate][slot].
type CostMatrix [][]int

// BuildCostMatrix fills entry [i][j] with |weights[i] - targets[j]|.
func BuildCostMatrix(weights, targets []int) CostMatrix {
	m := make(CostMatrix, len(weights))
	for i, w := range weights {
		row := make([]int, len(targets))
		for j, t := range targets {
			row[j] = abs(w - t)
		}
		m[i] = row
	}
	return m
}

// Size returns the number of rows.
func (m CostMatrix) Size() int { return len(m) }

// Reduce subtracts every row's minimum from that row, then every column's
// minimum from that column. Afterwards each row and column holds a zero.
func (m CostMatrix) Reduce() {
	n := len(m)
	if n == 0 {
		return
	}
	for _, row := range m {
		rmin := row[0]
		for _, c := range row[1:] {
			rmin = min(rmin, c)
		}
		for j := range row {
			row[j] -= rmin
		}
	}
	cols := len(m[0])
	for j := 0; j < cols; j++ {
		cmin := m[0][j]
		for i := 1; i < n; i++ {
			cmin = min(cmin, m[i][j])
		}
		for i := 0; i < n; i++ {
			m[i][j] -= cmin
		}
	}
}

// Clone returns a deep copy.
func (m CostMatrix) Clone() CostMatrix {
	out := make(CostMatrix, len(m))
	for i, row := range m {
		out[i] = append([]int(nil), row...)
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
