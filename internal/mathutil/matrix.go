package mathutil

// Vec is a float64 vector.
type Vec = []float64

// Mat is a 2D float64 matrix stored as row-major [][]float64.
type Mat = [][]float64

// NewMat creates a rows x cols matrix initialized to zero.
func NewMat(rows, cols int) Mat {
	m := make(Mat, rows)
	data := make([]float64, rows*cols)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols]
	}
	return m
}

// NewMatFill creates a rows x cols matrix filled with val.
func NewMatFill(rows, cols int, val float64) Mat {
	m := NewMat(rows, cols)
	for i := range m {
		for j := range m[i] {
			m[i][j] = val
		}
	}
	return m
}

// CopyMat returns a deep copy of m.
func CopyMat(m Mat) Mat {
	if len(m) == 0 {
		return nil
	}
	c := NewMat(len(m), len(m[0]))
	for i := range m {
		copy(c[i], m[i])
	}
	return c
}

// FillMat fills all elements of an existing matrix with val.
func FillMat(m Mat, val float64) {
	for i := range m {
		for j := range m[i] {
			m[i][j] = val
		}
	}
}

// SumVec returns the sum of the elements of v.
func SumVec(v Vec) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum
}
