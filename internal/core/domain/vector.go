package domain

// Matrix is a dense row-major matrix of embedding vectors. Row i belongs to
// the record at position i of the parallel id list.
type Matrix struct {
	Rows int
	Dim  int
	Data []float32
}

func NewMatrix(rows [][]float32) Matrix {
	if len(rows) == 0 {
		return Matrix{}
	}
	dim := len(rows[0])
	data := make([]float32, 0, len(rows)*dim)
	for _, row := range rows {
		data = append(data, row...)
	}
	return Matrix{Rows: len(rows), Dim: dim, Data: data}
}

func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Dim : (i+1)*m.Dim]
}
