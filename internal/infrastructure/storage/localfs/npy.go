package localfs

import (
	"context"
	"fmt"
	"io"

	"github.com/sbinet/npyio"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

func (s *Storage) readMatrix(ctx context.Context, name string) (domain.Matrix, error) {
	f, err := s.Open(ctx, embeddingsKey(name))
	if err != nil {
		return domain.Matrix{}, domain.WrapError(domain.ErrStoreLoad, "load "+name+" embeddings", err)
	}
	defer f.Close()

	m, err := decodeMatrix(f)
	if err != nil {
		return domain.Matrix{}, domain.WrapError(domain.ErrStoreLoad, "load "+name+" embeddings", err)
	}
	return m, nil
}

// decodeMatrix reads a C-ordered 2-D float32 or float64 .npy array.
func decodeMatrix(r io.Reader) (domain.Matrix, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return domain.Matrix{}, fmt.Errorf("read npy header: %w", err)
	}
	hdr := npy.Header
	if hdr.Descr.Fortran {
		return domain.Matrix{}, fmt.Errorf("fortran-ordered arrays are not supported")
	}

	var rows, dim int
	switch len(hdr.Descr.Shape) {
	case 1:
		// A single vector saved without a batch axis.
		rows, dim = 1, hdr.Descr.Shape[0]
		if dim == 0 {
			rows = 0
		}
	case 2:
		rows, dim = hdr.Descr.Shape[0], hdr.Descr.Shape[1]
	default:
		return domain.Matrix{}, fmt.Errorf("expected 2-d array, got shape %v", hdr.Descr.Shape)
	}

	var data []float32
	switch hdr.Descr.Type {
	case "<f4", "f4", "|f4":
		if err := npy.Read(&data); err != nil {
			return domain.Matrix{}, fmt.Errorf("read float32 data: %w", err)
		}
	case "<f8", "f8", "|f8":
		var wide []float64
		if err := npy.Read(&wide); err != nil {
			return domain.Matrix{}, fmt.Errorf("read float64 data: %w", err)
		}
		data = make([]float32, len(wide))
		for i, v := range wide {
			data[i] = float32(v)
		}
	default:
		return domain.Matrix{}, fmt.Errorf("unsupported dtype %q", hdr.Descr.Type)
	}

	if len(data) != rows*dim {
		return domain.Matrix{}, fmt.Errorf("npy data has %d values for shape %dx%d", len(data), rows, dim)
	}
	return domain.Matrix{Rows: rows, Dim: dim, Data: data}, nil
}
