package retrodetect

import "fmt"

// BlockMax is a fast approximate dilation: each output pixel is roughly the
// maximum of the square of side (1+2*(offset-1))*blockSize centred on it.
//
// The frame is split into blockSize×blockSize blocks (trailing partial blocks
// are dropped) and each block is reduced to its maximum. The coarse grid is
// then dilated with (2*offset-1)² shifted maxima, expanded back to full
// resolution and placed blockSize*offset pixels from the top-left corner.
// Everything outside the placed region is zero, so callers must tolerate a
// zero border. Frames too small for the window produce an all-zero result.
func BlockMax(src *Frame, blockSize, offset int) (*Frame, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("block size must be at least 1, got %d", blockSize)
	}
	if offset < 1 {
		return nil, fmt.Errorf("offset must be at least 1, got %d", offset)
	}
	m := FrameToMat(src)
	defer m.Close()
	out := blockMax(m, blockSize, offset)
	defer out.Close()
	return MatToFrame(out), nil
}

func blockMax(src Mat, blockSize, offset int) Mat {
	rows, cols := src.Rows(), src.Cols()
	dst := NewMatWithSize(rows, cols)
	dst.SetTo(0)

	maxes, k, l := blockMaxima(src.DataFloat32(), rows, cols, blockSize)

	// Each shifted slice is [d+offset, d+n-offset) for d in [-(offset-1), offset-1].
	innerRows := k - 2*offset
	innerCols := l - 2*offset
	if innerRows <= 0 || innerCols <= 0 {
		return dst
	}

	dilated := make([]float32, innerRows*innerCols)
	first := true
	for dr := -offset + 1; dr < offset; dr++ {
		for dc := -offset + 1; dc < offset; dc++ {
			for i := 0; i < innerRows; i++ {
				srcOff := (i+dr+offset)*l + dc + offset
				dstOff := i * innerCols
				for j := 0; j < innerCols; j++ {
					v := maxes[srcOff+j]
					if first || v > dilated[dstOff+j] {
						dilated[dstOff+j] = v
					}
				}
			}
			first = false
		}
	}

	// Replicate each coarse value over its block footprint.
	data := dst.DataFloat32()
	origin := blockSize * offset
	for i := 0; i < innerRows; i++ {
		for by := 0; by < blockSize; by++ {
			rowOff := (origin+i*blockSize+by)*cols + origin
			for j := 0; j < innerCols; j++ {
				v := dilated[i*innerCols+j]
				for bx := 0; bx < blockSize; bx++ {
					data[rowOff+j*blockSize+bx] = v
				}
			}
		}
	}
	return dst
}

// blockMaxima reduces every complete blockSize×blockSize block to its maximum,
// returning the coarse grid and its dimensions.
func blockMaxima(data []float32, rows, cols, blockSize int) ([]float32, int, int) {
	k := rows / blockSize
	l := cols / blockSize
	if blockSize == 1 {
		return data[:rows*cols], k, l
	}

	maxes := make([]float32, k*l)
	for i := 0; i < k; i++ {
		for j := 0; j < l; j++ {
			m := data[i*blockSize*cols+j*blockSize]
			for by := 0; by < blockSize; by++ {
				rowOff := (i*blockSize+by)*cols + j*blockSize
				for bx := 0; bx < blockSize; bx++ {
					if v := data[rowOff+bx]; v > m {
						m = v
					}
				}
			}
			maxes[i*l+j] = m
		}
	}
	return maxes, k, l
}

// dilate applies either the block approximation or a true square max filter
// of the same nominal window.
func dilate(src Mat, p *Params) Mat {
	if !p.ExactDilation {
		return blockMax(src, p.BlockSize, p.BlockOffset)
	}
	dst := NewMat()
	morphDilateRect(src, &dst, (1+2*(p.BlockOffset-1))*p.BlockSize)
	return dst
}
