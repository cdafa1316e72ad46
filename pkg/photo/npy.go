package photo

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sbinet/npyio"
	"github.com/sbinet/npyio/npz"

	"retrodetect/pkg/retrodetect"
)

// ImageMember is the npz member (or pickled dict key) holding the intensity
// array.
const ImageMember = "img"

// ReadNPY decodes a 2-D numpy array into a frame. A trailing singleton
// dimension is accepted; anything else with more than two axes is rejected.
func ReadNPY(r io.Reader) (*retrodetect.Frame, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading npy header: %w", err)
	}
	descr := rd.Header.Descr

	rows, cols, err := frameShape(descr.Shape)
	if err != nil {
		return nil, err
	}
	values, err := readNPYValues(rd, descr.Type, rows*cols)
	if err != nil {
		return nil, err
	}
	return newFrame(rows, cols, descr.Fortran, values), nil
}

// frameShape returns rows and columns of a 2-D (or rows×cols×1) shape.
func frameShape(shape []int) (int, int, error) {
	s := shape
	if len(s) == 3 && s[2] == 1 {
		s = s[:2]
	}
	if len(s) != 2 || s[0] < 1 || s[1] < 1 {
		return 0, 0, fmt.Errorf("array has shape %v, want 2-D", shape)
	}
	return s[0], s[1], nil
}

// newFrame lays values out row-major, transposing column-major input.
func newFrame(rows, cols int, fortran bool, values []float32) *retrodetect.Frame {
	f := retrodetect.NewFrame(cols, rows)
	if !fortran {
		copy(f.Pix, values)
		return f
	}
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			f.Pix[r*cols+c] = values[c*rows+r]
		}
	}
	return f
}

// readNPYValues reads n elements of the given dtype and widens them to float32.
func readNPYValues(rd *npyio.Reader, dtype string, n int) ([]float32, error) {
	var ptr any
	switch kind := strings.TrimLeft(dtype, "<>|="); kind {
	case "u1":
		v := make([]uint8, n)
		ptr = &v
	case "u2":
		v := make([]uint16, n)
		ptr = &v
	case "i2":
		v := make([]int16, n)
		ptr = &v
	case "i4":
		v := make([]int32, n)
		ptr = &v
	case "i8":
		v := make([]int64, n)
		ptr = &v
	case "f4":
		v := make([]float32, n)
		ptr = &v
	case "f8":
		v := make([]float64, n)
		ptr = &v
	default:
		return nil, fmt.Errorf("unsupported npy dtype %q", dtype)
	}
	if err := rd.Read(ptr); err != nil {
		return nil, fmt.Errorf("reading npy data: %w", err)
	}
	return widen(ptr)
}

// widen converts a slice (or pointer to a slice) of numeric values to float32.
func widen(data any) ([]float32, error) {
	switch v := data.(type) {
	case *[]uint8:
		return widenSlice(*v), nil
	case *[]uint16:
		return widenSlice(*v), nil
	case *[]int16:
		return widenSlice(*v), nil
	case *[]int32:
		return widenSlice(*v), nil
	case *[]int64:
		return widenSlice(*v), nil
	case *[]float32:
		return *v, nil
	case *[]float64:
		return widenSlice(*v), nil
	case []uint8:
		return widenSlice(v), nil
	case []int8:
		return widenSlice(v), nil
	case []uint16:
		return widenSlice(v), nil
	case []int16:
		return widenSlice(v), nil
	case []uint32:
		return widenSlice(v), nil
	case []int32:
		return widenSlice(v), nil
	case []uint64:
		return widenSlice(v), nil
	case []int64:
		return widenSlice(v), nil
	case []float32:
		return v, nil
	case []float64:
		return widenSlice(v), nil
	default:
		return nil, fmt.Errorf("unsupported array data %T", data)
	}
}

type number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float64
}

func widenSlice[T number](v []T) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// ReadNPZ decodes an npz archive. The ImageMember array becomes the photo's
// image; the other member names are listed under Meta["members"]. An archive
// without an image member yields a photo with a nil Img.
func ReadNPZ(data []byte, name string) (*retrodetect.Photo, error) {
	zr, err := npz.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening npz: %w", err)
	}
	defer zr.Close()

	p := &retrodetect.Photo{Name: name, Meta: make(map[string]string)}
	var others []string
	for _, key := range zr.Keys() {
		member := strings.TrimSuffix(key, ".npy")
		if member != ImageMember {
			others = append(others, member)
			continue
		}
		rc, err := zr.Open(key)
		if err != nil {
			return nil, fmt.Errorf("opening npz member %s: %w", key, err)
		}
		img, err := ReadNPY(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding npz member %s: %w", key, err)
		}
		p.Img = img
	}
	if len(others) > 0 {
		sort.Strings(others)
		p.Meta["members"] = strings.Join(others, ",")
	}
	return p, nil
}
