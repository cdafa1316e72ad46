package photo

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
	"github.com/sbinet/npyio/npy"

	"retrodetect/pkg/retrodetect"
)

// ReadPickle decodes a pickled frame record: a dict whose ImageMember key
// holds a numpy array. A record without an array under that key yields a
// photo with a nil Img. The remaining keys are listed under Meta["members"].
func ReadPickle(data []byte, name string) (*retrodetect.Photo, error) {
	u := pickle.NewUnpickler(bytes.NewReader(data))
	u.FindClass = findClass
	v, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("unpickling %s: %w", name, err)
	}
	dict, ok := v.(*types.Dict)
	if !ok {
		return nil, fmt.Errorf("pickled frame is %T, want dict", v)
	}

	p := &retrodetect.Photo{Name: name, Meta: make(map[string]string)}
	var others []string
	for _, k := range dict.Keys() {
		if key, ok := k.(string); ok && key != ImageMember {
			others = append(others, key)
		}
	}
	if len(others) > 0 {
		sort.Strings(others)
		p.Meta["members"] = strings.Join(others, ",")
	}

	v, _ = dict.Get(ImageMember)
	arr, ok := v.(*npy.Array)
	if !ok {
		return p, nil
	}
	img, err := arrayFrame(arr)
	if err != nil {
		return nil, fmt.Errorf("decoding %s[%q]: %w", name, ImageMember, err)
	}
	p.Img = img
	return p, nil
}

// findClass resolves the numpy classes through npy.ClassLoader. Numpy 2
// moved the core module to numpy._core. Anything else becomes an opaque
// object so records carrying timestamps or other values still load.
func findClass(module, name string) (any, error) {
	if strings.HasPrefix(module, "numpy._core") {
		module = "numpy.core" + strings.TrimPrefix(module, "numpy._core")
	}
	if c, err := npy.ClassLoader(module, name); err == nil {
		return c, nil
	}
	return &opaqueClass{types.NewGenericClass(module, name)}, nil
}

// opaqueClass keeps unknown pickled objects as generic values.
type opaqueClass struct {
	*types.GenericClass
}

func (c *opaqueClass) Call(args ...any) (any, error) {
	return c.PyNew(args...)
}

func arrayFrame(arr *npy.Array) (*retrodetect.Frame, error) {
	rows, cols, err := frameShape(arr.Shape())
	if err != nil {
		return nil, err
	}
	values, err := widen(arr.Data())
	if err != nil {
		return nil, err
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("array holds %d values, shape %v", len(values), arr.Shape())
	}
	return newFrame(rows, cols, arr.Fortran(), values), nil
}
