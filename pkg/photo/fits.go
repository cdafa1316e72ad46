package photo

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"retrodetect/pkg/retrodetect"
)

const (
	fitsCardSize   = 80
	fitsBlockCards = 36

	// maxFITSPixels bounds the primary array read from a header, 16384×16384.
	maxFITSPixels = 1 << 28
)

// FITSHeader holds the parsed key-value cards of a FITS primary header.
type FITSHeader map[string]string

// Float returns the numeric value of key.
func (h FITSHeader) Float(key string) (float64, bool) {
	v, ok := h[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

// Int returns the integer value of key.
func (h FITSHeader) Int(key string) (int, bool) {
	v, ok := h[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

// ReadFITS decodes the primary HDU of a FITS file. Physical values
// (raw*BSCALE + BZERO) are returned unclamped.
func ReadFITS(r io.Reader) (*retrodetect.Frame, FITSHeader, error) {
	header, err := readFITSHeader(r)
	if err != nil {
		return nil, nil, err
	}

	naxis, _ := header.Int("NAXIS")
	width, _ := header.Int("NAXIS1")
	height, _ := header.Int("NAXIS2")
	if naxis < 2 || width < 1 || height < 1 {
		return nil, nil, fmt.Errorf("invalid FITS: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", naxis, width, height)
	}
	if width > maxFITSPixels/height {
		return nil, nil, fmt.Errorf("FITS image %dx%d too large", width, height)
	}
	bitpix, _ := header.Int("BITPIX")
	bzero, ok := header.Float("BZERO")
	if !ok {
		bzero = 0
	}
	bscale, ok := header.Float("BSCALE")
	if !ok {
		bscale = 1
	}

	n := width * height
	bytesPer := abs(bitpix) / 8
	if bytesPer == 0 {
		return nil, nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}
	raw := make([]byte, n*bytesPer)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, fmt.Errorf("reading %d-bit pixel data: %w", bitpix, err)
	}

	f := retrodetect.NewFrame(width, height)
	for i := 0; i < n; i++ {
		var v float64
		switch bitpix {
		case 8:
			v = float64(raw[i])
		case 16:
			v = float64(int16(binary.BigEndian.Uint16(raw[i*2:])))
		case 32:
			v = float64(int32(binary.BigEndian.Uint32(raw[i*4:])))
		case -32:
			v = float64(math.Float32frombits(binary.BigEndian.Uint32(raw[i*4:])))
		case -64:
			v = math.Float64frombits(binary.BigEndian.Uint64(raw[i*8:]))
		default:
			return nil, nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
		}
		f.Pix[i] = float32(v*bscale + bzero)
	}
	return f, header, nil
}

func readFITSHeader(r io.Reader) (FITSHeader, error) {
	header := make(FITSHeader)
	card := make([]byte, fitsCardSize)

	for {
		for i := 0; i < fitsBlockCards; i++ {
			if _, err := io.ReadFull(r, card); err != nil {
				return nil, fmt.Errorf("reading FITS header record: %w", err)
			}
			record := string(card)
			keyword := strings.TrimSpace(record[:8])

			if keyword == "END" {
				// Skip the rest of the header block.
				if remaining := fitsBlockCards - 1 - i; remaining > 0 {
					if _, err := io.CopyN(io.Discard, r, int64(remaining*fitsCardSize)); err != nil {
						return nil, fmt.Errorf("skipping FITS header padding: %w", err)
					}
				}
				return header, nil
			}

			if record[8] == '=' && record[9] == ' ' {
				raw := strings.TrimSpace(strings.SplitN(record[10:], "/", 2)[0])
				if v := parseFITSValue(raw); keyword != "" && v != "" {
					header[strings.ToUpper(keyword)] = v
				}
			}
		}
	}
}

func parseFITSValue(raw string) string {
	switch {
	case raw == "":
		return ""
	case raw == "T":
		return "True"
	case raw == "F":
		return "False"
	case strings.HasPrefix(raw, "'"):
		if end := strings.LastIndex(raw, "'"); end > 0 {
			return strings.TrimRight(raw[1:end], " ")
		}
		return strings.TrimLeft(strings.TrimRight(raw, " "), "'")
	}
	return raw
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
