// Package samples reads raw IF sample windows from capture files.
package samples

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrUnknownFormat is returned for an unsupported format tag.
	ErrUnknownFormat = errors.New("unknown sample file format")
	// ErrShortRead is returned with the partial buffer when the file ends
	// before the requested window.
	ErrShortRead = errors.New("sample file shorter than requested window")
)

// Format tags.
const (
	FormatInt8    = "int8"
	Format1Bit    = "1bit"
	Format1BitRev = "1bitrev"
)

// decoder describes how many samples one byte carries and how to expand it.
type decoder struct {
	perByte int
	decode  func(dst []int8, src []byte)
}

var decoders = map[string]decoder{
	FormatInt8:    {perByte: 1, decode: decodeInt8},
	Format1Bit:    {perByte: 8, decode: decodeBits(true)},
	Format1BitRev: {perByte: 8, decode: decodeBits(false)},
}

// Formats lists the supported format tags.
func Formats() []string {
	return []string{FormatInt8, Format1Bit, Format1BitRev}
}

// Load reads count samples from path starting byteOffset bytes into the file.
// The file is opened read-only and closed before Load returns. If the file
// ends early, the decoded samples are returned together with ErrShortRead.
func Load(path string, count int, byteOffset int64, format string) ([]int8, error) {
	dec, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if count <= 0 {
		return []int8{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(byteOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to offset %d: %w", byteOffset, err)
	}

	nBytes := (count + dec.perByte - 1) / dec.perByte
	raw := make([]byte, nBytes)
	n, err := io.ReadFull(f, raw)
	short := false
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		short = true
	case err != nil:
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}

	out := make([]int8, n*dec.perByte)
	dec.decode(out, raw[:n])
	if len(out) > count {
		out = out[:count]
	}
	if short {
		return out, fmt.Errorf("%w: got %d of %d samples", ErrShortRead, len(out), count)
	}
	return out, nil
}

func decodeInt8(dst []int8, src []byte) {
	for i, b := range src {
		dst[i] = int8(b)
	}
}

// decodeBits maps bit 1 to +1 and bit 0 to -1.
func decodeBits(msbFirst bool) func(dst []int8, src []byte) {
	return func(dst []int8, src []byte) {
		for i, b := range src {
			for k := 0; k < 8; k++ {
				shift := uint(k)
				if msbFirst {
					shift = uint(7 - k)
				}
				if (b>>shift)&1 == 1 {
					dst[i*8+k] = 1
				} else {
					dst[i*8+k] = -1
				}
			}
		}
	}
}
