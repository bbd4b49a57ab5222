// Package stl decodes STL triangle meshes in both the binary and the ASCII
// flavour and writes binary STL through sdfx. Decoding rejects truncated
// input and non-finite coordinates so that downstream measurement only
// sees well-formed numbers.
package stl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/deadsy/sdfx/render"

	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

const (
	headerSize = 80
	facetSize  = 50
)

var (
	// ErrTruncated is returned when the input ends inside a record.
	ErrTruncated = errors.New("stl: truncated input")
	// ErrSyntax is returned for malformed ASCII STL.
	ErrSyntax = errors.New("stl: syntax error")
	// ErrNonFinite is returned when a vertex coordinate is NaN or infinite.
	ErrNonFinite = errors.New("stl: non-finite vertex coordinate")
)

// Decode reads a binary or ASCII STL mesh from r.
func Decode(r io.Reader) (*kernel.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("stl: read: %w", err)
	}
	if isASCII(data) {
		return decodeASCII(data)
	}
	return decodeBinary(data)
}

// isASCII reports whether data looks like ASCII STL. Some exporters write
// binary files whose header starts with "solid", so a "solid" prefix only
// counts when the size does not match the binary facet count.
func isASCII(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("solid")) {
		return false
	}
	if len(data) >= headerSize+4 {
		n := binary.LittleEndian.Uint32(data[headerSize:])
		if uint64(len(data)) == headerSize+4+uint64(n)*facetSize {
			return false
		}
	}
	return true
}

func decodeBinary(data []byte) (*kernel.Mesh, error) {
	if len(data) < headerSize+4 {
		return nil, fmt.Errorf("%w: %d byte header", ErrTruncated, len(data))
	}
	n := binary.LittleEndian.Uint32(data[headerSize:])
	body := data[headerSize+4:]
	if uint64(len(body)) < uint64(n)*facetSize {
		return nil, fmt.Errorf("%w: header declares %d facets, found %d", ErrTruncated, n, len(body)/facetSize)
	}

	m := &kernel.Mesh{
		Name:      headerName(data[:headerSize]),
		Triangles: make([]kernel.Triangle, n),
	}
	for i := range m.Triangles {
		rec := body[i*facetSize:]
		// skip the 12 byte normal
		off := 12
		for j := 0; j < 3; j++ {
			v := kernel.Point3{
				X: readFloat(rec[off:]),
				Y: readFloat(rec[off+4:]),
				Z: readFloat(rec[off+8:]),
			}
			if !finite(v) {
				return nil, fmt.Errorf("%w: facet %d vertex %d", ErrNonFinite, i, j)
			}
			m.Triangles[i][j] = v
			off += 12
		}
	}
	return m, nil
}

func readFloat(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

func headerName(h []byte) string {
	s := string(bytes.TrimRight(h, "\x00 "))
	if strings.HasPrefix(s, "solid") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "solid"))
	}
	return strings.TrimSpace(s)
}

func finite(v kernel.Point3) bool {
	for _, f := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ReadFile decodes the STL file at path. The mesh is named after the file.
func ReadFile(path string) (*kernel.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Name = filepath.Base(path)
	return m, nil
}

// WriteFile writes m to path as binary STL. Coordinates are narrowed to
// float32 and the header is left blank.
func WriteFile(path string, m *kernel.Mesh) error {
	if err := render.SaveSTL(path, m.SDF()); err != nil {
		return fmt.Errorf("stl: %w", err)
	}
	return nil
}
