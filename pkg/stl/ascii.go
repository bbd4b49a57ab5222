package stl

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

// asciiParser walks whitespace separated tokens of an ASCII STL body.
type asciiParser struct {
	sc   *bufio.Scanner
	line int
	toks []string
}

func (p *asciiParser) next() (string, bool) {
	for len(p.toks) == 0 {
		if !p.sc.Scan() {
			return "", false
		}
		p.line++
		p.toks = strings.Fields(p.sc.Text())
	}
	t := p.toks[0]
	p.toks = p.toks[1:]
	return t, true
}

func (p *asciiParser) restOfLine() string {
	s := strings.Join(p.toks, " ")
	p.toks = nil
	return s
}

func (p *asciiParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, p.line, fmt.Sprintf(format, args...))
}

func (p *asciiParser) expect(words ...string) error {
	for _, w := range words {
		t, ok := p.next()
		if !ok {
			return fmt.Errorf("%w: line %d: expected %q", ErrTruncated, p.line, w)
		}
		if !strings.EqualFold(t, w) {
			return p.errorf("expected %q, got %q", w, t)
		}
	}
	return nil
}

func (p *asciiParser) float() (float64, error) {
	t, ok := p.next()
	if !ok {
		return 0, fmt.Errorf("%w: line %d: expected number", ErrTruncated, p.line)
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, p.errorf("bad number %q", t)
	}
	return f, nil
}

func decodeASCII(data []byte) (*kernel.Mesh, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	p := &asciiParser{sc: sc}

	if err := p.expect("solid"); err != nil {
		return nil, err
	}
	m := &kernel.Mesh{Name: strings.TrimSpace(p.restOfLine())}

	for {
		t, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("%w: missing endsolid", ErrTruncated)
		}
		switch strings.ToLower(t) {
		case "endsolid":
			return m, nil
		case "facet":
			tri, err := p.facet(len(m.Triangles))
			if err != nil {
				return nil, err
			}
			m.Triangles = append(m.Triangles, tri)
		default:
			return nil, p.errorf("unexpected %q", t)
		}
	}
}

// facet parses one facet after its leading "facet" keyword.
func (p *asciiParser) facet(index int) (kernel.Triangle, error) {
	var tri kernel.Triangle
	if err := p.expect("normal"); err != nil {
		return tri, err
	}
	for i := 0; i < 3; i++ {
		if _, err := p.float(); err != nil {
			return tri, err
		}
	}
	if err := p.expect("outer", "loop"); err != nil {
		return tri, err
	}
	for j := 0; j < 3; j++ {
		if err := p.expect("vertex"); err != nil {
			return tri, err
		}
		var c [3]float64
		for k := range c {
			f, err := p.float()
			if err != nil {
				return tri, err
			}
			c[k] = f
		}
		v := kernel.Point3{X: c[0], Y: c[1], Z: c[2]}
		if !finite(v) {
			return tri, fmt.Errorf("%w: facet %d vertex %d (line %d)", ErrNonFinite, index, j, p.line)
		}
		tri[j] = v
	}
	if err := p.expect("endloop", "endfacet"); err != nil {
		return tri, err
	}
	return tri, nil
}
