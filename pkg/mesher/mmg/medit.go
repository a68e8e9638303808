package mmg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/cardiomesh/pkg/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

// WriteMedit writes m as an ASCII Medit mesh. Triangle references carry
// the face labels so they survive remeshing.
func WriteMedit(w io.Writer, m *surface.Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "MeshVersionFormatted 2\n\nDimension 3\n\nVertices\n%d\n", len(m.Points))
	for _, p := range m.Points {
		fmt.Fprintf(bw, "%s %s %s 0\n", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	fmt.Fprintf(bw, "\nTriangles\n%d\n", len(m.Faces))
	for i, f := range m.Faces {
		fmt.Fprintf(bw, "%d %d %d %d\n", f[0]+1, f[1]+1, f[2]+1, m.Labels[i])
	}
	fmt.Fprintf(bw, "\nEnd\n")
	return bw.Flush()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// sectionWidth is the number of values per entry of the Medit sections
// that are skipped when reading.
var sectionWidth = map[string]int{
	"Edges":             3,
	"Corners":           1,
	"RequiredVertices":  1,
	"Ridges":            1,
	"RequiredEdges":     1,
	"RequiredTriangles": 1,
	"Normals":           3,
	"NormalAtVertices":  2,
	"Tangents":          3,
	"TangentAtVertices": 2,
	"Quadrilaterals":    5,
	"Tetrahedra":        5,
}

// ReadMedit reads the vertices and triangles of an ASCII Medit mesh.
// Triangle references become face labels.
func ReadMedit(r io.Reader) (*surface.Mesh, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var tokens []string
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		tokens = append(tokens, strings.Fields(line)...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mmg: %w", err)
	}

	pos := 0
	next := func() (string, error) {
		if pos >= len(tokens) {
			return "", fmt.Errorf("mmg: unexpected end of mesh: %w", surface.ErrMalformed)
		}
		pos++
		return tokens[pos-1], nil
	}
	nextInt := func() (int, error) {
		tok, err := next()
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return 0, fmt.Errorf("mmg: %q: %w", tok, surface.ErrMalformed)
		}
		return v, nil
	}
	nextFloat := func() (float64, error) {
		tok, err := next()
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, fmt.Errorf("mmg: %q: %w", tok, surface.ErrMalformed)
		}
		return v, nil
	}

	var pts []r3.Vec
	var faces []surface.Face
	var labels []int
	for pos < len(tokens) {
		kw, _ := next()
		switch kw {
		case "End":
			pos = len(tokens)
		case "MeshVersionFormatted", "Dimension":
			if _, err := next(); err != nil {
				return nil, err
			}
		case "Vertices":
			n, err := nextInt()
			if err != nil {
				return nil, err
			}
			pts = make([]r3.Vec, n)
			for i := range pts {
				var xyz [3]float64
				for j := range xyz {
					if xyz[j], err = nextFloat(); err != nil {
						return nil, err
					}
				}
				if _, err := next(); err != nil {
					return nil, err
				}
				pts[i] = r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
			}
		case "Triangles":
			n, err := nextInt()
			if err != nil {
				return nil, err
			}
			faces = make([]surface.Face, n)
			labels = make([]int, n)
			for i := range faces {
				for j := 0; j < 3; j++ {
					v, err := nextInt()
					if err != nil {
						return nil, err
					}
					faces[i][j] = v - 1
				}
				if labels[i], err = nextInt(); err != nil {
					return nil, err
				}
			}
		default:
			width, ok := sectionWidth[kw]
			if !ok {
				return nil, fmt.Errorf("mmg: unknown section %q: %w", kw, surface.ErrMalformed)
			}
			n, err := nextInt()
			if err != nil {
				return nil, err
			}
			pos += n * width
		}
	}
	m, err := surface.New(pts, faces, labels)
	if err != nil {
		return nil, fmt.Errorf("mmg: %w", err)
	}
	return m, nil
}
