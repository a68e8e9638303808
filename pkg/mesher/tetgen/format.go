package tetgen

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/chazu/cardiomesh/pkg/volume"
	"gonum.org/v1/gonum/spatial/r3"
)

// WriteSmesh writes m as a TetGen .smesh piecewise linear complex. Points
// are numbered from 1 and every facet carries its face label as boundary
// marker.
func WriteSmesh(w io.Writer, m *surface.Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# node list\n%d 3 0 0\n", len(m.Points))
	for i, p := range m.Points {
		fmt.Fprintf(bw, "%d %s %s %s\n", i+1, ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	fmt.Fprintf(bw, "# facet list\n%d 1\n", len(m.Faces))
	for i, f := range m.Faces {
		fmt.Fprintf(bw, "3 %d %d %d %d\n", f[0]+1, f[1]+1, f[2]+1, m.Labels[i])
	}
	fmt.Fprintf(bw, "# holes\n0\n# regions\n0\n")
	return bw.Flush()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// table reads the whitespace separated records of a TetGen output file,
// skipping comments and blank lines. The first record is the header.
func table(r io.Reader) ([][]string, error) {
	var rows [][]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			rows = append(rows, fields)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tetgen: empty file: %w", surface.ErrMalformed)
	}
	return rows, nil
}

func atoi(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("tetgen: %q: %w", s, surface.ErrMalformed)
	}
	return v, nil
}

// ReadNodes parses a .node file. It returns the points in file order and
// the index of the first point.
func ReadNodes(r io.Reader) ([]r3.Vec, int, error) {
	rows, err := table(r)
	if err != nil {
		return nil, 0, err
	}
	n, err := atoi(rows[0][0])
	if err != nil {
		return nil, 0, err
	}
	if len(rows)-1 < n {
		return nil, 0, fmt.Errorf("tetgen: %d of %d nodes: %w", len(rows)-1, n, surface.ErrMalformed)
	}
	pts := make([]r3.Vec, n)
	first := 0
	for i := 0; i < n; i++ {
		row := rows[i+1]
		if len(row) < 4 {
			return nil, 0, fmt.Errorf("tetgen: node record %d: %w", i, surface.ErrMalformed)
		}
		if i == 0 {
			if first, err = atoi(row[0]); err != nil {
				return nil, 0, err
			}
		}
		var xyz [3]float64
		for j := range xyz {
			if xyz[j], err = strconv.ParseFloat(row[j+1], 64); err != nil {
				return nil, 0, fmt.Errorf("tetgen: node %d: %w", i, surface.ErrMalformed)
			}
		}
		pts[i] = r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	}
	return pts, first, nil
}

// readCells parses .ele and .face records of k point ids, shifting them
// by first. When a trailing integer column exists it is returned too.
func readCells(r io.Reader, k, first int) ([][]int, []int, error) {
	rows, err := table(r)
	if err != nil {
		return nil, nil, err
	}
	n, err := atoi(rows[0][0])
	if err != nil {
		return nil, nil, err
	}
	if len(rows)-1 < n {
		return nil, nil, fmt.Errorf("tetgen: %d of %d records: %w", len(rows)-1, n, surface.ErrMalformed)
	}
	cells := make([][]int, n)
	var markers []int
	for i := 0; i < n; i++ {
		row := rows[i+1]
		if len(row) < k+1 {
			return nil, nil, fmt.Errorf("tetgen: record %d: %w", i, surface.ErrMalformed)
		}
		c := make([]int, k)
		for j := range c {
			v, err := atoi(row[j+1])
			if err != nil {
				return nil, nil, err
			}
			c[j] = v - first
		}
		cells[i] = c
		if len(row) > k+1 {
			v, err := strconv.ParseFloat(row[k+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("tetgen: marker of record %d: %w", i, surface.ErrMalformed)
			}
			markers = append(markers, int(v))
		}
	}
	if len(markers) != n {
		markers = nil
	}
	return cells, markers, nil
}

// ReadElements parses a .ele file of linear tetrahedra.
func ReadElements(r io.Reader, pts []r3.Vec, first int) (*volume.Mesh, error) {
	cells, regions, err := readCells(r, 4, first)
	if err != nil {
		return nil, err
	}
	v := &volume.Mesh{Points: pts, Tets: make([]volume.Tet, len(cells)), Regions: regions}
	for i, c := range cells {
		v.Tets[i] = volume.Tet{c[0], c[1], c[2], c[3]}
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("tetgen: %w", err)
	}
	return v, nil
}

// ReadFaces parses a .face file into a surface over pts, labelled by the
// boundary markers. Points no face uses are dropped.
func ReadFaces(r io.Reader, pts []r3.Vec, first int) (*surface.Mesh, error) {
	cells, markers, err := readCells(r, 3, first)
	if err != nil {
		return nil, err
	}
	faces := make([]surface.Face, len(cells))
	for i, c := range cells {
		faces[i] = surface.Face{c[0], c[1], c[2]}
	}
	m, err := surface.New(pts, faces, markers)
	if err != nil {
		return nil, fmt.Errorf("tetgen: %w", err)
	}
	compact, _ := surface.Compact(m)
	return compact, nil
}
