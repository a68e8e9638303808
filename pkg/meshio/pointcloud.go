package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// EncodePointCloud writes pts in the Elastix point-set text format: the
// keyword "point", the point count, then one "x y z" line per point.
func EncodePointCloud(w io.Writer, pts []r3.Vec) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "point\n%d\n", len(pts))
	for _, p := range pts {
		fmt.Fprintf(bw, "%s %s %s\n", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	return bw.Flush()
}

// WritePointCloud writes pts to path in the Elastix point-set format.
func WritePointCloud(path string, pts []r3.Vec) error {
	return writeFile(path, func(w io.Writer) error { return EncodePointCloud(w, pts) })
}

// DecodePointCloud reads an Elastix point set. Both the "point" and
// "index" headers are accepted; coordinates are returned as written.
func DecodePointCloud(r io.Reader) ([]r3.Vec, error) {
	sc := bufio.NewScanner(r)
	var fields []string
	for sc.Scan() {
		fields = append(fields, strings.Fields(sc.Text())...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	if len(fields) < 2 || (fields[0] != "point" && fields[0] != "index") {
		return nil, fmt.Errorf("meshio: missing point-set header")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("meshio: point count: %w", err)
	}
	fields = fields[2:]
	if len(fields) != 3*n {
		return nil, fmt.Errorf("meshio: %d coordinates for %d points", len(fields), n)
	}
	pts := make([]r3.Vec, n)
	for i := range pts {
		var xyz [3]float64
		for j := range xyz {
			if xyz[j], err = strconv.ParseFloat(fields[3*i+j], 64); err != nil {
				return nil, fmt.Errorf("meshio: point %d: %w", i, err)
			}
		}
		pts[i] = r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	}
	return pts, nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
