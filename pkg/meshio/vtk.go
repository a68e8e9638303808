// Package meshio reads and writes the mesh files exchanged with solvers
// and external meshers: VTK XML PolyData (.vtp) and UnstructuredGrid
// (.vtu) in ASCII encoding, and Elastix point clouds.
package meshio

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/chazu/cardiomesh/pkg/volume"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// RegionAttribute names the per-tetrahedron region array of a grid.
	RegionAttribute = "ModelRegionID"
	// NodeAttribute names the 1-based global point id array of a grid.
	NodeAttribute = "GlobalNodeID"

	vtkTetra = 10
)

type vtkFile struct {
	XMLName   xml.Name   `xml:"VTKFile"`
	Type      string     `xml:"type,attr"`
	Version   string     `xml:"version,attr"`
	ByteOrder string     `xml:"byte_order,attr"`
	PolyData  *piecesXML `xml:"PolyData,omitempty"`
	Grid      *piecesXML `xml:"UnstructuredGrid,omitempty"`
}

type piecesXML struct {
	Piece pieceXML `xml:"Piece"`
}

type pieceXML struct {
	NumberOfPoints int        `xml:"NumberOfPoints,attr"`
	NumberOfPolys  *int       `xml:"NumberOfPolys,attr,omitempty"`
	NumberOfCells  *int       `xml:"NumberOfCells,attr,omitempty"`
	PointData      *arraysXML `xml:"PointData,omitempty"`
	CellData       *arraysXML `xml:"CellData,omitempty"`
	Points         arraysXML  `xml:"Points"`
	Polys          *arraysXML `xml:"Polys,omitempty"`
	Cells          *arraysXML `xml:"Cells,omitempty"`
}

type arraysXML struct {
	Arrays []dataArray `xml:"DataArray"`
}

type dataArray struct {
	Type       string `xml:"type,attr"`
	Name       string `xml:"Name,attr,omitempty"`
	Components int    `xml:"NumberOfComponents,attr,omitempty"`
	Format     string `xml:"format,attr"`
	Data       string `xml:",chardata"`
}

func (a *arraysXML) find(name string) (dataArray, bool) {
	if a == nil {
		return dataArray{}, false
	}
	for _, d := range a.Arrays {
		if d.Name == name {
			return d, true
		}
	}
	return dataArray{}, false
}

func floatArray(name string, comps int, vals []float64) dataArray {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return dataArray{Type: "Float64", Name: name, Components: comps, Format: "ascii", Data: b.String()}
}

func intArray(typ, name string, vals []int) dataArray {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return dataArray{Type: typ, Name: name, Format: "ascii", Data: b.String()}
}

func pointArray(pts []r3.Vec) dataArray {
	flat := make([]float64, 0, 3*len(pts))
	for _, p := range pts {
		flat = append(flat, p.X, p.Y, p.Z)
	}
	return floatArray("Points", 3, flat)
}

// EncodePolyData writes m as a VTK XML PolyData document with the face
// labels in the ModelFaceID cell array.
func EncodePolyData(w io.Writer, m *surface.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	conn := make([]int, 0, 3*len(m.Faces))
	offsets := make([]int, len(m.Faces))
	for i, f := range m.Faces {
		conn = append(conn, f[0], f[1], f[2])
		offsets[i] = 3 * (i + 1)
	}
	n := len(m.Faces)
	doc := vtkFile{
		Type: "PolyData", Version: "1.0", ByteOrder: "LittleEndian",
		PolyData: &piecesXML{Piece: pieceXML{
			NumberOfPoints: len(m.Points),
			NumberOfPolys:  &n,
			CellData:       &arraysXML{Arrays: []dataArray{intArray("Int32", surface.RegionAttribute, m.Labels)}},
			Points:         arraysXML{Arrays: []dataArray{pointArray(m.Points)}},
			Polys: &arraysXML{Arrays: []dataArray{
				intArray("Int64", "connectivity", conn),
				intArray("Int64", "offsets", offsets),
			}},
		}},
	}
	return encode(w, doc)
}

// EncodeUnstructuredGrid writes v as a VTK XML UnstructuredGrid of
// tetrahedra, with GlobalNodeID point data and ModelRegionID cell data.
func EncodeUnstructuredGrid(w io.Writer, v *volume.Mesh) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	n := len(v.Tets)
	conn := make([]int, 0, 4*n)
	offsets := make([]int, n)
	types := make([]int, n)
	regions := make([]int, n)
	for i, t := range v.Tets {
		conn = append(conn, t[0], t[1], t[2], t[3])
		offsets[i] = 4 * (i + 1)
		types[i] = vtkTetra
		regions[i] = 1
		if len(v.Regions) == n {
			regions[i] = v.Regions[i]
		}
	}
	nodes := make([]int, len(v.Points))
	for i := range nodes {
		nodes[i] = i + 1
	}
	doc := vtkFile{
		Type: "UnstructuredGrid", Version: "1.0", ByteOrder: "LittleEndian",
		Grid: &piecesXML{Piece: pieceXML{
			NumberOfPoints: len(v.Points),
			NumberOfCells:  &n,
			PointData:      &arraysXML{Arrays: []dataArray{intArray("Int32", NodeAttribute, nodes)}},
			CellData:       &arraysXML{Arrays: []dataArray{intArray("Int32", RegionAttribute, regions)}},
			Points:         arraysXML{Arrays: []dataArray{pointArray(v.Points)}},
			Cells: &arraysXML{Arrays: []dataArray{
				intArray("Int64", "connectivity", conn),
				intArray("Int64", "offsets", offsets),
				intArray("UInt8", "types", types),
			}},
		}},
	}
	return encode(w, doc)
}

func encode(w io.Writer, doc vtkFile) error {
	bw := bufio.NewWriter(w)
	if _, err := io.WriteString(bw, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(bw)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("meshio: encoding: %w", err)
	}
	if _, err := io.WriteString(bw, "\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// WritePolyData writes m to path, creating parent directories.
func WritePolyData(path string, m *surface.Mesh) error {
	return writeFile(path, func(w io.Writer) error { return EncodePolyData(w, m) })
}

// WriteUnstructuredGrid writes v to path, creating parent directories.
func WriteUnstructuredGrid(path string, v *volume.Mesh) error {
	return writeFile(path, func(w io.Writer) error { return EncodeUnstructuredGrid(w, v) })
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DecodePolyData reads an ASCII VTK XML PolyData document of triangles.
// Face labels come from the ModelFaceID cell array when present.
func DecodePolyData(r io.Reader) (*surface.Mesh, error) {
	var doc vtkFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("meshio: decoding: %w", err)
	}
	if doc.PolyData == nil || doc.PolyData.Piece.Polys == nil {
		return nil, fmt.Errorf("meshio: not a PolyData document: %w", surface.ErrMalformed)
	}
	piece := doc.PolyData.Piece
	pts, err := parsePoints(piece.Points)
	if err != nil {
		return nil, err
	}
	polys, err := parseCells(piece.Polys)
	if err != nil {
		return nil, err
	}
	var labels []int
	if a, ok := piece.CellData.find(surface.RegionAttribute); ok {
		if labels, err = parseInts(a.Data); err != nil {
			return nil, err
		}
	}
	m, err := surface.FromPolygons(pts, polys, labels)
	if err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	return m, nil
}

// ReadPolyData reads a .vtp file.
func ReadPolyData(path string) (*surface.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	defer f.Close()
	return DecodePolyData(bufio.NewReader(f))
}

// DecodeUnstructuredGrid reads an ASCII VTK XML UnstructuredGrid. Only
// tetrahedral cells are accepted.
func DecodeUnstructuredGrid(r io.Reader) (*volume.Mesh, error) {
	var doc vtkFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("meshio: decoding: %w", err)
	}
	if doc.Grid == nil || doc.Grid.Piece.Cells == nil {
		return nil, fmt.Errorf("meshio: not an UnstructuredGrid document: %w", surface.ErrMalformed)
	}
	piece := doc.Grid.Piece
	pts, err := parsePoints(piece.Points)
	if err != nil {
		return nil, err
	}
	cells, err := parseCells(piece.Cells)
	if err != nil {
		return nil, err
	}
	v := &volume.Mesh{Points: pts, Tets: make([]volume.Tet, len(cells))}
	for i, c := range cells {
		if len(c) != 4 {
			return nil, fmt.Errorf("meshio: cell %d has %d points: %w", i, len(c), surface.ErrMalformed)
		}
		v.Tets[i] = volume.Tet{c[0], c[1], c[2], c[3]}
	}
	if a, ok := piece.CellData.find(RegionAttribute); ok {
		if v.Regions, err = parseInts(a.Data); err != nil {
			return nil, err
		}
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	return v, nil
}

// ReadUnstructuredGrid reads a .vtu file.
func ReadUnstructuredGrid(path string) (*volume.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	defer f.Close()
	return DecodeUnstructuredGrid(bufio.NewReader(f))
}

func parsePoints(a arraysXML) ([]r3.Vec, error) {
	if len(a.Arrays) == 0 {
		return nil, fmt.Errorf("meshio: missing points array: %w", surface.ErrMalformed)
	}
	fields := strings.Fields(a.Arrays[0].Data)
	if len(fields)%3 != 0 {
		return nil, fmt.Errorf("meshio: %d point coordinates: %w", len(fields), surface.ErrMalformed)
	}
	pts := make([]r3.Vec, len(fields)/3)
	for i := range pts {
		var xyz [3]float64
		for j := range xyz {
			v, err := strconv.ParseFloat(fields[3*i+j], 64)
			if err != nil {
				return nil, fmt.Errorf("meshio: point %d: %w", i, err)
			}
			xyz[j] = v
		}
		pts[i] = r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	}
	return pts, nil
}

func parseCells(a *arraysXML) ([][]int, error) {
	connArr, ok1 := a.find("connectivity")
	offArr, ok2 := a.find("offsets")
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("meshio: missing connectivity or offsets: %w", surface.ErrMalformed)
	}
	conn, err := parseInts(connArr.Data)
	if err != nil {
		return nil, err
	}
	offsets, err := parseInts(offArr.Data)
	if err != nil {
		return nil, err
	}
	cells := make([][]int, len(offsets))
	start := 0
	for i, end := range offsets {
		if end < start || end > len(conn) {
			return nil, fmt.Errorf("meshio: bad offset %d at cell %d: %w", end, i, surface.ErrMalformed)
		}
		cells[i] = conn[start:end]
		start = end
	}
	return cells, nil
}

func parseInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("meshio: %w", err)
		}
		out[i] = v
	}
	return out, nil
}
