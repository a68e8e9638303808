package meshio_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/cardiomesh/internal/testutil"
	"github.com/chazu/cardiomesh/pkg/meshio"
	"github.com/chazu/cardiomesh/pkg/surface"
	"github.com/chazu/cardiomesh/pkg/volume"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPolyDataRoundTrip(t *testing.T) {
	m := testutil.LowerHemisphere(10, 12, 3)
	for i := range m.Labels {
		m.Labels[i] = 1 + i%3
	}
	path := filepath.Join(t.TempDir(), "nested", "dir", "surface.vtp")
	require.NoError(t, meshio.WritePolyData(path, m))

	got, err := meshio.ReadPolyData(path)
	require.NoError(t, err)
	if diff := cmp.Diff(m, got); diff != "" {
		t.Fatalf("ReadPolyData() mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `Name="ModelFaceID"`)
	assert.True(t, strings.HasPrefix(string(raw), "<?xml"))
}

func TestDecodePolyDataRejectsQuads(t *testing.T) {
	doc := `<VTKFile type="PolyData" version="1.0" byte_order="LittleEndian">
  <PolyData><Piece NumberOfPoints="4" NumberOfPolys="1">
    <Points><DataArray type="Float64" NumberOfComponents="3" format="ascii">0 0 0 1 0 0 1 1 0 0 1 0</DataArray></Points>
    <Polys>
      <DataArray type="Int64" Name="connectivity" format="ascii">0 1 2 3</DataArray>
      <DataArray type="Int64" Name="offsets" format="ascii">4</DataArray>
    </Polys>
  </Piece></PolyData>
</VTKFile>`
	_, err := meshio.DecodePolyData(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, surface.ErrMalformed))
}

func TestDecodePolyDataDefaultsLabels(t *testing.T) {
	doc := `<VTKFile type="PolyData" version="1.0" byte_order="LittleEndian">
  <PolyData><Piece NumberOfPoints="3" NumberOfPolys="1">
    <Points><DataArray type="Float64" NumberOfComponents="3" format="ascii">0 0 0 1 0 0 0 1 0</DataArray></Points>
    <Polys>
      <DataArray type="Int64" Name="connectivity" format="ascii">0 1 2</DataArray>
      <DataArray type="Int64" Name="offsets" format="ascii">3</DataArray>
    </Polys>
  </Piece></PolyData>
</VTKFile>`
	m, err := meshio.DecodePolyData(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []int{surface.DefaultLabel}, m.Labels)
}

func TestUnstructuredGridRoundTrip(t *testing.T) {
	v := &volume.Mesh{
		Points:  []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}, {X: 1, Y: 1, Z: 1}},
		Tets:    []volume.Tet{{0, 1, 2, 3}, {1, 2, 3, 4}},
		Regions: []int{1, 1},
	}
	var buf bytes.Buffer
	require.NoError(t, meshio.EncodeUnstructuredGrid(&buf, v))
	assert.Contains(t, buf.String(), `Name="GlobalNodeID"`)
	assert.Contains(t, buf.String(), "1 2 3 4 5")

	got, err := meshio.DecodeUnstructuredGrid(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(v, got); diff != "" {
		t.Fatalf("DecodeUnstructuredGrid() mismatch (-want +got):\n%s", diff)
	}
}

func TestPointCloud(t *testing.T) {
	pts := []r3.Vec{{X: 1.5, Y: -2, Z: 3}, {X: 0.25}}
	var buf bytes.Buffer
	require.NoError(t, meshio.EncodePointCloud(&buf, pts))
	assert.Equal(t, "point\n2\n1.5 -2 3\n0.25 0 0\n", buf.String())

	got, err := meshio.DecodePointCloud(&buf)
	require.NoError(t, err)
	assert.Equal(t, pts, got)

	_, err = meshio.DecodePointCloud(strings.NewReader("point\n3\n1 2 3\n"))
	assert.Error(t, err)
}
