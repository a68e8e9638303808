package mmg

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/chazu/cardiomesh/internal/testutil"
	"github.com/chazu/cardiomesh/pkg/mesher"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeditRoundTrip(t *testing.T) {
	m := testutil.Sphere(3, 8, 5)
	for i := range m.Labels {
		m.Labels[i] = 1 + i%2
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMedit(&buf, m))
	got, err := ReadMedit(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(m, got); diff != "" {
		t.Fatalf("ReadMedit() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadMeditSkipsExtraSections(t *testing.T) {
	src := `MeshVersionFormatted 2
Dimension 3
Vertices
3
0 0 0 1
1 0 0 1
0 1 0 1
# features found by the remesher
Edges
1
1 2 0
Corners
1
1
Triangles
1
1 2 3 4
Ridges
1
1
End
`
	m, err := ReadMedit(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 3, m.PointCount())
	assert.Equal(t, []int{4}, m.Labels)

	_, err = ReadMedit(strings.NewReader("MeshVersionFormatted 2\nBogus\n1\n"))
	assert.Error(t, err)
}

func TestArgs(t *testing.T) {
	got := Args("a.mesh", "b.mesh", mesher.DefaultRemeshOptions())
	assert.Equal(t, []string{"a.mesh", "-o", "b.mesh", "-hmin", "1", "-hmax", "1.5"}, got)
	got = Args("a.mesh", "b.mesh", mesher.RemeshOptions{Hausd: 0.01})
	assert.Equal(t, []string{"a.mesh", "-o", "b.mesh", "-hausd", "0.01"}, got)
}

// copyRunner stands in for mmgs by copying its input to its output.
type copyRunner struct {
	name string
}

func (c *copyRunner) Run(_ context.Context, _, name string, args ...string) ([]byte, error) {
	c.name = name
	in, err := os.Open(args[0])
	if err != nil {
		return nil, err
	}
	defer in.Close()
	out, err := os.Create(args[2])
	if err != nil {
		return nil, err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return nil, err
}

func TestRemesh(t *testing.T) {
	m := testutil.Sphere(3, 8, 5)
	runner := &copyRunner{}
	r := &Remesher{Runner: runner}
	got, err := r.Remesh(context.Background(), m, mesher.DefaultRemeshOptions())
	require.NoError(t, err)
	assert.Equal(t, DefaultBinary, runner.name)
	if diff := cmp.Diff(m, got); diff != "" {
		t.Fatalf("Remesh() mismatch (-want +got):\n%s", diff)
	}
}
