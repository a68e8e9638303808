package anatomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinProfilesAreValid(t *testing.T) {
	for name, p := range Profiles() {
		assert.NoError(t, p.Validate(), name)
		assert.Equal(t, name, p.Name)
	}
	p, err := ProfileByName("left-ventricle")
	require.NoError(t, err)
	assert.Equal(t, KindVentricle, p.Kind)
	assert.Equal(t, 2, p.Cuts)

	_, err = ProfileByName("right-atrium")
	assert.Error(t, err)
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Profile)
	}{
		{"negative cuts", func(p *Profile) { p.Cuts = -1 }},
		{"negative fill radius", func(p *Profile) { p.FillHoleRadius = -1 }},
		{"cap label below wall", func(p *Profile) { p.FirstCapLabel = 0 }},
		{"opening on wall", func(p *Profile) { p.Openings["mitral"] = 1 }},
		{"shared label", func(p *Profile) { p.Openings["aortic"] = 2 }},
		{"untracked name", func(p *Profile) { p.Tracked = append(p.Tracked, "pulmonary") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := LeftVentricle()
			tt.modify(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestSurfaceFile(t *testing.T) {
	p := LeftVentricle()
	assert.Equal(t, "wall_1.vtp", p.SurfaceFile(1))
	assert.Equal(t, "mitral_2.vtp", p.SurfaceFile(2))
	assert.Equal(t, "aortic_3.vtp", p.SurfaceFile(3))
	assert.Equal(t, "noname_7.vtp", p.SurfaceFile(7))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "cap-processed", StateCapProcessed.String())
	assert.Equal(t, "ventricle", KindVentricle.String())
	assert.Equal(t, "State(9)", State(9).String())
}
