package jig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault200(t *testing.T) {
	p := Default200()
	require.NoError(t, p.Validate())

	assert.Equal(t, "default-200", p.Name)
	assert.Equal(t, 200.0, p.BoardWidth)
	assert.Equal(t, "DICT_4X4_50", p.Dictionary)
	assert.Equal(t, []int{0, 1, 2, 3}, p.IDs())

	pts := p.Points()
	assert.Equal(t, 20.0, pts[0].X)
	assert.Equal(t, 20.0, pts[0].Y)
	assert.Equal(t, 180.0, pts[2].X)
	assert.Equal(t, 180.0, pts[2].Y)
}

func TestProfileValidate(t *testing.T) {
	base := func() *Profile {
		p := Default200()
		p.Name = "test"
		return p
	}

	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(p *Profile) {},
		},
		{
			name:    "missing name",
			mutate:  func(p *Profile) { p.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "zero width",
			mutate:  func(p *Profile) { p.BoardWidth = 0 },
			wantErr: "dimensions must be positive",
		},
		{
			name:    "negative height",
			mutate:  func(p *Profile) { p.BoardHeight = -5 },
			wantErr: "dimensions must be positive",
		},
		{
			name:    "too few markers",
			mutate:  func(p *Profile) { p.Markers = p.Markers[:3] },
			wantErr: "at least 4 markers",
		},
		{
			name:    "duplicate id",
			mutate:  func(p *Profile) { p.Markers[3].ID = 0 },
			wantErr: "duplicate marker id",
		},
		{
			name: "collinear layout",
			mutate: func(p *Profile) {
				for i := range p.Markers {
					p.Markers[i].Y = 100
				}
			},
			wantErr: "collinear",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestProfileBounds(t *testing.T) {
	p := Default200()
	b := p.Bounds()
	assert.Equal(t, 0.0, b.X)
	assert.Equal(t, 0.0, b.Y)
	assert.Equal(t, 200.0, b.Width)
	assert.Equal(t, 200.0, b.Height)
}

func TestProfileFingerprint(t *testing.T) {
	a := Default200()
	b := Default200()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	// Same name, shifted marker: identity must change.
	b.Markers[1].X += 0.5
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	c := Default200()
	c.Name = "other"
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestProfileSaveLoadRoundTrip(t *testing.T) {
	p := Default200()
	p.Name = "roundtrip"
	path := filepath.Join(t.TempDir(), "jig.json")

	require.NoError(t, p.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
	assert.Equal(t, p.Fingerprint(), loaded.Fingerprint())
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	p := Default200()
	p.Markers = p.Markers[:2]
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, p.SaveToFile(path))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid jig profile")
}

func TestRegistry(t *testing.T) {
	assert.NotNil(t, Get("default-200"))
	assert.Nil(t, Get("no-such-jig"))
	assert.Contains(t, List(), "default-200")
}
