// Package jig provides jig profile definitions and management. A jig is a
// physical fixture holding fiducial markers at known millimeter coordinates,
// defining the reference plane for alignment.
package jig

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"laser-align/pkg/geometry"
)

// Marker is a fiducial marker placed on the jig. Coordinates are the marker
// center in millimeters, origin at the bottom-left of the reference plane,
// X rightward, Y upward.
type Marker struct {
	ID int     `json:"id"`
	X  float64 `json:"x_mm"`
	Y  float64 `json:"y_mm"`
}

// Profile defines a jig: its engraving area, the marker dictionary used,
// and the physical marker layout. Profiles are created once per physical
// jig, persisted, and loaded unchanged per session.
type Profile struct {
	Name        string   `json:"name"`
	BoardWidth  float64  `json:"board_width_mm"`
	BoardHeight float64  `json:"board_height_mm"`
	Dictionary  string   `json:"dictionary"`
	MarkerSize  float64  `json:"marker_size_mm"`
	Markers     []Marker `json:"markers"`
}

// Validate checks the profile invariants: at least 4 markers, unique ids,
// a non-degenerate (not all collinear) layout, and positive dimensions.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("jig profile name is required")
	}
	if p.BoardWidth <= 0 || p.BoardHeight <= 0 {
		return fmt.Errorf("board dimensions must be positive")
	}
	if len(p.Markers) < 4 {
		return fmt.Errorf("need at least 4 markers, got %d", len(p.Markers))
	}

	seen := make(map[int]bool, len(p.Markers))
	for _, m := range p.Markers {
		if seen[m.ID] {
			return fmt.Errorf("duplicate marker id %d", m.ID)
		}
		seen[m.ID] = true
	}

	if collinear(p.markerPoints()) {
		return fmt.Errorf("marker layout is degenerate: all markers are collinear")
	}
	return nil
}

// Bounds returns the engraving area as a rectangle anchored at the origin.
func (p *Profile) Bounds() geometry.Rect {
	return geometry.NewRect(0, 0, p.BoardWidth, p.BoardHeight)
}

// Points returns the marker centers keyed by marker id.
func (p *Profile) Points() map[int]geometry.Point2D {
	pts := make(map[int]geometry.Point2D, len(p.Markers))
	for _, m := range p.Markers {
		pts[m.ID] = geometry.Point2D{X: m.X, Y: m.Y}
	}
	return pts
}

// IDs returns the expected marker ids in ascending order.
func (p *Profile) IDs() []int {
	ids := make([]int, 0, len(p.Markers))
	for _, m := range p.Markers {
		ids = append(ids, m.ID)
	}
	sort.Ints(ids)
	return ids
}

// Fingerprint returns a stable identity for the profile, used to key
// cached alignment results. Two profiles with the same name but different
// marker layouts produce different fingerprints.
func (p *Profile) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%g|%g|%s|%g", p.Name, p.BoardWidth, p.BoardHeight, p.Dictionary, p.MarkerSize)
	for _, id := range p.IDs() {
		pt := p.Points()[id]
		fmt.Fprintf(h, "|%d:%g:%g", id, pt.X, pt.Y)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (p *Profile) markerPoints() []geometry.Point2D {
	pts := make([]geometry.Point2D, len(p.Markers))
	for i, m := range p.Markers {
		pts[i] = geometry.Point2D{X: m.X, Y: m.Y}
	}
	return pts
}

// collinear reports whether all points lie (near) on a single line.
// Uses the eigenvalue ratio of the 2x2 covariance of the point set.
func collinear(pts []geometry.Point2D) bool {
	if len(pts) < 3 {
		return true
	}

	c := geometry.Centroid(pts)
	var sxx, sxy, syy float64
	for _, p := range pts {
		dx, dy := p.X-c.X, p.Y-c.Y
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}

	// Eigenvalues of [[sxx, sxy], [sxy, syy]]
	tr := sxx + syy
	det := sxx*syy - sxy*sxy
	disc := math.Sqrt(math.Max(0, tr*tr/4-det))
	large := tr/2 + disc
	small := tr/2 - disc

	if large <= 0 {
		return true
	}
	return small/large < 1e-6
}

// SaveToFile saves the profile to a JSON file.
func (p *Profile) SaveToFile(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads a profile from a JSON file and validates it.
func LoadFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid jig profile: %w", err)
	}
	return &p, nil
}

// Registry of known jig profiles
var registry = make(map[string]*Profile)

// Register adds a jig profile to the registry.
func Register(p *Profile) {
	registry[p.Name] = p
}

// Get returns a jig profile by name, or nil.
func Get(name string) *Profile {
	return registry[name]
}

// List returns all registered profile names.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(Default200())
}
