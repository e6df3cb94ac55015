package jig

// Default200 returns the built-in 200x200mm jig: four 40mm markers, one in
// each corner of the engraving area, matching the printable marker sheet.
//
// Layout (marker centers, mm):
//
//	[ID:3] (20,180)        [ID:2] (180,180)
//
//	         Engraving Area
//
//	[ID:0] (20,20)         [ID:1] (180,20)
func Default200() *Profile {
	const (
		board  = 200.0
		marker = 40.0
		half   = marker / 2
	)
	return &Profile{
		Name:        "default-200",
		BoardWidth:  board,
		BoardHeight: board,
		Dictionary:  "DICT_4X4_50",
		MarkerSize:  marker,
		Markers: []Marker{
			{ID: 0, X: half, Y: half},
			{ID: 1, X: board - half, Y: half},
			{ID: 2, X: board - half, Y: board - half},
			{ID: 3, X: half, Y: board - half},
		},
	}
}
