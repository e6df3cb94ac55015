package design

import (
	"fmt"
	"image"
	"image/color"

	"laser-align/internal/homography"
	"laser-align/internal/jig"
	"laser-align/pkg/colorutil"
	"laser-align/pkg/geometry"

	"gocv.io/x/gocv"
)

// Preview colors: board yellow, axes red/green, markers green, design
// magenta.
var (
	boardColor  = colorutil.Yellow
	markerColor = colorutil.Green
	xAxisColor  = colorutil.Red
	yAxisColor  = colorutil.Green
	designColor = colorutil.Magenta
	labelColor  = colorutil.White
)

// RenderPreview draws the verification overlay on a copy of the original
// photo: detected marker centers, the board outline, the origin axes, and
// the requested design rectangle, all mapped through the solved homography.
// This is for operator confirmation only; the export never uses camera
// pixels. The caller owns the returned Mat.
func RenderPreview(photo gocv.Mat, result *homography.Result, profile *jig.Profile, designRect geometry.Rect) gocv.Mat {
	vis := photo.Clone()

	for _, c := range result.Correspondences {
		center := image.Pt(int(c.Image.X), int(c.Image.Y))
		gocv.Circle(&vis, center, 10, markerColor, -1)
		gocv.PutText(&vis, fmt.Sprintf("ID:%d", c.ID),
			image.Pt(center.X+15, center.Y), gocv.FontHersheySimplex, 1, markerColor, 2)
	}

	drawQuad(&vis, result, profile.Bounds(), boardColor, 3)
	drawAxes(&vis, result)
	drawQuad(&vis, result, designRect, designColor, 2)

	center := result.MapToImage(designRect.Center())
	gocv.Circle(&vis, image.Pt(int(center.X), int(center.Y)), 8, designColor, -1)
	gocv.PutText(&vis, "Design", image.Pt(int(center.X)+10, int(center.Y)),
		gocv.FontHersheySimplex, 0.8, designColor, 2)

	return vis
}

// drawQuad projects a physical rectangle through the homography and draws
// the resulting quadrilateral.
func drawQuad(vis *gocv.Mat, result *homography.Result, r geometry.Rect, col color.RGBA, thickness int) {
	corners := r.Corners()
	pts := make([]image.Point, 0, 4)
	for _, c := range corners {
		p := result.MapToImage(c)
		pts = append(pts, image.Pt(int(p.X), int(p.Y)))
	}

	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.Polylines(vis, pv, true, col, thickness)
}

// drawAxes draws the physical coordinate system at the plane origin:
// 50mm arrows along +X (red) and +Y (green).
func drawAxes(vis *gocv.Mat, result *homography.Result) {
	origin := result.MapToImage(geometry.Point2D{})
	xTip := result.MapToImage(geometry.Point2D{X: 50})
	yTip := result.MapToImage(geometry.Point2D{Y: 50})

	o := image.Pt(int(origin.X), int(origin.Y))
	gocv.ArrowedLine(vis, o, image.Pt(int(xTip.X), int(xTip.Y)), xAxisColor, 3)
	gocv.ArrowedLine(vis, o, image.Pt(int(yTip.X), int(yTip.Y)), yAxisColor, 3)

	gocv.PutText(vis, "X", image.Pt(int(xTip.X), int(xTip.Y)),
		gocv.FontHersheySimplex, 1, xAxisColor, 2)
	gocv.PutText(vis, "Y", image.Pt(int(yTip.X), int(yTip.Y)),
		gocv.FontHersheySimplex, 1, yAxisColor, 2)
	gocv.PutText(vis, "Origin (0,0)", image.Pt(o.X-50, o.Y+30),
		gocv.FontHersheySimplex, 0.6, labelColor, 2)
}
