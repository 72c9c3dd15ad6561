// Package overlay draws tracking results on top of frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/LdDl/refdist-go/refdist"
	"gocv.io/x/gocv"
)

var (
	referenceColor = color.RGBA{R: 255, G: 215, B: 0, A: 0}
	lineColor      = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	labelBgColor   = color.RGBA{R: 0, G: 0, B: 0, A: 0}
	cardColor      = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

// Renderer draws reference object, measured objects with distances and calibration card
type Renderer struct {
	table refdist.ColorTable
	font  gocv.HersheyFont
	// Draw calibration card box of the last successful calibration
	ShowCard bool
}

// NewRenderer creates renderer using band display colors from the table
func NewRenderer(table refdist.ColorTable) *Renderer {
	return &Renderer{
		table:    table,
		font:     gocv.FontHersheySimplex,
		ShowCard: true,
	}
}

// Draw renders current tracking state on the frame
func (r *Renderer) Draw(frame *gocv.Mat, state *refdist.TrackingState) {
	scale := state.Scale()
	if r.ShowCard && scale.Calibrated {
		gocv.Rectangle(frame, scale.CardBox, cardColor, 2)
	}
	if ref, ok := state.Reference(); ok {
		r.drawReference(frame, ref)
	}
	for _, obj := range state.Measured() {
		r.drawMeasured(frame, obj)
	}
	r.drawStatus(frame, state)
}

func (r *Renderer) drawReference(frame *gocv.Mat, ref refdist.ReferenceObject) {
	gocv.Rectangle(frame, ref.BBox, referenceColor, 3)
	gocv.Circle(frame, ref.Centroid, 8, referenceColor, -1)
	gocv.PutText(frame, fmt.Sprintf("%s: %s", ref.Tag, ref.Color), image.Pt(10, 30), r.font, 0.9, referenceColor, 2)
}

func (r *Renderer) drawMeasured(frame *gocv.Mat, obj refdist.MeasuredObject) {
	c := r.table.DisplayColor(obj.Color)
	gocv.Rectangle(frame, obj.BBox, c, 2)
	gocv.Circle(frame, obj.Centroid, 4, c, -1)
	gocv.PutText(frame, obj.Color, image.Pt(obj.BBox.Min.X, obj.BBox.Min.Y-10), r.font, 0.5, c, 1)

	gocv.Line(frame, obj.ReferenceCentroid, obj.Centroid, lineColor, 2)
	mid := obj.Midpoint()
	text := obj.DistanceFromReference.String()
	size := gocv.GetTextSize(text, r.font, 0.6, 2)
	bg := image.Rect(mid.X-size.X/2-5, mid.Y-size.Y-5, mid.X+size.X/2+5, mid.Y+5)
	gocv.Rectangle(frame, bg, labelBgColor, -1)
	gocv.PutText(frame, text, image.Pt(mid.X-size.X/2, mid.Y), r.font, 0.6, lineColor, 2)
}

func (r *Renderer) drawStatus(frame *gocv.Mat, state *refdist.TrackingState) {
	scale := state.Scale()
	status := fmt.Sprintf("%s | uncalibrated (px)", state.Phase())
	if scale.Calibrated {
		status = fmt.Sprintf("%s | %.2f px/cm", state.Phase(), scale.PixelsPerCentimeter)
	}
	if nearest := state.Nearest(1); len(nearest) == 1 {
		status += fmt.Sprintf(" | nearest: %s %s", nearest[0].Color, nearest[0].DistanceFromReference)
	}
	gocv.PutText(frame, status, image.Pt(10, frame.Rows()-15), r.font, 0.5, lineColor, 1)
}
