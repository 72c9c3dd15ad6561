// Package vision implements color segmentation, contour extraction and reference card calibration on top of OpenCV.
package vision

import (
	"image"

	"github.com/LdDl/refdist-go/refdist"
	"gocv.io/x/gocv"
)

const (
	// DefaultKernelSize is the side of the square structuring element for mask cleanup
	DefaultKernelSize = 5
)

// Segmenter produces binary masks of pixels falling into color bands
type Segmenter struct {
	kernelSize int
}

// NewSegmenter creates segmenter with given structuring element side.
// Bigger kernel fills more gaps but drops small objects
func NewSegmenter(kernelSize int) *Segmenter {
	if kernelSize < 1 {
		kernelSize = DefaultKernelSize
	}
	return &Segmenter{
		kernelSize: kernelSize,
	}
}

// ToHSV converts BGR frame to HSV. Conversion should be done once per frame and reused across bands.
// Caller is responsible for closing returned Mat
func (s *Segmenter) ToHSV(frame gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)
	return hsv
}

// InRange returns raw mask of pixels inside any of band's ranges (no cleanup).
// Caller is responsible for closing returned Mat
func (s *Segmenter) InRange(hsv gocv.Mat, band refdist.ColorBand) gocv.Mat {
	mask := gocv.NewMatWithSize(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)
	if len(band.Ranges) == 0 {
		mask.SetTo(gocv.NewScalar(0, 0, 0, 0))
		return mask
	}
	inRange(hsv, band.Ranges[0], &mask)
	for _, r := range band.Ranges[1:] {
		extra := gocv.NewMat()
		inRange(hsv, r, &extra)
		gocv.BitwiseOr(mask, extra, &mask)
		extra.Close()
	}
	return mask
}

// Segment returns band mask cleaned with closing (fills small gaps) followed by opening (removes speckles).
// Caller is responsible for closing returned Mat
func (s *Segmenter) Segment(hsv gocv.Mat, band refdist.ColorBand) gocv.Mat {
	mask := s.InRange(hsv, band)
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{s.kernelSize, s.kernelSize})
	defer kernel.Close()
	// Close to fill small gaps
	gocv.MorphologyEx(mask, &mask, gocv.MorphClose, kernel)
	// Open to remove small noise
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, kernel)
	return mask
}

func inRange(hsv gocv.Mat, r refdist.HSVRange, dst *gocv.Mat) {
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(r.Lower.H, r.Lower.S, r.Lower.V, 0),
		gocv.NewScalar(r.Upper.H, r.Upper.S, r.Upper.V, 0),
		dst,
	)
}
