package vision

import (
	"image"

	"github.com/LdDl/refdist-go/refdist"
	"gocv.io/x/gocv"
)

const (
	// DefaultMinContourArea is the area (px^2) a blob has to exceed to be reported
	DefaultMinContourArea = 800.0
)

// ContourExtractor turns a binary mask into object descriptors
type ContourExtractor struct {
	minArea float64
}

// NewContourExtractor creates extractor with the given area cutoff
func NewContourExtractor(minArea float64) *ContourExtractor {
	return &ContourExtractor{
		minArea: minArea,
	}
}

// Extract finds external contours in the mask and describes each one whose area is strictly above the cutoff.
// Holes are ignored since objects are assumed to be solid. Contours come in discovery order
func (ce *ContourExtractor) Extract(mask gocv.Mat, label string) []refdist.ObjectDescriptor {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	return ce.Describe(contours, label)
}

// Describe applies area filter and computes descriptors for already found contours
func (ce *ContourExtractor) Describe(contours gocv.PointsVector, label string) []refdist.ObjectDescriptor {
	objects := make([]refdist.ObjectDescriptor, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= ce.minArea {
			continue
		}
		centroid, ok := contourCentroid(contour)
		if !ok {
			// Degenerate contour, no centroid
			continue
		}
		objects = append(objects, refdist.NewObjectDescriptor(centroid, gocv.BoundingRect(contour), area, label))
	}
	return objects
}

// contourCentroid returns area-weighted center of the contour truncated to pixels.
// False is returned for zero-area contours
func contourCentroid(contour gocv.PointVector) (image.Point, bool) {
	points := gocv.NewMatFromPointVector(contour, false)
	moments := gocv.Moments(points, false)
	points.Close()
	m00 := moments["m00"]
	if m00 == 0 {
		return image.Point{}, false
	}
	return image.Point{X: int(moments["m10"] / m00), Y: int(moments["m01"] / m00)}, true
}
