package refdist

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// ReferenceTag is the identity marker of the reference object
const ReferenceTag = "REF"

// ObjectDescriptor is the geometric summary of a single detected blob in a single frame.
// Descriptors are created fresh for every frame and must not be mutated afterwards.
type ObjectDescriptor struct {
	// Per-frame identifier. Has no meaning across frames
	ID uuid.UUID
	// Area-weighted center of the blob's boundary
	Centroid image.Point
	// Axis-aligned bounding box
	BBox image.Rectangle
	// Contour area in px^2
	Area float64
	// Name of the color band the blob was segmented from
	Color string
}

// NewObjectDescriptor creates descriptor with fresh identifier
func NewObjectDescriptor(centroid image.Point, bbox image.Rectangle, area float64, color string) ObjectDescriptor {
	return ObjectDescriptor{
		ID:       uuid.New(),
		Centroid: centroid,
		BBox:     bbox,
		Area:     area,
		Color:    color,
	}
}

// PixelDistanceTo returns distance between centroids (center to center) in pixels
func (obj ObjectDescriptor) PixelDistanceTo(other ObjectDescriptor) float64 {
	return PixelDistance(obj.Centroid, other.Centroid)
}

// ReferenceObject is the descriptor adopted as spatial anchor
type ReferenceObject struct {
	ObjectDescriptor
	// Always ReferenceTag
	Tag string
	// Identifies the anchoring session, regenerated on every adoption
	SessionID uuid.UUID
	AdoptedAt time.Time
}

func newReferenceObject(obj ObjectDescriptor) ReferenceObject {
	return ReferenceObject{
		ObjectDescriptor: obj,
		Tag:              ReferenceTag,
		SessionID:        uuid.New(),
		AdoptedAt:        time.Now(),
	}
}

// MeasuredObject is a non-reference detection with its distance from the reference
type MeasuredObject struct {
	ObjectDescriptor
	DistanceFromReference Distance
	// Reference centroid the distance was measured against
	ReferenceCentroid image.Point
}

// Midpoint returns point halfway between the object and the reference
func (obj MeasuredObject) Midpoint() image.Point {
	return midpoint(obj.Centroid, obj.ReferenceCentroid)
}
