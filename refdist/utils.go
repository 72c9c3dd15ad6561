package refdist

import "image"

func midpoint(p1, p2 image.Point) image.Point {
	return image.Point{X: (p1.X + p2.X) / 2, Y: (p1.Y + p2.Y) / 2}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
