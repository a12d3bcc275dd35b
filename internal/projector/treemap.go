package projector

import (
	"math"
	"slices"
)

// Rect is an axis-aligned rectangle in layout units.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Area() float64 { return r.W * r.H }

// Tile places one node inside the treemap bounds.
type Tile struct {
	Node *Node
	Rect Rect
}

// Squarify lays nodes out in bounds with the squarified treemap algorithm
// (Bruls, Huizing, van Wijk). Tile areas are proportional to node size, with
// every node weighted at least 1. Tiles come back largest first.
func Squarify(nodes []*Node, bounds Rect) []Tile {
	if len(nodes) == 0 || bounds.W <= 0 || bounds.H <= 0 {
		return nil
	}

	sorted := slices.Clone(nodes)
	slices.SortStableFunc(sorted, func(a, b *Node) int {
		return cmpDesc(weight(a), weight(b))
	})

	var total float64
	for _, n := range sorted {
		total += weight(n)
	}
	scale := bounds.Area() / total

	areas := make([]float64, len(sorted))
	for i, n := range sorted {
		areas[i] = weight(n) * scale
	}

	tiles := make([]Tile, 0, len(sorted))
	free := bounds
	start := 0
	for start < len(sorted) {
		side := math.Min(free.W, free.H)
		end := start + 1
		for end < len(sorted) && worst(areas[start:end+1], side) <= worst(areas[start:end], side) {
			end++
		}
		free = layoutRow(sorted[start:end], areas[start:end], free, &tiles)
		start = end
	}
	return tiles
}

func weight(n *Node) float64 {
	return math.Max(float64(n.Size), 1)
}

func cmpDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

// worst is the largest aspect ratio in row when laid along a side of length w.
func worst(row []float64, w float64) float64 {
	var sum float64
	rmin, rmax := math.Inf(1), 0.0
	for _, a := range row {
		sum += a
		rmin = math.Min(rmin, a)
		rmax = math.Max(rmax, a)
	}
	if sum == 0 || rmin == 0 {
		return math.Inf(1)
	}
	w2, s2 := w*w, sum*sum
	return math.Max(w2*rmax/s2, s2/(w2*rmin))
}

// layoutRow places one row along the shorter side of free and returns the
// remaining space.
func layoutRow(row []*Node, areas []float64, free Rect, tiles *[]Tile) Rect {
	var sum float64
	for _, a := range areas {
		sum += a
	}

	if free.W >= free.H {
		colW := sum / free.H
		y := free.Y
		for i, n := range row {
			h := areas[i] / colW
			*tiles = append(*tiles, Tile{Node: n, Rect: Rect{X: free.X, Y: y, W: colW, H: h}})
			y += h
		}
		return Rect{X: free.X + colW, Y: free.Y, W: math.Max(0, free.W-colW), H: free.H}
	}

	rowH := sum / free.W
	x := free.X
	for i, n := range row {
		w := areas[i] / rowH
		*tiles = append(*tiles, Tile{Node: n, Rect: Rect{X: x, Y: free.Y, W: w, H: rowH}})
		x += w
	}
	return Rect{X: free.X, Y: free.Y + rowH, W: free.W, H: math.Max(0, free.H-rowH)}
}
