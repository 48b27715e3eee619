package asset

// Cube returns a unit-normal cube of edge length size centered on the origin, 24 vertices and 36 indices.
func Cube(size float32) ([]Vertex, []uint32) {
	h := size / 2
	faces := []struct {
		normal [3]float32
		u, v   [3]float32
	}{
		{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range corners {
			var p [3]float32
			for k := range 3 {
				p[k] = (f.normal[k] + c[0]*f.u[k] + c[1]*f.v[k]) * h
			}
			vertices = append(vertices, Vertex{
				Position: p,
				Normal:   f.normal,
				UV:       [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2},
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// Octahedron returns a flat-shaded octahedron with the given radius, 24 vertices and 24 indices.
func Octahedron(radius float32) ([]Vertex, []uint32) {
	tips := [6][3]float32{
		{radius, 0, 0}, {-radius, 0, 0},
		{0, radius, 0}, {0, -radius, 0},
		{0, 0, radius}, {0, 0, -radius},
	}
	tris := [8][3]int{
		{0, 2, 4}, {4, 2, 1}, {1, 2, 5}, {5, 2, 0},
		{4, 3, 0}, {1, 3, 4}, {5, 3, 1}, {0, 3, 5},
	}
	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 24)
	for _, t := range tris {
		a, b, c := tips[t[0]], tips[t[1]], tips[t[2]]
		n := [3]float32{a[0] + b[0] + c[0], a[1] + b[1] + c[1], a[2] + b[2] + c[2]}
		base := uint32(len(vertices))
		for _, p := range [3][3]float32{a, b, c} {
			vertices = append(vertices, Vertex{Position: p, Normal: n})
		}
		indices = append(indices, base, base+1, base+2)
	}
	return vertices, indices
}

// Plane returns a size x size quad in the XZ plane facing +Y.
func Plane(size float32) ([]Vertex, []uint32) {
	h := size / 2
	n := [3]float32{0, 1, 0}
	vertices := []Vertex{
		{Position: [3]float32{-h, 0, h}, Normal: n, UV: [2]float32{0, 1}},
		{Position: [3]float32{h, 0, h}, Normal: n, UV: [2]float32{1, 1}},
		{Position: [3]float32{h, 0, -h}, Normal: n, UV: [2]float32{1, 0}},
		{Position: [3]float32{-h, 0, -h}, Normal: n, UV: [2]float32{0, 0}},
	}
	return vertices, []uint32{0, 1, 2, 0, 2, 3}
}
