package mesh

import (
	"bufio"
	"fmt"
	"io"

	"github.com/chazu/procmesh/pkg/attrib"
)

// WriteOBJ writes m as a Wavefront OBJ document: one "v" line per point,
// "vn" lines when the mesh has point normals, and one "f" line per
// primitive with at least three vertices. Two-vertex primitives are
// written as "l" lines. A mesh without positions writes its points at the
// origin.
func WriteOBJ(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	p := m.FindPositions()
	for i := range m.NumPoints() {
		var v [3]float32
		if p != nil {
			v = p.Vec3(i)
		}
		fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
	}
	n := m.PointAttribs.Find(attrib.Normal)
	if n != nil {
		for i := range m.NumPoints() {
			v := n.Vec3(i)
			fmt.Fprintf(bw, "vn %g %g %g\n", v[0], v[1], v[2])
		}
	}
	for i, prim := range m.Primitives {
		switch {
		case prim.NumVertices >= 3:
			bw.WriteString("f")
		case prim.NumVertices == 2:
			bw.WriteString("l")
		default:
			continue
		}
		for _, pt := range m.PointIndicesOfPrimitive(i) {
			if n != nil && prim.NumVertices >= 3 {
				fmt.Fprintf(bw, " %d//%d", pt+1, pt+1)
			} else {
				fmt.Fprintf(bw, " %d", pt+1)
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
