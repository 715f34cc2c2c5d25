package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Vertex struct {
	Position  mgl32.Vec3
	TexIndex  uint32
	TexCoords uint32
}

// U and V unpack TexCoords into [0, 65535].
func (v Vertex) U() uint16 { return uint16(v.TexCoords >> 16) }
func (v Vertex) V() uint16 { return uint16(v.TexCoords) }

type Quad struct {
	Direction Direction
	Vertices  [4]Vertex
	Shade     bool
	TintIndex int32
}

// Faces is the baked geometry of one model. Culled quads are only drawn
// when the neighbour in their direction doesn't hide them.
type Faces struct {
	Unculled []Quad
	Culled   [NumDirections][]Quad
}

func (f *Faces) Len() int {
	n := len(f.Unculled)
	for _, c := range f.Culled {
		n += len(c)
	}
	return n
}

func (f *Faces) add(o *Faces) {
	f.Unculled = append(f.Unculled, o.Unculled...)
	for d := range f.Culled {
		f.Culled[d] = append(f.Culled[d], o.Culled[d]...)
	}
}

var modelCenter = mgl32.Vec3{0.5, 0.5, 0.5}

// snap removes float noise by rounding to a multiple of 2^-21.
func snap(p mgl32.Vec3) mgl32.Vec3 {
	const scale = 1 << 21
	for i := range p {
		p[i] = float32(math.Round(float64(p[i])*scale) / scale)
	}
	return p
}

// packTexCoords stores u and v as 16-bit fractions. Coordinates outside
// [0, 1] saturate.
func packTexCoords(u, v float32) uint32 {
	u = mgl32.Clamp(u, 0, 1)
	v = mgl32.Clamp(v, 0, 1)
	return uint32(u*math.MaxUint16)<<16 | uint32(v*math.MaxUint16)
}

// modelRotation builds the whole-model rotation of a blockstate entry, with
// x and y in radians. Both turn clockwise looking down their axis, x first.
func modelRotation(x, y float32) mgl32.Quat {
	return mgl32.QuatRotate(-y, mgl32.Vec3{0, 1, 0}).Mul(mgl32.QuatRotate(-x, mgl32.Vec3{1, 0, 0}))
}

// cornerPositions lists the four corners of an element face in the order
// their texture coordinates are assigned.
func cornerPositions(d Direction, from, to mgl32.Vec3) [4]mgl32.Vec3 {
	fx, fy, fz := from[0], from[1], from[2]
	tx, ty, tz := to[0], to[1], to[2]
	switch d {
	case Down:
		return [4]mgl32.Vec3{{fx, fy, tz}, {fx, fy, fz}, {tx, fy, fz}, {tx, fy, tz}}
	case Up:
		return [4]mgl32.Vec3{{fx, ty, fz}, {fx, ty, tz}, {tx, ty, tz}, {tx, ty, fz}}
	case North:
		return [4]mgl32.Vec3{{tx, ty, fz}, {tx, fy, fz}, {fx, fy, fz}, {fx, ty, fz}}
	case South:
		return [4]mgl32.Vec3{{fx, ty, tz}, {fx, fy, tz}, {tx, fy, tz}, {tx, ty, tz}}
	case West:
		return [4]mgl32.Vec3{{fx, ty, fz}, {fx, fy, fz}, {fx, fy, tz}, {fx, ty, tz}}
	default:
		return [4]mgl32.Vec3{{tx, ty, tz}, {tx, fy, tz}, {tx, fy, fz}, {tx, ty, fz}}
	}
}

// autoUVs projects the face onto the plane it faces.
func autoUVs(d Direction, ps [4]mgl32.Vec3) [4]float32 {
	p0, p2 := ps[0], ps[2]
	switch d {
	case Down:
		return [4]float32{p0.X(), 1 - p0.Z(), p2.X(), 1 - p2.Z()}
	case Up:
		return [4]float32{p0.X(), p0.Z(), p2.X(), p2.Z()}
	case North:
		return [4]float32{1 - p0.X(), p0.Y(), 1 - p2.X(), p2.Y()}
	case South:
		return [4]float32{p0.X(), p0.Y(), p2.X(), p2.Y()}
	case West:
		return [4]float32{p0.Z(), p0.Y(), p2.Z(), p2.Y()}
	default:
		return [4]float32{1 - p0.Z(), p0.Y(), 1 - p2.Z(), p2.Y()}
	}
}

// makeVertices bakes one element face. The returned direction is the face
// direction after the model rotation.
func makeVertices(d Direction, el *Element, face *ElementFace, modelRot mgl32.Quat, tex TextureInfo) (Direction, [4]Vertex) {
	ps := cornerPositions(d, el.From.Mul(1.0/16), el.To.Mul(1.0/16))
	for i, p := range ps {
		if r := el.Rotation; r != nil {
			p = r.Rotation.Rotate(p.Sub(r.Origin))
			p = mgl32.Vec3{p[0] * r.Scale[0], p[1] * r.Scale[1], p[2] * r.Scale[2]}
			p = p.Add(r.Origin)
		}
		ps[i] = snap(modelRot.Rotate(p.Sub(modelCenter)).Add(modelCenter))
	}

	rd := d.rotate(modelRot)
	var uvs [4]float32
	if face.UV != nil {
		for i, c := range face.UV {
			uvs[i] = c / 16
		}
	} else {
		uvs = autoUVs(rd, ps)
	}

	corners := [4]uint32{
		packTexCoords(uvs[0], uvs[1]),
		packTexCoords(uvs[0], uvs[3]),
		packTexCoords(uvs[2], uvs[3]),
		packTexCoords(uvs[2], uvs[1]),
	}
	shift := face.Rotation / 90
	var vs [4]Vertex
	for i := range vs {
		vs[i] = Vertex{
			Position:  ps[i],
			TexIndex:  tex.Index,
			TexCoords: corners[(i+shift)%4],
		}
	}
	return rd, vs
}
