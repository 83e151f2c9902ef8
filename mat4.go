package pyramid

import (
	"encoding/binary"
	"math"
)

// Camera and animation constants for the pyramid scene.
const (
	// FieldOfView is the vertical field of view in radians.
	FieldOfView = math.Pi / 3

	// NearPlane and FarPlane bound the view frustum along -Z.
	NearPlane = 0.1
	FarPlane  = 10.0

	// CameraDistance is how far the camera sits back from the origin.
	CameraDistance = 2.6

	// SpinRate is the model rotation speed about +Y in radians per second.
	SpinRate = 0.8
)

// Mat4Size is the byte size of a Mat4 as uploaded to the GPU (16 x f32).
const Mat4Size = 64

// Mat4 is a 4x4 matrix stored in column-major order, matching the memory
// layout of WGSL mat4x4<f32>. Element (row r, column c) lives at index c*4+r.
//
// All constructors are pure functions; nothing is cached between calls.
type Mat4 [16]float64

// Identity4 returns the 4x4 identity matrix.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float64 {
	return m[c*4+r]
}

// Mul returns m × b. Applied to a column vector, b acts first.
func (m Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c*4+r] = m[r]*b[c*4] +
				m[4+r]*b[c*4+1] +
				m[8+r]*b[c*4+2] +
				m[12+r]*b[c*4+3]
		}
	}
	return out
}

// Transform multiplies the column vector v by m.
func (m Mat4) Transform(v [4]float64) [4]float64 {
	var out [4]float64
	for r := 0; r < 4; r++ {
		out[r] = m[r]*v[0] + m[4+r]*v[1] + m[8+r]*v[2] + m[12+r]*v[3]
	}
	return out
}

// Bytes encodes m as 16 little-endian float32 values in column-major order.
func (m Mat4) Bytes() []byte {
	buf := make([]byte, Mat4Size)
	m.PutBytes(buf)
	return buf
}

// PutBytes writes m into buf, which must hold at least Mat4Size bytes.
func (m Mat4) PutBytes(buf []byte) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
}

// Perspective returns a right-handed perspective projection that maps view
// space depth in [-near, -far] onto clip space depth [0, 1], the convention
// used by WebGPU and Vulkan.
func Perspective(fovy, aspect, near, far float64) Mat4 {
	f := 1 / math.Tan(fovy/2)
	nf := 1 / (near - far)
	var m Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far * nf
	m[11] = -1
	m[14] = far * near * nf
	return m
}

// Translation returns a matrix translating by (tx, ty, tz).
func Translation(tx, ty, tz float64) Mat4 {
	m := Identity4()
	m[12] = tx
	m[13] = ty
	m[14] = tz
	return m
}

// RotationY returns a rotation of rad radians about the +Y axis.
func RotationY(rad float64) Mat4 {
	s, c := math.Sincos(rad)
	return Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// RotationAngle returns the model rotation about +Y at t seconds.
// The angle grows without bound; sine and cosine handle the wrap.
func RotationAngle(seconds float64) float64 {
	return seconds * SpinRate
}

// ModelViewProjection returns Projection × View × Model for the pyramid at
// the given elapsed time and surface aspect ratio.
func ModelViewProjection(seconds, aspect float64) Mat4 {
	projection := Perspective(FieldOfView, aspect, NearPlane, FarPlane)
	view := Translation(0, 0, -CameraDistance)
	model := RotationY(RotationAngle(seconds))
	return projection.Mul(view.Mul(model))
}
