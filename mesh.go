package pyramid

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// VertexStride is the byte stride per vertex in the pyramid vertex buffer.
// Layout per vertex:
//
//	position (vec3<f32>) = 12 bytes (location 0)
//	color    (vec3<f32>) = 12 bytes (location 1)
//
// Total = 24 bytes per vertex.
const VertexStride = 24

// Vertex is one corner of the pyramid with its display color.
type Vertex struct {
	Position [3]float32
	Color    [3]float32
}

// pyramidVertices holds the apex followed by the four base corners.
var pyramidVertices = [5]Vertex{
	{Position: [3]float32{0.0, 0.85, 0.0}, Color: [3]float32{0.0, 0.3, 1.0}},    // apex
	{Position: [3]float32{-0.7, -0.6, -0.7}, Color: [3]float32{1.0, 0.2, 0.2}},  // base front-left
	{Position: [3]float32{0.7, -0.6, -0.7}, Color: [3]float32{0.2, 1.0, 0.2}},   // base front-right
	{Position: [3]float32{0.7, -0.6, 0.7}, Color: [3]float32{1.0, 1.0, 0.2}},    // base back-right
	{Position: [3]float32{-0.7, -0.6, 0.7}, Color: [3]float32{0.6, 0.3, 1.0}},   // base back-left
}

// pyramidIndices groups the vertices into six triangles, counter-clockwise
// when seen from outside the solid.
var pyramidIndices = [18]uint16{
	// sides
	0, 2, 1,
	0, 3, 2,
	0, 4, 3,
	0, 1, 4,
	// base, seen from below
	1, 3, 4,
	1, 2, 3,
}

// IndexCount is the number of indices issued by the single draw call.
const IndexCount = uint32(len(pyramidIndices))

// Vertices returns a copy of the pyramid geometry.
func Vertices() []Vertex {
	out := make([]Vertex, len(pyramidVertices))
	copy(out, pyramidVertices[:])
	return out
}

// Indices returns a copy of the pyramid triangle list.
func Indices() []uint16 {
	out := make([]uint16, len(pyramidIndices))
	copy(out, pyramidIndices[:])
	return out
}

// vertexBytes encodes the pyramid vertices as interleaved little-endian f32.
func vertexBytes() []byte {
	buf := make([]byte, len(pyramidVertices)*VertexStride)
	for i, v := range pyramidVertices {
		writeVertex(buf[i*VertexStride:], v)
	}
	return buf
}

// writeVertex writes a single vertex into buf.
func writeVertex(buf []byte, v Vertex) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.Color[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(v.Color[1]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(v.Color[2]))
}

// indexBytes encodes the triangle list as little-endian u16. The 36-byte
// result is already a multiple of 4, as queue writes require.
func indexBytes() []byte {
	buf := make([]byte, len(pyramidIndices)*2)
	for i, idx := range pyramidIndices {
		binary.LittleEndian.PutUint16(buf[i*2:], idx)
	}
	return buf
}

// vertexLayout returns the vertex buffer layout for the pyramid pipeline.
func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1}, // color
			},
		},
	}
}
