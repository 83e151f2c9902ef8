package pyramid

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/pyramid.wgsl
var pyramidShaderSource string

// Shader entry points in shaders/pyramid.wgsl.
const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

// ShaderSource returns the WGSL source of the pyramid shader.
func ShaderSource() string {
	return pyramidShaderSource
}

// CompileSPIRV compiles the pyramid shader to SPIR-V words with naga.
// The renderer hands WGSL to the HAL directly; this is used to validate the
// shader ahead of time and to dump it for offline inspection.
func CompileSPIRV() ([]uint32, error) {
	spirvBytes, err := naga.Compile(pyramidShaderSource)
	if err != nil {
		return nil, fmt.Errorf("compile pyramid shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile pyramid shader: SPIR-V size %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
