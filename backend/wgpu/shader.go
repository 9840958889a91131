//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/vertex.wgsl
var vertexShaderWGSL string

// VertexShaderSource returns the WGSL source of the vertex record shader.
// Entry points are vs_main and fs_main; group 0 binding 0 is the
// transform uniform.
func VertexShaderSource() string { return vertexShaderWGSL }

var spirv struct {
	once sync.Once
	code []uint32
	err  error
}

// CompileVertexShader compiles the vertex record shader to SPIR-V. The
// result is computed once and shared.
func CompileVertexShader() ([]uint32, error) {
	spirv.once.Do(func() {
		b, err := naga.Compile(vertexShaderWGSL)
		if err != nil {
			spirv.err = fmt.Errorf("wgpu: compile vertex shader: %w", err)
			return
		}
		if len(b)%4 != 0 {
			spirv.err = fmt.Errorf("wgpu: compile vertex shader: %d bytes is not a whole number of words", len(b))
			return
		}
		code := make([]uint32, len(b)/4)
		for i := range code {
			code[i] = uint32(b[i*4]) |
				uint32(b[i*4+1])<<8 |
				uint32(b[i*4+2])<<16 |
				uint32(b[i*4+3])<<24
		}
		spirv.code = code
	})
	return spirv.code, spirv.err
}

// CreateVertexShaderModule creates the vertex record shader on the device.
func (d *Device) CreateVertexShaderModule() (hal.ShaderModule, error) {
	m, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "vg_vertex",
		Source: hal.ShaderSource{WGSL: vertexShaderWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create vertex shader module: %w", err)
	}
	return m, nil
}

// vertexStride is canvas.VertexSize.
const vertexStride = 48

// VertexLayout returns the vertex buffer layout of canvas.Vertex.
func VertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1}, // color
				{Format: gputypes.VertexFormatFloat32x2, Offset: 32, ShaderLocation: 2}, // texcoord
				{Format: gputypes.VertexFormatUint32, Offset: 40, ShaderLocation: 3},    // material
				{Format: gputypes.VertexFormatUint32, Offset: 44, ShaderLocation: 4},    // object
			},
		},
	}
}
