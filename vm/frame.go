package vm

import (
	"tarn/compiler"
	"tarn/object"
)

// Frame is the per-call record: the compiled function being executed,
// its instruction pointer, and the stack position its locals start at.
// Locals occupy the slots [basePointer, basePointer+NumLocals).
type Frame struct {
	fn          *object.CompiledFunction
	ip          int
	basePointer int
}

// NewFrame creates a frame about to execute fn with its locals based at
// basePointer.
func NewFrame(fn *object.CompiledFunction, basePointer int) *Frame {
	return &Frame{fn: fn, ip: -1, basePointer: basePointer}
}

// Instructions returns the frame's instruction stream.
func (f *Frame) Instructions() compiler.Instructions {
	return compiler.Instructions(f.fn.Instructions)
}
