package object

import (
	"errors"
	"math"
)

// MaxConstants is the constant pool limit imposed by single-byte operands.
const MaxConstants = 256

var (
	ErrTooManyConstants = errors.New("Too many constants in one chunk.")
	ErrJumpTooFar       = errors.New("Too much code to jump over.")
	ErrLoopTooLarge     = errors.New("Loop body too large.")
)

// Chunk is a compiled bytecode sequence with its constant pool.
// Lines holds the source line of every byte in Code.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// JumpHandle marks the operand of an emitted forward jump awaiting its target.
type JumpHandle struct {
	operand int
}

// Write appends one byte attributed to the given source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant appends v to the pool and returns its index.
func (c *Chunk) AddConstant(v Value) (byte, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	c.Constants = append(c.Constants, v)
	return byte(len(c.Constants) - 1), nil
}

// EmitJump writes op followed by a placeholder 16-bit distance.
func (c *Chunk) EmitJump(op byte, line int) JumpHandle {
	c.Write(op, line)
	c.Write(0xff, line)
	c.Write(0xff, line)
	return JumpHandle{operand: len(c.Code) - 2}
}

// PatchJump points the jump behind h at the current end of the code.
func (c *Chunk) PatchJump(h JumpHandle) error {
	// -2 to skip over the operand itself.
	dist := len(c.Code) - h.operand - 2
	if dist > math.MaxUint16 {
		return ErrJumpTooFar
	}
	c.Code[h.operand] = byte(dist >> 8)
	c.Code[h.operand+1] = byte(dist)
	return nil
}

// EmitLoop writes op with the backward distance to start.
func (c *Chunk) EmitLoop(op byte, start int, line int) error {
	c.Write(op, line)
	// +2 accounts for the operand about to be written.
	dist := len(c.Code) - start + 2
	if dist > math.MaxUint16 {
		c.Write(0xff, line)
		c.Write(0xff, line)
		return ErrLoopTooLarge
	}
	c.Write(byte(dist>>8), line)
	c.Write(byte(dist), line)
	return nil
}

// ReadUint16 decodes the big-endian operand at offset.
func (c *Chunk) ReadUint16(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}
