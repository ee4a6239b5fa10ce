package compiler

import "github.com/xirelogy/go-lox/internal/object"

type Chunk = object.Chunk
type Function = object.Function
type JumpHandle = object.JumpHandle
