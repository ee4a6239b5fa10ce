// Package compiler turns Lox source into bytecode in a single pass. Tokens
// are pulled from the lexer on demand and code is emitted as soon as each
// construct is recognised; no syntax tree is built.
package compiler

import (
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/heap"
	"github.com/xirelogy/go-lox/internal/lexer"
	"github.com/xirelogy/go-lox/internal/object"
	"github.com/xirelogy/go-lox/internal/token"
)

// Option tunes a single compilation.
type Option func(*compiler)

// WithPrintCode dumps every successfully compiled function to w.
func WithPrintCode(w io.Writer) Option {
	return func(c *compiler) {
		if w != nil {
			c.dis = bytecode.NewDisassembler(w)
		}
	}
}

// Compile compiles source into the top-level script function. Every object
// the compiler creates (names, string literals, functions) is allocated on h.
// On failure the returned error is an *Error listing every diagnostic.
func Compile(source string, h *heap.Heap, opts ...Option) (*Function, error) {
	c := &compiler{
		lex:  lexer.New(source),
		heap: h,
		log:  commonlog.GetLogger("lox.compiler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pushState(h.NewFunction(), kindScript)

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endFunction()

	if c.hadError {
		return nil, &Error{Diagnostics: c.diagnostics}
	}
	return fn, nil
}

type compiler struct {
	lex      *lexer.Lexer
	heap     *heap.Heap
	previous token.Token
	current  token.Token

	hadError    bool
	panicMode   bool
	diagnostics []Diagnostic

	states []*funcState
	dis    *bytecode.Disassembler
	log    commonlog.Logger
}

func (c *compiler) pushState(fn *Function, kind functionKind) {
	c.states = append(c.states, newFuncState(fn, kind))
}

// endFunction closes the function being compiled and returns it.
func (c *compiler) endFunction() *Function {
	c.emitReturn()
	fn := c.state().fn
	c.states = c.states[:len(c.states)-1]

	if !c.hadError {
		c.log.Debugf("compiled %s: %d bytes, %d constants", fn.DisplayName(), len(fn.Chunk.Code), len(fn.Chunk.Constants))
		if c.dis != nil {
			if err := c.dis.DisassembleChunk(&fn.Chunk, fn.DisplayName()); err != nil {
				c.log.Errorf("disassemble %s: %s", fn.DisplayName(), err.Error())
			}
		}
	}
	return fn
}

func (c *compiler) currentChunk() *Chunk {
	return &c.state().fn.Chunk
}

func (c *compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.NextToken()
		if c.current.Type != token.Error {
			break
		}
		c.errorAtCurrent(c.current.Literal)
	}
}

func (c *compiler) consume(t token.Type, msg string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *compiler) error(msg string) {
	c.errorAt(c.previous, msg)
}

func (c *compiler) errorAtCurrent(msg string) {
	c.errorAt(c.current, msg)
}

// errorAt records a diagnostic unless the parser is already recovering from
// an earlier one.
func (c *compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := ""
	switch tok.Type {
	case token.EOF:
		where = " at end"
	case token.Error:
	default:
		where = fmt.Sprintf(" at '%s'", tok.Literal)
	}
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Line:    tok.Pos.Line,
		Where:   where,
		Message: msg,
	})
}

// synchronize skips tokens until a likely statement boundary.
func (c *compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.Semicolon {
			return
		}
		if token.StartsStatement(c.current.Type) {
			return
		}
		c.advance()
	}
}

func (c *compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Pos.Line)
}

func (c *compiler) emitBytes(b ...byte) {
	for _, x := range b {
		c.emitByte(x)
	}
}

func (c *compiler) emitReturn() {
	c.emitBytes(OP_NIL, OP_RETURN)
}

func (c *compiler) makeConstant(v object.Value) byte {
	idx, err := c.currentChunk().AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return idx
}

func (c *compiler) emitConstant(v object.Value) {
	c.emitBytes(OP_CONSTANT, c.makeConstant(v))
}

func (c *compiler) emitJump(op byte) JumpHandle {
	return c.currentChunk().EmitJump(op, c.previous.Pos.Line)
}

func (c *compiler) patchJump(h JumpHandle) {
	if err := c.currentChunk().PatchJump(h); err != nil {
		c.error(err.Error())
	}
}

func (c *compiler) emitLoop(start int) {
	if err := c.currentChunk().EmitLoop(OP_LOOP, start, c.previous.Pos.Line); err != nil {
		c.error(err.Error())
	}
}

// identifierConstant interns the name and stores it in the constant pool.
func (c *compiler) identifierConstant(name string) byte {
	return c.makeConstant(object.FromObj(c.heap.CopyString(name)))
}
