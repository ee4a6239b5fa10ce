package compiler

import (
	"strconv"

	"github.com/xirelogy/go-lox/internal/object"
	"github.com/xirelogy/go-lox/internal/token"
)

type precedence int

const (
	precNone precedence = iota
	precAssignment // =
	precOr         // or
	precAnd        // and
	precEquality   // == !=
	precComparison // < > <= >=
	precTerm       // + -
	precFactor     // * /
	precUnary      // ! -
	precCall       // ()
	precPrimary
)

type parseFn func(c *compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

// rules is filled in init because the handlers refer back to it.
var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LParen:       {(*compiler).grouping, (*compiler).call, precCall},
		token.Minus:        {(*compiler).unary, (*compiler).binary, precTerm},
		token.Plus:         {nil, (*compiler).binary, precTerm},
		token.Slash:        {nil, (*compiler).binary, precFactor},
		token.Star:         {nil, (*compiler).binary, precFactor},
		token.Bang:         {(*compiler).unary, nil, precNone},
		token.BangEqual:    {nil, (*compiler).binary, precEquality},
		token.Equal:        {nil, (*compiler).binary, precEquality},
		token.Greater:      {nil, (*compiler).binary, precComparison},
		token.GreaterEqual: {nil, (*compiler).binary, precComparison},
		token.Less:         {nil, (*compiler).binary, precComparison},
		token.LessEqual:    {nil, (*compiler).binary, precComparison},
		token.Ident:        {(*compiler).variable, nil, precNone},
		token.String:       {(*compiler).str, nil, precNone},
		token.Number:       {(*compiler).number, nil, precNone},
		token.And:          {nil, (*compiler).and, precAnd},
		token.Or:           {nil, (*compiler).or, precOr},
		token.False:        {(*compiler).literal, nil, precNone},
		token.Nil:          {(*compiler).literal, nil, precNone},
		token.True:         {(*compiler).literal, nil, precNone},
	}
}

func (c *compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// parsePrecedence compiles an expression whose operators bind at least as
// tightly as prec.
func (c *compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := rules[c.previous.Type].prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= rules[c.current.Type].prec {
		c.advance()
		rules[c.previous.Type].infix(c, canAssign)
	}

	if canAssign && c.match(token.Assign) {
		c.error("Invalid assignment target.")
	}
}

func (c *compiler) grouping(bool) {
	c.expression()
	c.consume(token.RParen, "Expect ')' after expression.")
}

func (c *compiler) number(bool) {
	n, err := strconv.ParseFloat(c.previous.Literal, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(object.Number(n))
}

func (c *compiler) str(bool) {
	lexeme := c.previous.Literal
	chars := lexeme[1 : len(lexeme)-1]
	c.emitConstant(object.FromObj(c.heap.CopyString(chars)))
}

func (c *compiler) literal(bool) {
	switch c.previous.Type {
	case token.False:
		c.emitByte(OP_FALSE)
	case token.Nil:
		c.emitByte(OP_NIL)
	case token.True:
		c.emitByte(OP_TRUE)
	}
}

func (c *compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Literal, canAssign)
}

func (c *compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp byte
	arg, ok := c.resolveLocal(name)
	if ok {
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
	} else {
		arg = c.identifierConstant(name)
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
	}

	if canAssign && c.match(token.Assign) {
		c.expression()
		c.emitBytes(setOp, arg)
		return
	}
	c.emitBytes(getOp, arg)
}

func (c *compiler) unary(bool) {
	op := c.previous.Type
	c.parsePrecedence(precUnary)
	switch op {
	case token.Bang:
		c.emitByte(OP_NOT)
	case token.Minus:
		c.emitByte(OP_NEGATE)
	}
}

// binary compiles the right operand one level above the operator, which
// makes every binary operator left-associative.
func (c *compiler) binary(bool) {
	op := c.previous.Type
	c.parsePrecedence(rules[op].prec + 1)

	switch op {
	case token.BangEqual:
		c.emitBytes(OP_EQUAL, OP_NOT)
	case token.Equal:
		c.emitByte(OP_EQUAL)
	case token.Greater:
		c.emitByte(OP_GREATER)
	case token.GreaterEqual:
		c.emitBytes(OP_LESS, OP_NOT)
	case token.Less:
		c.emitByte(OP_LESS)
	case token.LessEqual:
		c.emitBytes(OP_GREATER, OP_NOT)
	case token.Plus:
		c.emitByte(OP_ADD)
	case token.Minus:
		c.emitByte(OP_SUBTRACT)
	case token.Star:
		c.emitByte(OP_MULTIPLY)
	case token.Slash:
		c.emitByte(OP_DIVIDE)
	}
}

// and leaves the left operand as the result when it is falsey.
func (c *compiler) and(bool) {
	endJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitByte(OP_POP)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or leaves the left operand as the result when it is truthy.
func (c *compiler) or(bool) {
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)
	endJump := c.emitJump(OP_JUMP)

	c.patchJump(elseJump)
	c.emitByte(OP_POP)

	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *compiler) call(bool) {
	argc := c.argumentList()
	c.emitBytes(OP_CALL, argc)
}

func (c *compiler) argumentList() byte {
	argc := 0
	if !c.check(token.RParen) {
		for {
			c.expression()
			if argc == maxArgs {
				c.error("Can't have more than 255 arguments.")
			}
			argc++
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RParen, "Expect ')' after arguments.")
	return byte(argc)
}
