package bytecode

import "fmt"

// OpCode enumerates bytecode operations.
// The encoding is private to one process; values carry no compatibility promise.
const (
	OP_CONSTANT byte = iota
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP

	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_GLOBAL
	OP_DEFINE_GLOBAL
	OP_SET_GLOBAL

	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE

	OP_PRINT

	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP

	OP_CALL
	OP_RETURN

	opCount
)

// Operand layouts.
const (
	OperandNone     = iota // no operand
	OperandConstant        // 1-byte constant pool index
	OperandByte            // 1-byte slot or argument count
	OperandJump            // 2-byte forward distance
	OperandLoop            // 2-byte backward distance
)

// Definition describes how an opcode is named and encoded.
type Definition struct {
	Name    string
	Operand int
}

var definitions = [opCount]Definition{
	OP_CONSTANT:      {"OP_CONSTANT", OperandConstant},
	OP_NIL:           {"OP_NIL", OperandNone},
	OP_TRUE:          {"OP_TRUE", OperandNone},
	OP_FALSE:         {"OP_FALSE", OperandNone},
	OP_POP:           {"OP_POP", OperandNone},
	OP_GET_LOCAL:     {"OP_GET_LOCAL", OperandByte},
	OP_SET_LOCAL:     {"OP_SET_LOCAL", OperandByte},
	OP_GET_GLOBAL:    {"OP_GET_GLOBAL", OperandConstant},
	OP_DEFINE_GLOBAL: {"OP_DEFINE_GLOBAL", OperandConstant},
	OP_SET_GLOBAL:    {"OP_SET_GLOBAL", OperandConstant},
	OP_EQUAL:         {"OP_EQUAL", OperandNone},
	OP_GREATER:       {"OP_GREATER", OperandNone},
	OP_LESS:          {"OP_LESS", OperandNone},
	OP_ADD:           {"OP_ADD", OperandNone},
	OP_SUBTRACT:      {"OP_SUBTRACT", OperandNone},
	OP_MULTIPLY:      {"OP_MULTIPLY", OperandNone},
	OP_DIVIDE:        {"OP_DIVIDE", OperandNone},
	OP_NOT:           {"OP_NOT", OperandNone},
	OP_NEGATE:        {"OP_NEGATE", OperandNone},
	OP_PRINT:         {"OP_PRINT", OperandNone},
	OP_JUMP:          {"OP_JUMP", OperandJump},
	OP_JUMP_IF_FALSE: {"OP_JUMP_IF_FALSE", OperandJump},
	OP_LOOP:          {"OP_LOOP", OperandLoop},
	OP_CALL:          {"OP_CALL", OperandByte},
	OP_RETURN:        {"OP_RETURN", OperandNone},
}

// Lookup returns the definition of op.
func Lookup(op byte) (Definition, error) {
	if op >= opCount {
		return Definition{}, fmt.Errorf("opcode %d undefined", op)
	}
	return definitions[op], nil
}

// Name returns the mnemonic for op, or a placeholder for unknown bytes.
func Name(op byte) string {
	def, err := Lookup(op)
	if err != nil {
		return fmt.Sprintf("OP_UNKNOWN(%d)", op)
	}
	return def.Name
}

// Width returns the encoded size of op including its operands.
func Width(op byte) int {
	def, err := Lookup(op)
	if err != nil {
		return 1
	}
	switch def.Operand {
	case OperandConstant, OperandByte:
		return 2
	case OperandJump, OperandLoop:
		return 3
	default:
		return 1
	}
}
