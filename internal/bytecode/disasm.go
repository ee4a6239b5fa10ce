package bytecode

import (
	"fmt"
	"io"
	"strings"

	"github.com/xirelogy/go-lox/internal/object"
)

// Disassembler formats bytecode as a readable assembly-style dump.
type Disassembler struct {
	w       io.Writer
	visited map[*object.Function]bool
	printed bool
}

// NewDisassembler constructs a disassembler that writes to w.
func NewDisassembler(w io.Writer) *Disassembler {
	return &Disassembler{
		w:       w,
		visited: make(map[*object.Function]bool),
	}
}

// DisassembleFunction emits a dump of fn followed by every function found in
// its constant pool.
func (d *Disassembler) DisassembleFunction(fn *object.Function) error {
	if fn == nil {
		return fmt.Errorf("nil function")
	}
	if d.visited[fn] {
		return nil
	}
	d.visited[fn] = true
	if err := d.DisassembleChunk(&fn.Chunk, fn.DisplayName()); err != nil {
		return err
	}
	for _, c := range fn.Chunk.Constants {
		child, ok := c.Obj.(*object.Function)
		if !ok || c.Kind != object.KindObj {
			continue
		}
		if err := d.DisassembleFunction(child); err != nil {
			return err
		}
	}
	return nil
}

// DisassembleChunk emits a header followed by one line per instruction.
func (d *Disassembler) DisassembleChunk(chunk *object.Chunk, name string) error {
	if chunk == nil {
		return fmt.Errorf("nil chunk")
	}
	if d.printed {
		fmt.Fprintln(d.w)
	}
	d.printed = true
	fmt.Fprintf(d.w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		next, err := d.DisassembleInstruction(chunk, offset)
		if err != nil {
			return err
		}
		offset = next
	}
	return nil
}

// DisassembleInstruction writes the instruction at offset and returns the
// offset of the next one.
func (d *Disassembler) DisassembleInstruction(chunk *object.Chunk, offset int) (int, error) {
	line, next, err := FormatInstruction(chunk, offset)
	if err != nil {
		return next, err
	}
	fmt.Fprintln(d.w, line)
	return next, nil
}

// FormatInstruction renders the instruction at offset without a trailing
// newline and returns the offset of the next instruction.
func FormatInstruction(chunk *object.Chunk, offset int) (string, int, error) {
	code := chunk.Code
	if offset < 0 || offset >= len(code) {
		return "", offset, fmt.Errorf("offset %d out of range", offset)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(&b, "%4d ", chunk.Lines[offset])
	}

	op := code[offset]
	def, err := Lookup(op)
	if err != nil {
		fmt.Fprintf(&b, "Unknown opcode %d", op)
		return b.String(), offset + 1, nil
	}
	ip := offset + 1
	switch def.Operand {
	case OperandConstant:
		idx, err := readU8(code, &ip)
		if err != nil {
			return "", ip, err
		}
		fmt.Fprintf(&b, "%-16s %4d '%s'", def.Name, idx, formatConst(chunk, idx))
	case OperandByte:
		slot, err := readU8(code, &ip)
		if err != nil {
			return "", ip, err
		}
		fmt.Fprintf(&b, "%-16s %4d", def.Name, slot)
	case OperandJump, OperandLoop:
		dist, err := readU16(code, &ip)
		if err != nil {
			return "", ip, err
		}
		target := ip + int(dist)
		if def.Operand == OperandLoop {
			target = ip - int(dist)
		}
		fmt.Fprintf(&b, "%-16s %4d -> %d", def.Name, offset, target)
	default:
		b.WriteString(def.Name)
	}
	return b.String(), ip, nil
}

func readU8(code []byte, ip *int) (byte, error) {
	if *ip >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	val := code[*ip]
	*ip = *ip + 1
	return val, nil
}

func readU16(code []byte, ip *int) (uint16, error) {
	if *ip+1 >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	hi := code[*ip]
	lo := code[*ip+1]
	*ip += 2
	return uint16(hi)<<8 | uint16(lo), nil
}

func formatConst(chunk *object.Chunk, idx byte) string {
	if int(idx) >= len(chunk.Constants) {
		return "<invalid>"
	}
	return chunk.Constants[idx].String()
}
