package object

import "fmt"

// ObjType identifies a heap object variant.
type ObjType uint8

const (
	TypeString ObjType = iota
	TypeFunction
	TypeNative
)

func (t ObjType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeFunction:
		return "function"
	case TypeNative:
		return "native"
	default:
		return "object"
	}
}

// Obj is implemented by every heap-allocated object. Objects are created
// through a heap.Heap, which owns them until the session is torn down.
type Obj interface {
	Type() ObjType
	String() string
}

// String is an immutable interned byte sequence with its cached hash.
// Two live String objects never hold the same bytes within one heap.
type String struct {
	Chars string
	Hash  uint32
}

func (s *String) Type() ObjType  { return TypeString }
func (s *String) String() string { return s.Chars }

// Function is a compiled Lox function. The top-level script is a Function
// with a nil Name.
type Function struct {
	Name  *String
	Arity int
	Chunk Chunk
}

func (f *Function) Type() ObjType { return TypeFunction }

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// DisplayName is the name used in stack traces and disassembly headers.
func (f *Function) DisplayName() string {
	if f.Name == nil {
		return "script"
	}
	return f.Name.Chars
}

// NativeFn is a host callback. The args slice aliases the VM stack and must
// not be retained after the call returns.
type NativeFn func(args []Value) (Value, error)

// Native wraps a host callback so it can be stored in a Value.
type Native struct {
	Name string
	Fn   NativeFn
}

func (n *Native) Type() ObjType  { return TypeNative }
func (n *Native) String() string { return "<native fn>" }

// HashString computes the 32-bit FNV-1a hash used for interning and table
// probing.
func HashString(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}
