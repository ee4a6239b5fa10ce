// Package heap owns every object allocated during an interpreter session.
//
// Strings are interned on allocation: the heap keeps a table of every live
// string, so two strings with the same bytes are always the same object and
// can be compared by pointer. Objects are never reclaimed individually; Free
// releases the whole heap at once when the session ends.
package heap

import (
	"github.com/tliron/commonlog"

	"github.com/xirelogy/go-lox/internal/object"
	"github.com/xirelogy/go-lox/internal/table"
)

type Heap struct {
	objects []object.Obj
	strings table.Table
	log     commonlog.Logger
}

func New() *Heap {
	return &Heap{log: commonlog.GetLogger("lox.heap")}
}

// CopyString returns the interned string holding chars.
func (h *Heap) CopyString(chars string) *object.String {
	hash := object.HashString(chars)
	if interned := h.strings.FindString(chars, hash); interned != nil {
		return interned
	}
	return h.allocateString(chars, hash)
}

// TakeString interns buf, taking ownership of it. Concatenation builds its
// result in a fresh buffer and hands it over here.
func (h *Heap) TakeString(buf []byte) *object.String {
	chars := string(buf)
	hash := object.HashString(chars)
	if interned := h.strings.FindString(chars, hash); interned != nil {
		return interned
	}
	return h.allocateString(chars, hash)
}

// FindString returns the interned string holding chars without allocating,
// or nil.
func (h *Heap) FindString(chars string) *object.String {
	return h.strings.FindString(chars, object.HashString(chars))
}

func (h *Heap) allocateString(chars string, hash uint32) *object.String {
	s := &object.String{Chars: chars, Hash: hash}
	h.track(s)
	h.strings.Set(s, object.Nil())
	return s
}

// NewFunction allocates an empty function ready to receive bytecode.
func (h *Heap) NewFunction() *object.Function {
	fn := &object.Function{}
	h.track(fn)
	return fn
}

// NewNative wraps a host callback.
func (h *Heap) NewNative(name string, fn object.NativeFn) *object.Native {
	n := &object.Native{Name: name, Fn: fn}
	h.track(n)
	return n
}

func (h *Heap) track(o object.Obj) {
	h.objects = append(h.objects, o)
}

// Objects returns the number of live objects.
func (h *Heap) Objects() int {
	return len(h.objects)
}

// Strings returns the number of interned strings.
func (h *Heap) Strings() int {
	return h.strings.Len()
}

// Free releases every object and empties the intern table. It returns the
// number of objects released.
func (h *Heap) Free() int {
	n := len(h.objects)
	for i := range h.objects {
		h.objects[i] = nil
	}
	h.objects = nil
	h.strings.Clear()
	if n > 0 {
		h.log.Debugf("freed %d objects", n)
	}
	return n
}
