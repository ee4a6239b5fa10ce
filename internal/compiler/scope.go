package compiler

const (
	maxLocals = 256
	maxParams = 255
	maxArgs   = 255
)

type functionKind int

const (
	kindScript functionKind = iota
	kindFunction
)

// local is a variable living in a stack slot. depth is -1 while its
// initializer is still being compiled.
type local struct {
	name  string
	depth int
}

// funcState tracks the function currently being compiled. Nested function
// declarations push a new state on the compiler's stack.
type funcState struct {
	fn         *Function
	kind       functionKind
	locals     []local
	scopeDepth int
}

func newFuncState(fn *Function, kind functionKind) *funcState {
	s := &funcState{
		fn:     fn,
		kind:   kind,
		locals: make([]local, 0, 8),
	}
	// slot 0 holds the callee
	s.locals = append(s.locals, local{name: "", depth: 0})
	return s
}

func (c *compiler) state() *funcState {
	return c.states[len(c.states)-1]
}

func (c *compiler) beginScope() {
	c.state().scopeDepth++
}

// endScope discards the locals of the innermost block.
func (c *compiler) endScope() {
	s := c.state()
	s.scopeDepth--
	for len(s.locals) > 0 && s.locals[len(s.locals)-1].depth > s.scopeDepth {
		c.emitByte(OP_POP)
		s.locals = s.locals[:len(s.locals)-1]
	}
}

func (c *compiler) addLocal(name string) {
	s := c.state()
	if len(s.locals) == maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	s.locals = append(s.locals, local{name: name, depth: -1})
}

// declareVariable records the identifier just consumed as a local of the
// current block. Globals are late bound and need no declaration.
func (c *compiler) declareVariable() {
	s := c.state()
	if s.scopeDepth == 0 {
		return
	}
	name := c.previous.Literal
	for i := len(s.locals) - 1; i >= 0; i-- {
		l := s.locals[i]
		if l.depth != -1 && l.depth < s.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *compiler) markInitialized() {
	s := c.state()
	if s.scopeDepth == 0 {
		return
	}
	s.locals[len(s.locals)-1].depth = s.scopeDepth
}

// resolveLocal returns the slot of name in the current function.
func (c *compiler) resolveLocal(name string) (byte, bool) {
	s := c.state()
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].name != name {
			continue
		}
		if s.locals[i].depth == -1 {
			c.error("Can't read local variable in its own initializer.")
		}
		return byte(i), true
	}
	return 0, false
}
