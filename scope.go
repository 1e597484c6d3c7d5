package main

import "sort"

// scope.go is the stack/scope manager: a coalescing free-list allocator
// for locals and temporaries within one function's activation record,
// ported field-for-field from original_source/src/scope_info.rs (the
// jsonpiler original this spec was distilled from). No analog exists in
// the teacher repo, so the allocator algorithm itself is grounded
// directly on the original rather than on xyproto-flapc; the coding
// style (plain error returns, no custom allocator library) follows the
// teacher's conventions throughout. This is a closed bookkeeping
// algorithm with no ecosystem library covering it, hence stdlib-only
// (see DESIGN.md).

// allocSpan is one coalesced free run in the scope's stack frame.
type allocSpan struct {
	start uint32
	size  uint32
}

// freeList keeps allocSpans sorted by start so push/free can binary
// search for neighbors, mirroring the Rust original's BTreeMap<usize,
// usize> range queries.
type freeList struct {
	spans []allocSpan
}

func (f *freeList) insert(start, size uint32) {
	i := sort.Search(len(f.spans), func(i int) bool { return f.spans[i].start >= start })
	f.spans = append(f.spans, allocSpan{})
	copy(f.spans[i+1:], f.spans[i:])
	f.spans[i] = allocSpan{start: start, size: size}
}

func (f *freeList) removeAt(i int) allocSpan {
	s := f.spans[i]
	f.spans = append(f.spans[:i], f.spans[i+1:]...)
	return s
}

// prevBefore returns the last span with start < before, if any.
func (f *freeList) prevBefore(before uint32) (allocSpan, int, bool) {
	i := sort.Search(len(f.spans), func(i int) bool { return f.spans[i].start >= before })
	if i == 0 {
		return allocSpan{}, -1, false
	}
	return f.spans[i-1], i - 1, true
}

// nextFrom returns the first span with start >= from, if any.
func (f *freeList) nextFrom(from uint32) (allocSpan, int, bool) {
	i := sort.Search(len(f.spans), func(i int) bool { return f.spans[i].start >= from })
	if i == len(f.spans) {
		return allocSpan{}, -1, false
	}
	return f.spans[i], i, true
}

// Scope is one lexical nesting level's view of the function's frame;
// Begin/End push and pop these exactly as the original's
// ScopeInfo::begin/end do.
type Scope struct {
	body       []Instruction
	free       freeList
	argsSlots  uint32
	locals     []map[string]Memory
	vars       []map[string]Value // named language-level variable bindings (variable.rs's scope.locals), lockstep with locals
	regUsed    map[uint8]bool
	scopeAlign uint32
	stackSize  uint32
}

// NewScope creates the outermost scope for a function body.
func NewScope() *Scope {
	return &Scope{
		locals:  []map[string]Memory{{}},
		vars:    []map[string]Value{{}},
		regUsed: map[uint8]bool{},
	}
}

// BindVar introduces name into the innermost lexical level, failing if
// it already names a variable there (variable.rs's assign rejects
// reassignment within the same scope level).
func (s *Scope) BindVar(name string, v Value) error {
	top := s.vars[len(s.vars)-1]
	if _, exists := top[name]; exists {
		return internalErrorf("scope: %q already bound in this scope", name)
	}
	top[name] = v
	return nil
}

// LookupVar searches the lexical scope stack innermost-first for a
// named variable binding.
func (s *Scope) LookupVar(name string) (Value, bool) {
	for i := len(s.vars) - 1; i >= 0; i-- {
		if v, ok := s.vars[i][name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Emit appends an instruction to the current scope's pending body.
func (s *Scope) Emit(inst Instruction) {
	s.body = append(s.body, inst)
}

// UseReg records that reg was used somewhere in this function, so the
// prologue/epilogue know which callee-saved registers need saving.
func (s *Scope) UseReg(encoding uint8) {
	s.regUsed[encoding] = true
}

// UpdateArgsSlots grows the outbound-call argument shadow area to fit
// at least n stack-passed argument slots (beyond the first four, which
// go in registers per Win64).
func (s *Scope) UpdateArgsSlots(n uint32) {
	if n > s.argsSlots {
		s.argsSlots = n
	}
}

// CalcAlloc computes the total stack frame size: locals/tmps plus
// outbound arg slots, rounded up to 16, plus the caller-supplied extra align
// (room for pushed callee-saved registers), plus the 32-byte Win64
// shadow space.
func (s *Scope) CalcAlloc(align uint32) (uint32, error) {
	argsSize := s.argsSlots * 8
	raw := s.stackSize + argsSize
	locals := alignUp32(raw, 16)
	aligned := locals + align
	const shadowSpace = 32
	return aligned + shadowSpace, nil
}

// Begin opens a nested scope, saving the enclosing scope's pending body
// and allocation state so End can restore it. The returned value plays
// the role of the original's "tmp" ScopeInfo.
func (s *Scope) Begin() *Scope {
	prevAlign := s.scopeAlign
	s.scopeAlign += alignUp32(s.stackSize, 16)
	s.locals = append(s.locals, map[string]Memory{})
	s.vars = append(s.vars, map[string]Value{})

	saved := &Scope{
		body:       s.body,
		free:       s.free,
		stackSize:  s.stackSize,
		scopeAlign: prevAlign,
		locals:     []map[string]Memory{{}},
		vars:       []map[string]Value{{}},
		regUsed:    map[uint8]bool{},
	}
	s.body = nil
	s.free = freeList{}
	s.stackSize = 0
	return saved
}

// End closes the scope opened by the matching Begin, wrapping whatever
// code the nested scope emitted in a sub rsp,N / add rsp,N pair sized
// to that scope's own locals, then restores the enclosing state from
// saved.
func (s *Scope) End(saved *Scope) error {
	align := alignUp32(s.stackSize, 16)
	scopeBody := s.body
	s.body = saved.body
	if align != 0 {
		s.body = append(s.body, SubRId(Rsp, int32(align)))
	}
	s.body = append(s.body, scopeBody...)
	if align != 0 {
		s.body = append(s.body, AddRId(Rsp, int32(align)))
	}
	s.stackSize = saved.stackSize
	s.scopeAlign = saved.scopeAlign
	s.free = saved.free
	s.locals = s.locals[:len(s.locals)-1]
	s.vars = s.vars[:len(s.vars)-1]
	return nil
}

// Free returns a previously allocated (offset, size) pair to the free
// list, coalescing with an adjacent preceding or following span exactly
// as the Rust original's free() does.
func (s *Scope) Free(id uint32, size uint32) error {
	if id < s.scopeAlign {
		return internalErrorf("scope: free id %d below scope_align %d", id, s.scopeAlign)
	}
	end := id - s.scopeAlign
	if size > end {
		return internalErrorf("scope: free size %d exceeds end %d", size, end)
	}
	start := end - size

	if prev, idx, ok := s.free.prevBefore(start); ok {
		if prev.start+prev.size == start {
			s.free.removeAt(idx)
			start = prev.start
			size += prev.size
		}
	}
	if next, idx, ok := s.free.nextFrom(start); ok {
		if end == next.start {
			s.free.removeAt(idx)
			size += next.size
		}
	}
	s.free.insert(start, size)
	return nil
}

// push is the first-fit allocator: find a free span this allocation
// fits in (splitting off left padding and a right remainder), or else
// bump the high-water stackSize mark.
func (s *Scope) push(size uint32) (uint32, error) {
	for i, span := range s.free.spans {
		alignedStart := alignUp32(span.start, size)
		padding := alignedStart - span.start
		if span.size >= padding+size {
			s.free.removeAt(i)
			if padding > 0 {
				s.free.insert(span.start, padding)
			}
			usedEnd := alignedStart + size
			tailSize := (span.start + span.size) - usedEnd
			if tailSize > 0 {
				s.free.insert(usedEnd, tailSize)
			}
			return usedEnd, nil
		}
	}
	alignedStart := alignUp32(s.stackSize, size)
	if alignedStart > s.stackSize {
		s.free.insert(s.stackSize, alignedStart-s.stackSize)
	}
	newEnd := alignedStart + size
	s.stackSize = newEnd
	return newEnd, nil
}

// Local allocates a named local variable's backing storage and binds
// it in the innermost lexical scope.
func (s *Scope) Local(name string, size uint32) (Memory, error) {
	id, err := s.push(size)
	if err != nil {
		return Memory{}, err
	}
	m := memLocal(int32(id + s.scopeAlign))
	s.locals[len(s.locals)-1][name] = m
	return m, nil
}

// Tmp allocates an anonymous scratch slot; the caller is responsible
// for calling Free once the value is no longer live.
func (s *Scope) Tmp(size uint32) (Memory, error) {
	id, err := s.push(size)
	if err != nil {
		return Memory{}, err
	}
	return memTmp(int32(id + s.scopeAlign)), nil
}

// MovTmp allocates an 8-byte temporary, emits a store of reg into it,
// and returns the slot (the original's mov_tmp).
func (s *Scope) MovTmp(reg Register) (Memory, error) {
	slot, err := s.Tmp(8)
	if err != nil {
		return Memory{}, err
	}
	s.Emit(MovQQ(MovPair{Dst: movMem(slot), Src: movReg(reg)}))
	return slot, nil
}

// Lookup searches the lexical scope stack innermost-first for name.
func (s *Scope) Lookup(name string) (Memory, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if m, ok := s.locals[i][name]; ok {
			return m, true
		}
	}
	return Memory{}, false
}
