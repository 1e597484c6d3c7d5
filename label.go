package main

// LabelID is an opaque dense id issued by a LabelTable. Every id is
// eventually bound exactly once to a (Section, offset) pair; using an
// unbound id is an internal error.
type LabelID uint32

// LabelTable is the symbol and RVA registry (spec.md §4.1). It is
// shared by the scope manager, the instruction encoder, and the
// two-pass driver.
type LabelTable struct {
	next    LabelID
	section map[LabelID]Section
	offset  map[LabelID]uint32
	rva     [sectionCount]uint32
	rvaSet  [sectionCount]bool
}

// NewLabelTable returns an empty registry.
func NewLabelTable() *LabelTable {
	return &LabelTable{
		section: make(map[LabelID]Section),
		offset:  make(map[LabelID]uint32),
	}
}

// Fresh issues a new, as-yet-unbound label id.
func (t *LabelTable) Fresh() LabelID {
	id := t.next
	t.next++
	return id
}

// Bind associates id with a section-relative offset. Calling Bind twice
// for the same id is an internal error.
func (t *LabelTable) Bind(id LabelID, sect Section, offset uint32) error {
	if _, ok := t.section[id]; ok {
		return internalErrorf("label %d already bound", id)
	}
	t.section[id] = sect
	t.offset[id] = offset
	return nil
}

// IsBound reports whether id has been bound yet.
func (t *LabelTable) IsBound(id LabelID) bool {
	_, ok := t.section[id]
	return ok
}

// SetSectionRVA records the virtual address assigned to a section by
// the layout pass. May only be set once per section.
func (t *LabelTable) SetSectionRVA(s Section, rva uint32) {
	t.rva[s] = rva
	t.rvaSet[s] = true
}

// SectionRVA returns the virtual address of a section; only valid after
// layout has run.
func (t *LabelTable) SectionRVA(s Section) (uint32, error) {
	if !t.rvaSet[s] {
		return 0, internalErrorf("section %s has no RVA yet", s)
	}
	return t.rva[s], nil
}

// AbsoluteRVA returns the RVA of the bound label: its section's base
// RVA plus its section-relative offset.
func (t *LabelTable) AbsoluteRVA(id LabelID) (uint32, error) {
	sect, ok := t.section[id]
	if !ok {
		return 0, internalErrorf("use of unbound label %d", id)
	}
	base, err := t.SectionRVA(sect)
	if err != nil {
		return 0, err
	}
	return base + t.offset[id], nil
}

// Relative computes target_rva - (code_pc + inst_len) as a signed
// 32-bit displacement, used for branches and RIP-relative memory
// operands. codePC is the offset of the instruction's first byte
// within .text; instLen is the instruction's total encoded length.
func (t *LabelTable) Relative(id LabelID, codePC, instLen uint32) (int32, error) {
	target, err := t.AbsoluteRVA(id)
	if err != nil {
		return 0, err
	}
	textRVA, err := t.SectionRVA(Text)
	if err != nil {
		return 0, err
	}
	origin := int64(textRVA) + int64(codePC) + int64(instLen)
	disp := int64(target) - origin
	if disp < -0x8000_0000 || disp > 0x7FFF_FFFF {
		return 0, internalErrorf("relative displacement %d to label %d overflows rel32", disp, id)
	}
	return int32(disp), nil
}
