package main

// Disp is the sum type over ModR/M displacement widths (spec.md §3).
type DispKind int

const (
	DispZero DispKind = iota
	DispByte
	DispDword
)

type Disp struct {
	Kind  DispKind
	Byte  int8
	Dword int32
}

func dispZero() Disp           { return Disp{Kind: DispZero} }
func dispByte(v int8) Disp     { return Disp{Kind: DispByte, Byte: v} }
func dispDword(v int32) Disp   { return Disp{Kind: DispDword, Dword: v} }

// dispFromOffset picks the smallest displacement form that can hold
// off, promoting Zero to Byte(0) when the base register's low 3 bits
// are 5 (rbp/r13) per the encoder tie-break rule.
func dispFromOffset(off int32, baseLow3 uint8) Disp {
	if off == 0 {
		if baseLow3 == 5 {
			return dispByte(0)
		}
		return dispZero()
	}
	if off >= -128 && off <= 127 {
		return dispByte(int8(off))
	}
	return dispDword(off)
}

// RM is the operand-addressing sum type (spec.md §3 table).
type RMKind int

const (
	RMReg RMKind = iota
	RMBase
	RMSib
	RMRipRel
)

type RM struct {
	Kind RMKind

	Reg Register // RMReg

	Base Register // RMBase, RMSib
	Disp Disp     // RMBase, RMSib

	SibBase  Register // RMSib
	SibIndex Register // RMSib
	SibScale uint8     // RMSib: 1,2,4,8

	RipDisp int32 // RMRipRel
}

func rmReg(r Register) RM { return RM{Kind: RMReg, Reg: r} }

// rmBase builds a [base + disp] operand, promoting to SIB automatically
// when base is rsp or r12 (spec.md §4.3 rule 2).
func rmBase(base Register, disp Disp) RM {
	if base.Low3() == 4 {
		return RM{Kind: RMSib, SibBase: base, SibIndex: Register{Encoding: 4}, SibScale: 1, Disp: disp}
	}
	return RM{Kind: RMBase, Base: base, Disp: disp}
}

func rmSib(base, index Register, scale uint8, disp Disp) (RM, error) {
	if index.Low3() == 4 {
		return RM{}, internalErrorf("SIB index cannot be rsp/r12 (encoding %d)", index.Encoding)
	}
	return RM{Kind: RMSib, SibBase: base, SibIndex: index, SibScale: scale, Disp: disp}, nil
}

func rmRipRel(disp int32) RM { return RM{Kind: RMRipRel, RipDisp: disp} }

// MemoryKind is the sum type for where stack slots and globals live
// (spec.md §3).
type MemoryKind int

const (
	MemGlobal MemoryKind = iota
	MemGlobalD
	MemLocal
	MemTmp
)

type Memory struct {
	Kind   MemoryKind
	ID     LabelID // MemGlobal, MemGlobalD
	GDisp  int32   // MemGlobalD
	Offset int32   // MemLocal, MemTmp: positive distance below rbp
}

func memGlobal(id LabelID) Memory               { return Memory{Kind: MemGlobal, ID: id} }
func memGlobalD(id LabelID, disp int32) Memory  { return Memory{Kind: MemGlobalD, ID: id, GDisp: disp} }
func memLocal(off int32) Memory                 { return Memory{Kind: MemLocal, Offset: off} }
func memTmp(off int32) Memory                   { return Memory{Kind: MemTmp, Offset: off} }

// sizeOfPayload returns the number of payload bytes (ModRM + SIB? +
// disp, excluding REX/opcode) a Global* reference costs (5, per
// spec.md §4.3) versus a Local/Tmp reference (2 or 5 depending on
// offset magnitude).
func (m Memory) sizeOfPayload() uint32 {
	switch m.Kind {
	case MemGlobal, MemGlobalD:
		return 5
	default:
		if m.Offset == 0 {
			return 2 // disp8=0, rbp forces disp8 (tie-break rule)
		}
		if d := -m.Offset; d >= -128 && d <= 127 { // resolve encodes disp = -Offset
			return 2
		}
		return 5
	}
}

// resolve turns a Memory reference into a concrete RM, given the label
// table for Global lookups and the instruction's own position (needed
// to compute RIP-relative displacements).
func (m Memory) resolve(labels *LabelTable, codePC, instLen uint32) (RM, error) {
	switch m.Kind {
	case MemGlobal:
		rel, err := labels.Relative(m.ID, codePC, instLen)
		if err != nil {
			return RM{}, err
		}
		return rmRipRel(rel), nil
	case MemGlobalD:
		rel, err := labels.Relative(m.ID, codePC, instLen)
		if err != nil {
			return RM{}, err
		}
		return rmRipRel(rel + m.GDisp), nil
	default: // MemLocal, MemTmp
		return rmBase(Rbp, dispFromOffset(-m.Offset, Rbp.Low3())), nil
	}
}
