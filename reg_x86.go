package main

// Register is a single x86-64 register: either one of the 16
// general-purpose 64-bit registers or one of the 16 XMM registers.
// Encoding is the 0..15 index; bit 3 (>= 8) drives REX.B/R/X.
// Adapted from the teacher's Register type (reg.go) but trimmed to the
// one architecture this spec targets.
type Register struct {
	Name     string
	Encoding uint8
	IsXMM    bool
}

// High reports whether this register's encoding needs a REX extension
// bit when referenced.
func (r Register) High() bool { return r.Encoding >= 8 }

// Low3 is the 3 bits embedded directly in ModR/M or an opcode.
func (r Register) Low3() uint8 { return r.Encoding & 7 }

var gpRegisters = []Register{
	{Name: "rax", Encoding: 0}, {Name: "rcx", Encoding: 1},
	{Name: "rdx", Encoding: 2}, {Name: "rbx", Encoding: 3},
	{Name: "rsp", Encoding: 4}, {Name: "rbp", Encoding: 5},
	{Name: "rsi", Encoding: 6}, {Name: "rdi", Encoding: 7},
	{Name: "r8", Encoding: 8}, {Name: "r9", Encoding: 9},
	{Name: "r10", Encoding: 10}, {Name: "r11", Encoding: 11},
	{Name: "r12", Encoding: 12}, {Name: "r13", Encoding: 13},
	{Name: "r14", Encoding: 14}, {Name: "r15", Encoding: 15},
}

var xmmRegisters = []Register{
	{Name: "xmm0", Encoding: 0, IsXMM: true}, {Name: "xmm1", Encoding: 1, IsXMM: true},
	{Name: "xmm2", Encoding: 2, IsXMM: true}, {Name: "xmm3", Encoding: 3, IsXMM: true},
	{Name: "xmm4", Encoding: 4, IsXMM: true}, {Name: "xmm5", Encoding: 5, IsXMM: true},
	{Name: "xmm6", Encoding: 6, IsXMM: true}, {Name: "xmm7", Encoding: 7, IsXMM: true},
	{Name: "xmm8", Encoding: 8, IsXMM: true}, {Name: "xmm9", Encoding: 9, IsXMM: true},
	{Name: "xmm10", Encoding: 10, IsXMM: true}, {Name: "xmm11", Encoding: 11, IsXMM: true},
	{Name: "xmm12", Encoding: 12, IsXMM: true}, {Name: "xmm13", Encoding: 13, IsXMM: true},
	{Name: "xmm14", Encoding: 14, IsXMM: true}, {Name: "xmm15", Encoding: 15, IsXMM: true},
}

// Named registers used by the prologue/epilogue, calling convention,
// and codegen shortcuts.
var (
	Rax = gpRegisters[0]
	Rcx = gpRegisters[1]
	Rdx = gpRegisters[2]
	Rbx = gpRegisters[3]
	Rsp = gpRegisters[4]
	Rbp = gpRegisters[5]
	Rsi = gpRegisters[6]
	Rdi = gpRegisters[7]
	R8  = gpRegisters[8]
	R9  = gpRegisters[9]
	R10 = gpRegisters[10]
	R11 = gpRegisters[11]
	R12 = gpRegisters[12]
	R13 = gpRegisters[13]
)

// Win64 integer argument registers, in order.
var WinArgRegs = []Register{Rcx, Rdx, R8, R9}

// Win64 non-volatile (callee-saved) general-purpose registers.
var CalleeSaved = map[uint8]bool{
	Rbx.Encoding: true, Rbp.Encoding: true, Rsi.Encoding: true, Rdi.Encoding: true,
	R12.Encoding: true, R13.Encoding: true, 14: true, 15: true,
}

// byteRegisterForbidden reports whether encoding r in a legacy 8-bit
// form without a REX prefix would collide with ah/ch/dh/bh (spec.md
// §3/§4.3 rule 5). spl/bpl/sil/dil (encodings 4-7) require REX to be
// addressed as 8-bit registers at all; this spec never emits those
// forms without a REX byte already present for other reasons, so no
// legal 8-bit instruction variant here ever needs to guard against it
// beyond rejecting encodings 4-7 in a REX-less context.
func byteRegisterForbidden(r Register, hasRex bool) bool {
	return !hasRex && r.Encoding >= 4 && r.Encoding <= 7
}

// XMM returns the XMM register with the given index (0..15).
func XMM(i uint8) Register { return xmmRegisters[i] }

// GP returns the general-purpose register with the given index (0..15).
func GP(i uint8) Register { return gpRegisters[i] }
