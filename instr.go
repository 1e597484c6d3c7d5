package main

// CC is an x86-64 condition code, used by Jcc/SetCc/CMovCc. Values are
// the low nibble of the 0F 8x/0F 9x/0F 4x opcode maps.
type CC uint8

const (
	CCO  CC = 0x0
	CCNO CC = 0x1
	CCB  CC = 0x2 // below / carry
	CCAE CC = 0x3 // above-or-equal / not-carry
	CCE  CC = 0x4 // equal / zero
	CCNE CC = 0x5 // not-equal / not-zero
	CCBE CC = 0x6
	CCA  CC = 0x7
	CCS  CC = 0x8
	CCNS CC = 0x9
	CCL  CC = 0xC
	CCGE CC = 0xD
	CCLE CC = 0xE
	CCG  CC = 0xF
)

// LogicOp selects the bitwise operation for LogicRR/LogicRbRb.
type LogicOp int

const (
	LogicAnd LogicOp = iota
	LogicOr
	LogicXor
	LogicTest
)

// Op is the tag of the Instruction sum type. Variant names follow the
// jsonpiler Rust original's Inst enum (original_source/src/assembler.rs)
// one-to-one, transliterated into Go.
type Op int

const (
	OpCustom Op = iota
	OpNegR
	OpNotR
	OpLogicRR
	OpIncR
	OpDecR
	OpShl1R
	OpIDivR
	OpSubRR
	OpAddRR
	OpCMovCc
	OpSarRIb
	OpShrRIb
	OpShlRIb
	OpIMulRR
	OpCmpRIb
	OpCvtSi2Sd
	OpCvtTSd2Si
	OpJmp
	OpCall
	OpJCc
	OpCallImp
	OpSubRId
	OpAddRId
	OpAddSd
	OpSubSd
	OpMulSd
	OpDivSd
	OpMovSdXM
	OpMovSdMX
	OpLeaRM
	OpNegRb
	OpNotRb
	OpClear
	OpMovBB
	OpMovQQ
	OpMovDD
	OpLogicRbRb
	OpTestRdRd
	OpPop
	OpPush
	OpSetCc
	OpMovArgSlot // stack-arg slot <- reg (outbound call argument)
	OpMovDerefReg // [reg] <- reg : store through a runtime pointer
	OpLbl
)

// MovOperand is either a register or a Memory location, used by the
// width-polymorphic Mov{B,Q,D}{B,Q,D} variants exactly as jsonpiler's
// Operand enum (Reg|Mem) does.
type MovOperand struct {
	IsMem bool
	Reg   Register
	Mem   Memory
}

func movReg(r Register) MovOperand  { return MovOperand{Reg: r} }
func movMem(m Memory) MovOperand    { return MovOperand{IsMem: true, Mem: m} }

// MovPair is the (dst, src) operand pair for a move; exactly one side
// may be an immediate (carried in HasImm/Imm below, in place of Src),
// never both sides memory.
type MovPair struct {
	Dst, Src MovOperand
	HasImm   bool
	Imm      int64
}

// Instruction is the tagged union over every supported opcode shape
// (spec.md §3). A non-exhaustive but closed core set. Lbl emits no
// bytes and binds an id to the current text offset.
type Instruction struct {
	Op Op

	Reg, Reg2 Register
	Mem       Memory
	Imm8      int8
	Imm32     int32
	Imm64     int64
	Label     LabelID
	Cond      CC
	Logic     LogicOp
	Bytes     []byte

	MovB, MovQ, MovD MovPair // payload for OpMovBB / OpMovQQ / OpMovDD
}

// --- constructors mirroring the teacher's per-opcode helper style ---

func Custom(b []byte) Instruction              { return Instruction{Op: OpCustom, Bytes: b} }
func NegR(r Register) Instruction               { return Instruction{Op: OpNegR, Reg: r} }
func NotR(r Register) Instruction               { return Instruction{Op: OpNotR, Reg: r} }
func LogicRR(op LogicOp, dst, src Register) Instruction {
	return Instruction{Op: OpLogicRR, Logic: op, Reg: dst, Reg2: src}
}
func IncR(r Register) Instruction  { return Instruction{Op: OpIncR, Reg: r} }
func DecR(r Register) Instruction  { return Instruction{Op: OpDecR, Reg: r} }
func Shl1R(r Register) Instruction { return Instruction{Op: OpShl1R, Reg: r} }
func IDivR(r Register) Instruction { return Instruction{Op: OpIDivR, Reg: r} }
func SubRR(dst, src Register) Instruction { return Instruction{Op: OpSubRR, Reg: dst, Reg2: src} }
func AddRR(dst, src Register) Instruction { return Instruction{Op: OpAddRR, Reg: dst, Reg2: src} }
func CMovCc(cc CC, dst, src Register) Instruction {
	return Instruction{Op: OpCMovCc, Cond: cc, Reg: dst, Reg2: src}
}
func SarRIb(r Register, imm int8) Instruction { return Instruction{Op: OpSarRIb, Reg: r, Imm8: imm} }
func ShrRIb(r Register, imm int8) Instruction { return Instruction{Op: OpShrRIb, Reg: r, Imm8: imm} }
func ShlRIb(r Register, imm int8) Instruction { return Instruction{Op: OpShlRIb, Reg: r, Imm8: imm} }
func IMulRR(dst, src Register) Instruction    { return Instruction{Op: OpIMulRR, Reg: dst, Reg2: src} }
func CmpRIb(r Register, imm int8) Instruction { return Instruction{Op: OpCmpRIb, Reg: r, Imm8: imm} }
func CvtSi2Sd(dst Register, src Register) Instruction {
	return Instruction{Op: OpCvtSi2Sd, Reg: dst, Reg2: src}
}
func CvtTSd2Si(dst, src Register) Instruction {
	return Instruction{Op: OpCvtTSd2Si, Reg: dst, Reg2: src}
}
func Jmp(id LabelID) Instruction  { return Instruction{Op: OpJmp, Label: id} }
func Call(id LabelID) Instruction { return Instruction{Op: OpCall, Label: id} }
func JCc(cc CC, id LabelID) Instruction { return Instruction{Op: OpJCc, Cond: cc, Label: id} }
func CallImp(id LabelID) Instruction    { return Instruction{Op: OpCallImp, Label: id} }
func SubRId(r Register, imm int32) Instruction { return Instruction{Op: OpSubRId, Reg: r, Imm32: imm} }
func AddRId(r Register, imm int32) Instruction { return Instruction{Op: OpAddRId, Reg: r, Imm32: imm} }
func AddSd(dst, src Register) Instruction { return Instruction{Op: OpAddSd, Reg: dst, Reg2: src} }
func SubSd(dst, src Register) Instruction { return Instruction{Op: OpSubSd, Reg: dst, Reg2: src} }
func MulSd(dst, src Register) Instruction { return Instruction{Op: OpMulSd, Reg: dst, Reg2: src} }
func DivSd(dst, src Register) Instruction { return Instruction{Op: OpDivSd, Reg: dst, Reg2: src} }
func MovSdXM(dst Register, mem Memory) Instruction {
	return Instruction{Op: OpMovSdXM, Reg: dst, Mem: mem}
}
func MovSdMX(mem Memory, src Register) Instruction {
	return Instruction{Op: OpMovSdMX, Reg: src, Mem: mem}
}
func LeaRM(dst Register, mem Memory) Instruction { return Instruction{Op: OpLeaRM, Reg: dst, Mem: mem} }
func NegRb(r Register) Instruction  { return Instruction{Op: OpNegRb, Reg: r} }
func NotRb(r Register) Instruction  { return Instruction{Op: OpNotRb, Reg: r} }
func Clear(r Register) Instruction  { return Instruction{Op: OpClear, Reg: r} }
func MovBB(p MovPair) Instruction   { return Instruction{Op: OpMovBB, MovB: p} }
func MovQQ(p MovPair) Instruction   { return Instruction{Op: OpMovQQ, MovQ: p} }
func MovDD(p MovPair) Instruction   { return Instruction{Op: OpMovDD, MovD: p} }
func LogicRbRb(op LogicOp, dst, src Register) Instruction {
	return Instruction{Op: OpLogicRbRb, Logic: op, Reg: dst, Reg2: src}
}
func TestRdRd(dst, src Register) Instruction { return Instruction{Op: OpTestRdRd, Reg: dst, Reg2: src} }
func Pop(r Register) Instruction  { return Instruction{Op: OpPop, Reg: r} }
func Push(r Register) Instruction { return Instruction{Op: OpPush, Reg: r} }
func SetCc(cc CC, r Register) Instruction { return Instruction{Op: OpSetCc, Cond: cc, Reg: r} }
func MovArgSlot(slot int32, r Register) Instruction {
	return Instruction{Op: OpMovArgSlot, Imm32: slot, Reg: r}
}
func MovDerefReg(base, src Register) Instruction {
	return Instruction{Op: OpMovDerefReg, Reg: base, Reg2: src}
}
func Lbl(id LabelID) Instruction { return Instruction{Op: OpLbl, Label: id} }

// movQ builds a quad-width reg<-reg move, a convenience matching the
// teacher's mov_q helper (assembler.rs imports it for the prologue).
func movQ(dst, src Register) Instruction {
	return MovQQ(MovPair{Dst: movReg(dst), Src: movReg(src)})
}

func movQImm(dst Register, imm int64) Instruction {
	return MovQQ(MovPair{Dst: movReg(dst), HasImm: true, Imm: imm})
}
