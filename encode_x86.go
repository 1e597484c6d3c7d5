package main

import "encoding/binary"

// encode_x86.go is the byte-exact encoder (spec.md §4.3), ordered to
// match sizeof_x86.go's switch arm-for-arm so the two are easy to diff
// (spec.md §9).
//
// Encoding order follows the teacher's mov.go convention and spec.md's
// explicit note: compute ModR/M + SIB + displacement bytes first, then
// prepend REX iff any of W/R/X/B is needed. Computing REX up front is
// error-prone because the SIB's X bit is suppressed when index==rsp,
// which can only be known after the memory operand has been built.

func le32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func le32u(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

// rex builds the REX prefix byte iff w/r/x/b requires one; returns nil
// otherwise (spec.md §4.3: "emitted iff any of W/R/X/B is set").
func rex(w, r, x, b bool) []byte {
	if !w && !r && !x && !b {
		return nil
	}
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return []byte{v}
}

// encodeModRM renders a ModR/M (+SIB)(+disp) sequence for reg field
// reg3 against addressing mode rm. Returns the bytes plus the REX.X
// and REX.B bits the caller must fold in.
func encodeModRM(reg3 uint8, rm RM, labels *LabelTable, codePC, instLen uint32) ([]byte, bool, bool, error) {
	switch rm.Kind {
	case RMReg:
		modrm := 0xC0 | (reg3 << 3) | rm.Reg.Low3()
		return []byte{modrm}, false, rm.Reg.High(), nil
	case RMBase:
		disp := rm.Disp
		if disp.Kind == DispZero && rm.Base.Low3() == 5 {
			disp = dispByte(0)
		}
		var mod byte
		var tail []byte
		switch disp.Kind {
		case DispZero:
			mod = 0x00
		case DispByte:
			mod = 0x40
			tail = []byte{byte(disp.Byte)}
		case DispDword:
			mod = 0x80
			tail = le32(disp.Dword)
		}
		modrm := mod | (reg3 << 3) | rm.Base.Low3()
		out := append([]byte{modrm}, tail...)
		return out, false, rm.Base.High(), nil
	case RMSib:
		disp := rm.Disp
		if disp.Kind == DispZero && rm.SibBase.Low3() == 5 {
			disp = dispByte(0)
		}
		var mod byte
		var tail []byte
		switch disp.Kind {
		case DispZero:
			mod = 0x00
		case DispByte:
			mod = 0x40
			tail = []byte{byte(disp.Byte)}
		case DispDword:
			mod = 0x80
			tail = le32(disp.Dword)
		}
		modrm := mod | (reg3 << 3) | 0x04 // rm=100 selects SIB
		ss := scaleEncoding(rm.SibScale)
		sib := (ss << 6) | (rm.SibIndex.Low3() << 3) | rm.SibBase.Low3()
		out := append([]byte{modrm, sib}, tail...)
		return out, rm.SibIndex.High(), rm.SibBase.High(), nil
	case RMRipRel:
		modrm := (reg3 << 3) | 0x05 // mod=00 rm=101
		out := append([]byte{modrm}, le32(rm.RipDisp)...)
		return out, false, false, nil
	default:
		return nil, false, false, internalErrorf("encodeModRM: bad RM kind %d", rm.Kind)
	}
}

func scaleEncoding(scale uint8) byte {
	switch scale {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		return 0
	}
}

// encode renders inst to bytes. textPC is the instruction's own start
// offset within .text (needed to resolve Global memory references and
// branch targets); labels must already carry every section RVA and
// every label offset (i.e. this runs in the encoding pass, after
// layout).
func encode(inst Instruction, textPC uint32, labels *LabelTable) ([]byte, error) {
	size, err := sizeOfEncoded(inst, textPC, labels)
	if err != nil {
		return nil, err
	}
	switch inst.Op {
	case OpCustom:
		return inst.Bytes, nil
	case OpNegR:
		return aluSingle(0xF7, 3, inst.Reg, true), nil
	case OpNotR:
		return aluSingle(0xF7, 2, inst.Reg, true), nil
	case OpIncR:
		return aluSingle(0xFF, 0, inst.Reg, true), nil
	case OpDecR:
		return aluSingle(0xFF, 1, inst.Reg, true), nil
	case OpShl1R:
		return aluSingle(0xD1, 4, inst.Reg, true), nil
	case OpIDivR:
		return aluSingle(0xF7, 7, inst.Reg, true), nil
	case OpLogicRR:
		return logicRR(inst.Logic, inst.Reg, inst.Reg2, true)
	case OpSubRR:
		return aluRR(0x29, inst.Reg, inst.Reg2, true), nil
	case OpAddRR:
		return aluRR(0x01, inst.Reg, inst.Reg2, true), nil
	case OpCMovCc:
		return cc0F(0x40, inst.Cond, inst.Reg, inst.Reg2, true), nil
	case OpSarRIb:
		return shiftImm8(7, inst.Reg, inst.Imm8), nil
	case OpShrRIb:
		return shiftImm8(5, inst.Reg, inst.Imm8), nil
	case OpShlRIb:
		return shiftImm8(4, inst.Reg, inst.Imm8), nil
	case OpIMulRR:
		r := rex(true, inst.Reg.High(), false, inst.Reg2.High())
		modrm := byte(0xC0 | (inst.Reg.Low3() << 3) | inst.Reg2.Low3())
		return joinBytes(r, []byte{0x0F, 0xAF, modrm}), nil
	case OpCmpRIb:
		r := rex(true, false, false, inst.Reg.High())
		modrm := byte(0xC0 | (7 << 3) | inst.Reg.Low3())
		return joinBytes(r, []byte{0x83, modrm, byte(inst.Imm8)}), nil
	case OpCvtSi2Sd:
		r := rex(true, inst.Reg.High(), false, inst.Reg2.High())
		modrm := byte(0xC0 | (inst.Reg.Low3() << 3) | inst.Reg2.Low3())
		return joinBytes([]byte{0xF2}, r, []byte{0x0F, 0x2A, modrm}), nil
	case OpCvtTSd2Si:
		r := rex(true, inst.Reg.High(), false, inst.Reg2.High())
		modrm := byte(0xC0 | (inst.Reg.Low3() << 3) | inst.Reg2.Low3())
		return joinBytes([]byte{0xF2}, r, []byte{0x0F, 0x2C, modrm}), nil
	case OpJmp:
		rel, err := labels.Relative(inst.Label, textPC, size)
		if err != nil {
			return nil, err
		}
		return joinBytes([]byte{0xE9}, le32(rel)), nil
	case OpCall:
		rel, err := labels.Relative(inst.Label, textPC, size)
		if err != nil {
			return nil, err
		}
		return joinBytes([]byte{0xE8}, le32(rel)), nil
	case OpJCc:
		rel, err := labels.Relative(inst.Label, textPC, size)
		if err != nil {
			return nil, err
		}
		return joinBytes([]byte{0x0F, 0x80 | byte(inst.Cond)}, le32(rel)), nil
	case OpCallImp:
		rel, err := labels.Relative(inst.Label, textPC, size)
		if err != nil {
			return nil, err
		}
		modrm := byte(0x15) // mod=00 reg=2(/2) rm=101
		return joinBytes([]byte{0xFF, modrm}, le32(rel)), nil
	case OpSubRId:
		r := rex(true, false, false, inst.Reg.High())
		modrm := byte(0xC0 | (5 << 3) | inst.Reg.Low3())
		return joinBytes(r, []byte{0x81, modrm}, le32(inst.Imm32)), nil
	case OpAddRId:
		r := rex(true, false, false, inst.Reg.High())
		modrm := byte(0xC0 | (0 << 3) | inst.Reg.Low3())
		return joinBytes(r, []byte{0x81, modrm}, le32(inst.Imm32)), nil
	case OpAddSd:
		return sseRR(0x58, inst.Reg, inst.Reg2), nil
	case OpSubSd:
		return sseRR(0x5C, inst.Reg, inst.Reg2), nil
	case OpMulSd:
		return sseRR(0x59, inst.Reg, inst.Reg2), nil
	case OpDivSd:
		return sseRR(0x5E, inst.Reg, inst.Reg2), nil
	case OpMovSdXM:
		return sseMem(0x10, inst.Reg, inst.Mem, textPC, size, labels)
	case OpMovSdMX:
		return sseMemStore(0x11, inst.Reg, inst.Mem, textPC, size, labels)
	case OpLeaRM:
		rm, err := inst.Mem.resolve(labels, textPC, size)
		if err != nil {
			return nil, err
		}
		body, x, b, err := encodeModRM(inst.Reg.Low3(), rm, labels, textPC, size)
		if err != nil {
			return nil, err
		}
		return joinBytes(rex(true, inst.Reg.High(), x, b), []byte{0x8D}, body), nil
	case OpNegRb:
		if err := guardByteReg(inst.Reg); err != nil {
			return nil, err
		}
		return aluSingle(0xF6, 3, inst.Reg, false), nil
	case OpNotRb:
		if err := guardByteReg(inst.Reg); err != nil {
			return nil, err
		}
		return aluSingle(0xF6, 2, inst.Reg, false), nil
	case OpClear:
		r := rex(false, inst.Reg.High(), false, inst.Reg.High())
		modrm := byte(0xC0 | (inst.Reg.Low3() << 3) | inst.Reg.Low3())
		return joinBytes(r, []byte{0x31, modrm}), nil
	case OpMovBB:
		return encodeMovPair(inst.MovB, 1, textPC, size, labels)
	case OpMovQQ:
		return encodeMovPair(inst.MovQ, 8, textPC, size, labels)
	case OpMovDD:
		return encodeMovPair(inst.MovD, 4, textPC, size, labels)
	case OpLogicRbRb:
		if err := guardByteReg(inst.Reg); err != nil {
			return nil, err
		}
		if err := guardByteReg(inst.Reg2); err != nil {
			return nil, err
		}
		return logicRR(inst.Logic, inst.Reg, inst.Reg2, false)
	case OpTestRdRd:
		return aluRR(0x85, inst.Reg, inst.Reg2, false), nil
	case OpPop:
		r := rex(false, false, false, inst.Reg.High())
		return joinBytes(r, []byte{0x58 | inst.Reg.Low3()}), nil
	case OpPush:
		r := rex(false, false, false, inst.Reg.High())
		return joinBytes(r, []byte{0x50 | inst.Reg.Low3()}), nil
	case OpSetCc:
		if err := guardByteReg(inst.Reg); err != nil {
			return nil, err
		}
		r := rex(false, false, false, inst.Reg.High())
		modrm := byte(0xC0 | inst.Reg.Low3())
		return joinBytes(r, []byte{0x0F, 0x90 | byte(inst.Cond), modrm}), nil
	case OpMovArgSlot:
		disp := dispFromOffset(inst.Imm32, 4)
		rm := rmBase(Rsp, disp)
		body, x, b, err := encodeModRM(inst.Reg.Low3(), rm, labels, textPC, size)
		if err != nil {
			return nil, err
		}
		return joinBytes(rex(true, inst.Reg.High(), x, b), []byte{0x89}, body), nil
	case OpMovDerefReg:
		rm := rmBase(inst.Reg, dispZero())
		body, x, b, err := encodeModRM(inst.Reg2.Low3(), rm, labels, textPC, size)
		if err != nil {
			return nil, err
		}
		return joinBytes(rex(true, inst.Reg2.High(), x, b), []byte{0x89}, body), nil
	case OpLbl:
		return nil, nil
	default:
		return nil, internalErrorf("encode: unhandled op %d", inst.Op)
	}
}

// sizeOfEncoded is sizeOf without the Lbl-binding side effect, used
// internally by encode to recompute an instruction's own length (for
// RIP-relative math) without re-binding labels during the encode pass.
func sizeOfEncoded(inst Instruction, textPC uint32, labels *LabelTable) (uint32, error) {
	if inst.Op == OpLbl {
		return 0, nil
	}
	return sizeOf(inst, textPC, labels)
}

func joinBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func aluSingle(opcode byte, digit byte, r Register, wide bool) []byte {
	pre := rex(wide, false, false, r.High())
	modrm := byte(0xC0 | (digit << 3) | r.Low3())
	return joinBytes(pre, []byte{opcode, modrm})
}

func aluRR(opcode byte, dst, src Register, wide bool) []byte {
	pre := rex(wide, src.High(), false, dst.High())
	modrm := byte(0xC0 | (src.Low3() << 3) | dst.Low3())
	return joinBytes(pre, []byte{opcode, modrm})
}

func logicRR(op LogicOp, dst, src Register, wide bool) ([]byte, error) {
	var opcode byte
	switch op {
	case LogicAnd:
		opcode = 0x21
	case LogicOr:
		opcode = 0x09
	case LogicXor:
		opcode = 0x31
	case LogicTest:
		opcode = 0x85
	default:
		return nil, internalErrorf("logicRR: bad op %d", op)
	}
	return aluRR(opcode, dst, src, wide), nil
}

func cc0F(base byte, cc CC, dst, src Register, wide bool) []byte {
	pre := rex(wide, dst.High(), false, src.High())
	modrm := byte(0xC0 | (dst.Low3() << 3) | src.Low3())
	return joinBytes(pre, []byte{0x0F, base | byte(cc), modrm})
}

func shiftImm8(digit byte, r Register, imm int8) []byte {
	pre := rex(true, false, false, r.High())
	modrm := byte(0xC0 | (digit << 3) | r.Low3())
	return joinBytes(pre, []byte{0xC1, modrm, byte(imm)})
}

func sseRR(opcode byte, dst, src Register) []byte {
	pre := rex(false, dst.High(), false, src.High())
	modrm := byte(0xC0 | (dst.Low3() << 3) | src.Low3())
	return joinBytes([]byte{0xF2}, pre, []byte{0x0F, opcode, modrm})
}

func sseMem(opcode byte, dst Register, mem Memory, textPC, instLen uint32, labels *LabelTable) ([]byte, error) {
	rm, err := mem.resolve(labels, textPC, instLen)
	if err != nil {
		return nil, err
	}
	body, x, b, err := encodeModRM(dst.Low3(), rm, labels, textPC, instLen)
	if err != nil {
		return nil, err
	}
	pre := rex(false, dst.High(), x, b)
	return joinBytes([]byte{0xF2}, pre, []byte{0x0F, opcode}, body), nil
}

func sseMemStore(opcode byte, src Register, mem Memory, textPC, instLen uint32, labels *LabelTable) ([]byte, error) {
	return sseMem(opcode, src, mem, textPC, instLen, labels)
}

// guardByteReg rejects spl/bpl/sil/dil (encodings 4-7) in an 8-bit
// register context that didn't already force a REX prefix
// (spec.md §3/§4.3 rule 5): those encodings would otherwise collide
// with the legacy ah/ch/dh/bh aliases.
func guardByteReg(r Register) error {
	if byteRegisterForbidden(r, r.High()) {
		return internalErrorf("register %s cannot be used as an 8-bit operand without REX", r.Name)
	}
	return nil
}

func encodeMovPair(p MovPair, width int, textPC, instLen uint32, labels *LabelTable) ([]byte, error) {
	wide := width == 8
	opReg2Mem := byte(0x89) // mov r/m, r  (store)
	opMem2Reg := byte(0x8B) // mov r, r/m  (load)
	opImm2RM := byte(0xC7)  // mov r/m, imm32 (sign-extended for quad)
	if width == 1 {
		opReg2Mem, opMem2Reg, opImm2RM = 0x88, 0x8A, 0xC6
	}
	switch {
	case !p.Dst.IsMem && !p.Src.IsMem && !p.HasImm:
		if width == 1 {
			if err := guardByteReg(p.Dst.Reg); err != nil {
				return nil, err
			}
			if err := guardByteReg(p.Src.Reg); err != nil {
				return nil, err
			}
		}
		return aluRR(opReg2Mem, p.Dst.Reg, p.Src.Reg, wide), nil
	case !p.Dst.IsMem && !p.Src.IsMem && p.HasImm:
		if width == 8 {
			r := rex(true, false, false, p.Dst.Reg.High())
			return joinBytes(r, []byte{0xB8 | p.Dst.Reg.Low3()}, le64(p.Imm)), nil
		}
		r := rex(false, false, false, p.Dst.Reg.High())
		modrm := byte(0xC0 | p.Dst.Reg.Low3())
		immBytes := le32(int32(p.Imm))
		if width == 1 {
			immBytes = []byte{byte(p.Imm)}
		}
		return joinBytes(r, []byte{opImm2RM, modrm}, immBytes), nil
	case p.Dst.IsMem && !p.Src.IsMem && !p.HasImm:
		if width == 1 {
			if err := guardByteReg(p.Src.Reg); err != nil {
				return nil, err
			}
		}
		rm, err := p.Dst.Mem.resolve(labels, textPC, instLen)
		if err != nil {
			return nil, err
		}
		body, x, b, err := encodeModRM(p.Src.Reg.Low3(), rm, labels, textPC, instLen)
		if err != nil {
			return nil, err
		}
		return joinBytes(rex(wide, p.Src.Reg.High(), x, b), []byte{opReg2Mem}, body), nil
	case !p.Dst.IsMem && p.Src.IsMem && !p.HasImm:
		if width == 1 {
			if err := guardByteReg(p.Dst.Reg); err != nil {
				return nil, err
			}
		}
		rm, err := p.Src.Mem.resolve(labels, textPC, instLen)
		if err != nil {
			return nil, err
		}
		body, x, b, err := encodeModRM(p.Dst.Reg.Low3(), rm, labels, textPC, instLen)
		if err != nil {
			return nil, err
		}
		return joinBytes(rex(wide, p.Dst.Reg.High(), x, b), []byte{opMem2Reg}, body), nil
	case p.Dst.IsMem && !p.Src.IsMem && p.HasImm:
		rm, err := p.Dst.Mem.resolve(labels, textPC, instLen)
		if err != nil {
			return nil, err
		}
		body, x, b, err := encodeModRM(0, rm, labels, textPC, instLen)
		if err != nil {
			return nil, err
		}
		immBytes := le32(int32(p.Imm))
		if width == 1 {
			immBytes = []byte{byte(p.Imm)}
		}
		return joinBytes(rex(wide, false, x, b), []byte{opImm2RM}, body, immBytes), nil
	default:
		return nil, internalErrorf("mov: unsupported operand combination")
	}
}
