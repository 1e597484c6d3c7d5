package main

// sizeof_x86.go implements the byte-exact instruction size predictor
// (spec.md §4.3). It is a pure function of (Instruction, current text
// offset) — it must never allocate label bindings except for OpLbl,
// whose only effect is registering the current offset.
//
// Kept in the same style as encode_x86.go deliberately (spec.md §9:
// "keep both sides in the same file to make visual diffing easy" is
// approximated here by mirroring the match arm order exactly between
// the two files) so a reviewer can diff the two top-to-bottom.

func regRex(r Register) uint32 {
	if r.High() {
		return 1
	}
	return 0
}

func combinedRex(a, b Register) uint32 {
	if a.High() || b.High() {
		return 1
	}
	return 0
}

// sizeOf returns the exact encoded length of inst if it were emitted
// starting at text offset textPC. It also binds OpLbl ids into labels,
// exactly mirroring the one side effect the two-pass driver relies on
// during its sizing walk.
func sizeOf(inst Instruction, textPC uint32, labels *LabelTable) (uint32, error) {
	switch inst.Op {
	case OpCustom:
		return uint32(len(inst.Bytes)), nil
	case OpNegR, OpNotR, OpLogicRR, OpIncR, OpDecR, OpShl1R, OpIDivR, OpSubRR, OpAddRR:
		return 3, nil
	case OpCMovCc, OpSarRIb, OpShrRIb, OpShlRIb, OpIMulRR, OpCmpRIb:
		return 4, nil
	case OpCvtSi2Sd, OpCvtTSd2Si, OpJmp, OpCall:
		return 5, nil
	case OpJCc, OpCallImp:
		return 6, nil
	case OpSubRId, OpAddRId:
		return 7, nil
	case OpAddSd, OpSubSd, OpMulSd, OpDivSd:
		return 4 + combinedRex(inst.Reg, inst.Reg2), nil
	case OpMovSdXM:
		return 3 + regRex(inst.Reg) + inst.Mem.sizeOfPayload(), nil
	case OpMovSdMX:
		return 3 + regRex(inst.Reg) + inst.Mem.sizeOfPayload(), nil
	case OpLeaRM:
		return 2 + inst.Mem.sizeOfPayload(), nil
	case OpNegRb, OpNotRb, OpClear:
		return regRex(inst.Reg) + 2, nil
	case OpMovBB:
		return sizeOfMovPair(inst.MovB, 1)
	case OpMovQQ:
		return sizeOfMovPair(inst.MovQ, 8)
	case OpMovDD:
		return sizeOfMovPair(inst.MovD, 4)
	case OpLogicRbRb, OpTestRdRd:
		return combinedRex(inst.Reg, inst.Reg2) + 2, nil
	case OpPop, OpPush:
		return regRex(inst.Reg) + 1, nil
	case OpSetCc:
		return regRex(inst.Reg) + 3, nil
	case OpMovArgSlot:
		if inst.Imm32 >= 0 && inst.Imm32 <= 127 {
			return 5, nil
		}
		return 8, nil
	case OpMovDerefReg:
		size := uint32(3)
		if inst.Reg.Low3() == 4 { // rsp/r12 base needs SIB
			size++
		}
		if inst.Reg.Low3() == 5 { // rbp/r13 base needs forced disp8
			size++
		}
		return size, nil
	case OpLbl:
		if err := labels.Bind(inst.Label, Text, textPC); err != nil {
			return 0, err
		}
		return 0, nil
	default:
		return 0, internalErrorf("sizeOf: unhandled op %d", inst.Op)
	}
}

// sizeOfMovPair sizes a width-polymorphic move: REX (width byte is 8)
// + opcode + ModRM + SIB? + disp? [+ imm]. Reg/Reg forms are always 2
// payload bytes (ModRM only); Mem forms defer to Memory.sizeOfPayload.
func sizeOfMovPair(p MovPair, width int) (uint32, error) {
	var rex uint32
	if width == 8 {
		rex = 1 // REX.W always present for quad moves
	}
	var payload uint32 = 2 // opcode + modrm baseline
	switch {
	case p.Dst.IsMem && !p.Src.IsMem:
		if p.Src.Reg.High() {
			rex = 1
		}
		payload = 1 + p.Dst.Mem.sizeOfPayload()
	case !p.Dst.IsMem && p.Src.IsMem:
		if p.Dst.Reg.High() {
			rex = 1
		}
		payload = 1 + p.Src.Mem.sizeOfPayload()
	case !p.Dst.IsMem && !p.Src.IsMem:
		if p.Dst.Reg.High() || p.Src.Reg.High() {
			rex = 1
		}
		payload = 2
	default:
		return 0, internalErrorf("mov cannot have both operands in memory")
	}
	total := rex + payload
	if p.HasImm {
		switch width {
		case 1:
			total += 1
		case 4:
			total += 4
		case 8:
			if !p.Dst.IsMem {
				total += 8 - 1 // mov r64, imm64: register in the opcode, no ModRM byte
			} else {
				total += 4 // mov m64, imm32 (sign-extended)
			}
		}
	}
	return total, nil
}
