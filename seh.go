package main

import "sort"

// seh.go builds the .pdata (RUNTIME_FUNCTION table) and .xdata
// (UNWIND_INFO) records Win64 structured exception handling needs for
// every compiled function, byte-exact with the xdata-building loop in
// original_source/src/assembler.rs's assemble_and_link. Every function
// this compiler emits shares one prologue shape (push rbp; mov
// rbp,rsp; sub rsp,N) and one epilogue shape, and all of them share a
// single SEH handler (SPEC_FULL.md's Open Question decision), so one
// UNWIND_INFO layout serves every function; only SizeOfProlog and the
// ALLOC_LARGE operand (frame size) vary per record.
//
// UwOp* naming follows saferwall/pe's UnwindOpType constants
// (other_examples/5dd3df58_saferwall-pe__exception.go.go), the
// independent Go library in the pack that names this exact structure;
// this file builds the bytes rather than parsing them, but keeps the
// same vocabulary so a reader can cross-reference the wire format.

type UnwindOpType uint8

const (
	UwOpPushNonVol    UnwindOpType = 0
	UwOpAllocLarge    UnwindOpType = 1
	UwOpAllocSmall    UnwindOpType = 2
	UwOpSetFpReg      UnwindOpType = 3
	UwOpSaveNonVol    UnwindOpType = 4
	UwOpSaveNonVolFar UnwindOpType = 5
	UwOpEpilog        UnwindOpType = 6
	UwOpSpareCode     UnwindOpType = 7
	UwOpSaveXmm128    UnwindOpType = 8
	UwOpSaveXmm128Far UnwindOpType = 9
	UwOpPushMachFrame UnwindOpType = 10
	UwOpSetFpRegLarge UnwindOpType = 11
)

const unwFlagEHandler = 1 // UNWIND_INFO.Flags: this function has an exception handler

// buildSehHandler emits the one shared exception handler every
// compiled function's UNWIND_INFO points at (SPEC_FULL.md's Open
// Question decision: one seh_handler label for the whole program,
// mirroring assemble_and_link's seh_handler parameter). The retrieved
// original_source snapshot never shows the call site that builds this
// label's body, so its contents are this port's own addition: the
// minimal valid x64 exception handler, returning
// ExceptionContinueSearch (1) unconditionally rather than unwinding the
// stack itself, since nothing in spec.md's builtin set needs a
// language-level catch/recover construct. It is a leaf function (no
// prologue, no stack allocation), so it needs no UNWIND_INFO of its
// own.
func (c *Compiler) buildSehHandler() LabelID {
	return c.sharedHelper("seh_handler", func(id LabelID) {
		c.Text = append(c.Text,
			Lbl(id),
			movQImm(Rax, 1),
			Custom([]byte{0xC3}), // ret
		)
	})
}

// buildUnwindTables renders the .pdata and .xdata byte buffers for
// every sehRecord, given that text-section label offsets are already
// bound (this runs after the size pass, before the encode pass, same
// as the original). handler is the label of the one shared SEH
// handler every function's UNWIND_INFO points at.
func buildUnwindTables(records []sehRecord, labels *LabelTable, handler LabelID) (pdata, xdata []byte, err error) {
	handlerRVA, err := labels.AbsoluteRVA(handler)
	if err != nil {
		return nil, nil, err
	}

	sorted := make([]sehRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		pi, _ := labels.AbsoluteRVA(sorted[i].Prologue)
		pj, _ := labels.AbsoluteRVA(sorted[j].Prologue)
		return pi < pj
	})

	for _, rec := range sorted {
		prologueAbs, err := labels.AbsoluteRVA(rec.Prologue)
		if err != nil {
			return nil, nil, err
		}
		epilogueAbs, err := labels.AbsoluteRVA(rec.Epilogue)
		if err != nil {
			return nil, nil, err
		}
		pdata = append(pdata, le32u(prologueAbs)...)
		pdata = append(pdata, le32u(epilogueAbs)...)
		pdata = append(pdata, make([]byte, 4)...) // unwind info RVA, patched below
	}

	xdataRVA, err := labels.SectionRVA(Xdata)
	if err != nil {
		return nil, nil, err
	}

	for i, rec := range sorted {
		for len(xdata)%4 != 0 {
			xdata = append(xdata, 0)
		}
		unwindInfoOffset := uint32(len(xdata))
		patchOffset := i*12 + 8
		unwindRVA := le32u(xdataRVA + unwindInfoOffset)
		copy(pdata[patchOffset:patchOffset+4], unwindRVA)

		pushOffset, err := sizeOf(Push(Rbp), 0, nil)
		if err != nil {
			return nil, nil, err
		}
		movSize, err := sizeOf(movQ(Rbp, Rsp), 0, nil)
		if err != nil {
			return nil, nil, err
		}
		movOffset := pushOffset + movSize
		subSize, err := sizeOf(SubRId(Rsp, int32(rec.FrameSize)), 0, nil)
		if err != nil {
			return nil, nil, err
		}
		subOffset := movOffset + subSize

		xdata = append(xdata, 9, byte(subOffset), 4, Rbp.Low3())
		xdata = append(xdata, byte(subOffset), byte(UwOpAllocLarge))
		scaled := uint16((rec.FrameSize + 7) >> 3)
		xdata = append(xdata, byte(scaled), byte(scaled>>8))
		xdata = append(xdata, byte(movOffset), byte(UwOpSetFpReg))
		xdata = append(xdata, byte(pushOffset), Rbp.Low3()<<4|byte(UwOpPushNonVol))
		xdata = append(xdata, le32u(handlerRVA)...)
	}
	return pdata, xdata, nil
}
