package main

// linker.go is the two-pass driver: assemble_and_link's Go shape
// (original_source/src/assembler.rs), adapted to this file's own
// section-merging scheme rather than ported byte-for-byte. The
// original pack's portable_executable.rs (build_pe taking 4 params)
// and assembler.rs (calling build_pe with 7 args) disagree with each
// other on that function's signature, a sign the retrieved snapshot
// mixes two revisions; rather than guess which is authoritative, this
// file implements the Open Question decision already recorded in
// SPEC_FULL.md/DESIGN.md directly: .rdata/.pdata/.xdata are raw bytes
// appended after .data inside one merged blob, addressed by giving
// each its own virtual SectionRVA that points partway into that blob
// (no page-alignment padding between them, since they share one PE
// section; page alignment only applies at the boundaries between
// .text/.data/.bss/.idata themselves).
//
// Pass order: lay out data directives (binds Bss/Data/Rdata labels) ->
// size every instruction (binds Lbl labels, including the shared SEH
// handler and the entry point) -> assign every section's RVA -> build
// the unwind tables (needs Lbl offsets and section RVAs) -> build the
// import table -> encode every instruction (now that every label a
// Relative/resolve call might need is bound) -> assemble the final
// image.

// LinkInput bundles everything the two-pass driver needs: the
// instruction stream, the data directives, the accumulated import
// requests, and the labels of the function entry point and the one
// shared SEH handler.
type LinkInput struct {
	Labels     *LabelTable // label ids already issued by the compile pass (compiler.go)
	Insts      []Instruction
	Data       []DataDirective
	Imports    *ImportTable
	Entry      LabelID
	SehHandler LabelID
	Subsystem  uint16
}

// Link runs the full assemble-and-link pipeline and returns the bytes
// of a ready-to-run PE32+ executable.
func Link(in LinkInput) ([]byte, error) {
	labels := in.Labels
	if labels == nil {
		labels = NewLabelTable()
	}

	data, rdata, bssSize, sehRecords, err := processDataDirectives(in.Data, labels)
	if err != nil {
		return nil, err
	}

	var textSize uint32
	for _, inst := range in.Insts {
		sz, err := sizeOf(inst, textSize, labels)
		if err != nil {
			return nil, err
		}
		textSize += sz
	}
	labels.SetSectionRVA(Text, 0x1000)

	pdataSize := uint32(len(sehRecords)) * 12
	xdataSize := uint32(len(sehRecords)) * 16

	offsetRdata := alignUp32(uint32(len(data)), 8)
	offsetPdata := alignUp32(offsetRdata+uint32(len(rdata)), 4)
	offsetXdata := alignUp32(offsetPdata+pdataSize, 4)
	blobSize := offsetXdata + xdataSize

	dataRVA := 0x1000 + alignUp32(textSize, 0x1000)
	labels.SetSectionRVA(Data, dataRVA)
	labels.SetSectionRVA(Rdata, dataRVA+offsetRdata)
	labels.SetSectionRVA(Pdata, dataRVA+offsetPdata)
	labels.SetSectionRVA(Xdata, dataRVA+offsetXdata)

	bssRVA := dataRVA + alignUp32(blobSize, 0x1000)
	labels.SetSectionRVA(Bss, bssRVA)
	idataRVA := bssRVA + alignUp32(bssSize, 0x1000)
	labels.SetSectionRVA(Idata, idataRVA)

	pdata, xdata, err := buildUnwindTables(sehRecords, labels, in.SehHandler)
	if err != nil {
		return nil, err
	}
	if uint32(len(pdata)) != pdataSize || uint32(len(xdata)) != xdataSize {
		return nil, internalErrorf("linker: unwind table size mismatch (predicted %d/%d, got %d/%d)",
			pdataSize, xdataSize, len(pdata), len(xdata))
	}

	idata, err := in.Imports.Build(idataRVA)
	if err != nil {
		return nil, err
	}
	if err := in.Imports.BindLabels(labels, idataRVA); err != nil {
		return nil, err
	}

	var code []byte
	var pc uint32
	for _, inst := range in.Insts {
		b, err := encode(inst, pc, labels)
		if err != nil {
			return nil, err
		}
		code = append(code, b...)
		pc += uint32(len(b))
	}
	if pc != textSize {
		return nil, internalErrorf("linker: encoded text size %d != predicted %d", pc, textSize)
	}

	blob := make([]byte, blobSize)
	copy(blob[0:], data)
	copy(blob[offsetRdata:], rdata)
	copy(blob[offsetPdata:], pdata)
	copy(blob[offsetXdata:], xdata)

	entryRVA, err := labels.AbsoluteRVA(in.Entry)
	if err != nil {
		return nil, err
	}
	pdataRVA, err := labels.SectionRVA(Pdata)
	if err != nil {
		return nil, err
	}

	img := peImage{
		code:         code,
		dataBlob:     blob,
		bssSize:      bssSize,
		idata:        idata,
		entryRVA:     entryRVA,
		dataRVA:      dataRVA,
		bssRVA:       bssRVA,
		idataRVA:     idataRVA,
		pdataRVA:     pdataRVA,
		pdataSize:    pdataSize,
		iatSize:      in.Imports.ResolveIATSize(),
		importDirLen: uint32(len(in.Imports.dlls)+1) * 20,
		subsystem:    in.Subsystem,
	}
	if len(in.Imports.dlls) > 0 {
		iatRVA, err := in.Imports.ResolveAddressRVA(idataRVA, 0, 0)
		if err != nil {
			return nil, err
		}
		img.iatRVA = iatRVA
	}
	return buildPE(img)
}
