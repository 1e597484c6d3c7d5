package main

import "encoding/binary"

// imports.go builds the Import Directory Table / Import Lookup Table /
// hint-name table / Import Address Table, byte-exact with
// original_source/src/portable_executable.rs's build_idata_section and
// resolve_address_rva/resolve_iat_size. The teacher's pe.go
// (BuildPEImportData) covers the same concern for a simpler PE image;
// this is a from-scratch port of the original's layout math since the
// spec needs the ILT/IAT pair (not just a flat IAT) to support the
// RIP-relative `call [rip+disp32]` indirection CallImp encodes.

// FuncImport is one imported function: its hint (an optional ordinal
// search hint, 0 if unknown) and name.
type FuncImport struct {
	Hint uint16
	Name string
}

// DllImport is one imported DLL and its ordered function list. Order
// matters: it determines each function's IAT slot, which user code's
// CallImp instructions reference by (dllIdx, funcIdx).
type DllImport struct {
	Name  string
	Funcs []FuncImport
}

// ImportTable accumulates the set of (dll, func) pairs a program calls,
// deduplicating repeated requests to the same pair (spec.md's
// supplemented "dedup imports" feature, absent from the distilled
// spec but present in the original's builtin registration flow, since
// builtins sharing a DLL function must not generate duplicate IAT
// slots).
type ImportTable struct {
	dlls     []DllImport
	dllIndex map[string]int
	funcIdx  map[string]map[string]int

	// labelSlot remembers which (dllIdx, funcIdx) IAT slot each CallImp
	// label id addresses, so BindLabels can bind them to the Idata
	// section once the encode pass knows idataRVA. A compiler requesting
	// the same (dll, func) pair twice gets the same label back, so
	// CallImp never emits a duplicate IAT slot (dedup supplemented
	// feature, see imports.go's ImportTable doc comment).
	labelSlot map[LabelID][2]uint32
	slotLabel map[[2]uint32]LabelID
}

func NewImportTable() *ImportTable {
	return &ImportTable{
		dllIndex:  map[string]int{},
		funcIdx:   map[string]map[string]int{},
		labelSlot: map[LabelID][2]uint32{},
		slotLabel: map[[2]uint32]LabelID{},
	}
}

// Request registers a call to dll!func (creating the DLL and/or
// function entry if this is the first reference) and returns the
// (dllIdx, funcIdx) pair CallImp instructions address the IAT slot by.
func (t *ImportTable) Request(dll string, hint uint16, fn string) (uint32, uint32) {
	di, ok := t.dllIndex[dll]
	if !ok {
		di = len(t.dlls)
		t.dllIndex[dll] = di
		t.dlls = append(t.dlls, DllImport{Name: dll})
		t.funcIdx[dll] = map[string]int{}
	}
	fi, ok := t.funcIdx[dll][fn]
	if !ok {
		fi = len(t.dlls[di].Funcs)
		t.funcIdx[dll][fn] = fi
		t.dlls[di].Funcs = append(t.dlls[di].Funcs, FuncImport{Hint: hint, Name: fn})
	}
	return uint32(di), uint32(fi)
}

// RequestLabel is Request plus CallImp wiring: it returns a LabelID a
// CallImp instruction can reference directly, reusing the existing
// label if this exact (dll, func) pair was already requested.
func (t *ImportTable) RequestLabel(labels *LabelTable, dll string, hint uint16, fn string) LabelID {
	di, fi := t.Request(dll, hint, fn)
	key := [2]uint32{di, fi}
	if id, ok := t.slotLabel[key]; ok {
		return id
	}
	id := labels.Fresh()
	t.labelSlot[id] = key
	t.slotLabel[key] = id
	return id
}

// BindLabels binds every label RequestLabel issued to its IAT slot's
// offset within the Idata section, once the linker knows idataRVA.
func (t *ImportTable) BindLabels(labels *LabelTable, idataRVA uint32) error {
	for id, slot := range t.labelSlot {
		addr, err := t.ResolveAddressRVA(idataRVA, slot[0], slot[1])
		if err != nil {
			return err
		}
		if err := labels.Bind(id, Idata, addr-idataRVA); err != nil {
			return err
		}
	}
	return nil
}

func alignUpLen(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// Build renders the full .idata contents: the Import Directory Table,
// one Import Lookup Table and Import Address Table per DLL (identical
// content at load time, since the loader overwrites the IAT in place),
// and the hint/name table (for each DLL, its functions' hint/name
// entries followed by that DLL's name), all
// addressed relative to baseRVA (the .idata section's starting RVA).
func (t *ImportTable) Build(baseRVA uint32) ([]byte, error) {
	dllCount := len(t.dlls)
	idtSize := (dllCount + 1) * 0x14

	lookupOffsets := make([]uint32, dllCount)
	addressOffsets := make([]uint32, dllCount)
	dllNameOffsets := make([]uint32, dllCount)
	funcNameOffsets := make([][]uint32, dllCount)
	var hintNameTable []byte
	currentOffset := uint32(idtSize)

	for i, dll := range t.dlls {
		funcsCount := uint32(len(dll.Funcs))
		lookupSize := (funcsCount + 1) * 8
		lookupOffsets[i] = currentOffset
		addressOffsets[i] = currentOffset + lookupSize
		currentOffset += lookupSize * 2

		offsets := make([]uint32, 0, len(dll.Funcs))
		for _, f := range dll.Funcs {
			offset := alignUpLen(len(hintNameTable), 8)
			for len(hintNameTable) < offset {
				hintNameTable = append(hintNameTable, 0)
			}
			offsets = append(offsets, uint32(offset))
			var hintBuf [2]byte
			binary.LittleEndian.PutUint16(hintBuf[:], f.Hint)
			hintNameTable = append(hintNameTable, hintBuf[:]...)
			hintNameTable = append(hintNameTable, []byte(f.Name)...)
			hintNameTable = append(hintNameTable, 0)
		}
		funcNameOffsets[i] = offsets

		dllNameOffset := uint32(alignUpLen(len(hintNameTable), 8))
		for uint32(len(hintNameTable)) < dllNameOffset {
			hintNameTable = append(hintNameTable, 0)
		}
		hintNameTable = append(hintNameTable, []byte(dll.Name)...)
		hintNameTable = append(hintNameTable, 0)
		dllNameOffsets[i] = dllNameOffset
	}

	alignedHintLen := alignUpLen(len(hintNameTable), 8)
	for len(hintNameTable) < alignedHintLen {
		hintNameTable = append(hintNameTable, 0)
	}

	var idata []byte
	for i := 0; i < dllCount; i++ {
		lookupRVA := baseRVA + lookupOffsets[i]
		addressRVA := baseRVA + addressOffsets[i]
		nameRVA := baseRVA + currentOffset + dllNameOffsets[i]
		idata = append(idata, le32u(lookupRVA)...)
		idata = append(idata, make([]byte, 8)...)
		idata = append(idata, le32u(nameRVA)...)
		idata = append(idata, le32u(addressRVA)...)
	}
	idata = append(idata, make([]byte, 20)...) // null IDT terminator

	var lookupAddressData []byte
	for di, dll := range t.dlls {
		for _, offset := range funcNameOffsets[di] {
			rva := baseRVA + currentOffset + offset
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(rva))
			lookupAddressData = append(lookupAddressData, buf[:]...)
		}
		lookupAddressData = append(lookupAddressData, make([]byte, 8)...)
		lookupStart := len(lookupAddressData) - (len(dll.Funcs)+1)*8
		address := make([]byte, len(lookupAddressData)-lookupStart)
		copy(address, lookupAddressData[lookupStart:])
		lookupAddressData = append(lookupAddressData, address...)
	}
	idata = append(idata, lookupAddressData...)
	idata = append(idata, hintNameTable...)
	return idata, nil
}

// ResolveAddressRVA returns the IAT slot's RVA for (dllIdx, funcIdx),
// used to fix up the `call [rip+disp32]` CallImp encodes and to
// populate the Optional Header's IAT data directory entry.
func (t *ImportTable) ResolveAddressRVA(idataRVA uint32, dllIdx, funcIdx uint32) (uint32, error) {
	if int(dllIdx) >= len(t.dlls) {
		return 0, internalErrorf("imports: dll index %d out of range", dllIdx)
	}
	lookupOffset := uint32(len(t.dlls)+1) * 0x14
	for _, dll := range t.dlls[:dllIdx] {
		lookupSize := uint32(len(dll.Funcs)+1) * 8
		lookupOffset += lookupSize * 2
	}
	lookupSize := uint32(len(t.dlls[dllIdx].Funcs)+1) * 8
	addressOffset := lookupOffset + lookupSize
	return idataRVA + addressOffset + funcIdx*8, nil
}

// ResolveIATSize returns the combined byte size of every DLL's IAT,
// each including its trailing null sentinel entry, for the Import
// Address Table data directory's Size field.
func (t *ImportTable) ResolveIATSize() uint32 {
	var size uint32
	for _, dll := range t.dlls {
		size += uint32(len(dll.Funcs)+1) * 8
	}
	return size
}
