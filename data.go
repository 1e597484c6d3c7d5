package main

import "encoding/binary"

// data.go is the data-directive model: the non-code material a
// compiled program needs (zero-initialized globals, byte/quad
// constants, string literals, rdata alignment padding, and per-function
// SEH records), ported from the DataInst match arms in
// original_source/src/assembler.rs's assemble_and_link. Processing
// these into concrete .bss/.data/.rdata bytes happens before any
// instruction is sized, exactly as the original does, so label offsets
// for Global memory references are known by the time the text pass
// runs.

type DataOp int

const (
	DataBss DataOp = iota
	DataByte
	DataQuad
	DataBytes
	DataRDAlign
	DataSeh
)

// DataDirective is the sum type over every non-code thing the compiler
// needs to place in the image.
type DataDirective struct {
	Op DataOp

	ID    LabelID // Bss, Byte, Quad, Bytes
	Size  uint32  // Bss
	Align uint32  // Bss, RDAlign

	Byte byte   // Byte
	Quad uint64 // Quad
	Str  string // Bytes: NUL-terminated string constant

	Prologue  LabelID // Seh
	Epilogue  LabelID // Seh
	FrameSize uint32  // Seh: bytes the prologue's sub rsp,N reserved
}

func BssDirective(id LabelID, size, align uint32) DataDirective {
	return DataDirective{Op: DataBss, ID: id, Size: size, Align: align}
}
func ByteDirective(id LabelID, b byte) DataDirective {
	return DataDirective{Op: DataByte, ID: id, Byte: b}
}
func QuadDirective(id LabelID, v uint64) DataDirective {
	return DataDirective{Op: DataQuad, ID: id, Quad: v}
}
func BytesDirective(id LabelID, s string) DataDirective {
	return DataDirective{Op: DataBytes, ID: id, Str: s}
}
func RDAlignDirective(align uint32) DataDirective {
	return DataDirective{Op: DataRDAlign, Align: align}
}
func SehDirective(prologue, epilogue LabelID, frameSize uint32) DataDirective {
	return DataDirective{Op: DataSeh, Prologue: prologue, Epilogue: epilogue, FrameSize: frameSize}
}

// sehRecord is one function's prologue/epilogue/frame-size triple,
// carried forward until the text pass has bound label offsets and the
// unwind tables can be built (seh.go).
type sehRecord struct {
	Prologue  LabelID
	Epilogue  LabelID
	FrameSize uint32
}

// processDataDirectives lays out .data/.rdata byte buffers and computes
// the .bss size, binding every Bss/Byte/Quad/Bytes label into labels as
// it goes. It returns the pending SEH records in directive order (the
// caller sorts them by bound prologue offset once the text pass runs,
// per the original's seh.sort_by).
func processDataDirectives(dirs []DataDirective, labels *LabelTable) (data, rdata []byte, bssSize uint32, sehRecords []sehRecord, err error) {
	for _, d := range dirs {
		switch d.Op {
		case DataBss:
			bssSize = alignUp32(bssSize, d.Align)
			if err := labels.Bind(d.ID, Bss, bssSize); err != nil {
				return nil, nil, 0, nil, err
			}
			bssSize += d.Size
		case DataByte:
			if err := labels.Bind(d.ID, Data, uint32(len(data))); err != nil {
				return nil, nil, 0, nil, err
			}
			data = append(data, d.Byte)
		case DataQuad:
			for len(data)%8 != 0 {
				data = append(data, 0)
			}
			if err := labels.Bind(d.ID, Data, uint32(len(data))); err != nil {
				return nil, nil, 0, nil, err
			}
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], d.Quad)
			data = append(data, buf[:]...)
		case DataBytes:
			if err := labels.Bind(d.ID, Rdata, uint32(len(rdata))); err != nil {
				return nil, nil, 0, nil, err
			}
			rdata = append(rdata, []byte(d.Str)...)
			rdata = append(rdata, 0x00)
		case DataRDAlign:
			for uint32(len(rdata))%d.Align != 0 {
				rdata = append(rdata, 0)
			}
		case DataSeh:
			sehRecords = append(sehRecords, sehRecord{Prologue: d.Prologue, Epilogue: d.Epilogue, FrameSize: d.FrameSize})
		default:
			return nil, nil, 0, nil, internalErrorf("processDataDirectives: unhandled op %d", d.Op)
		}
	}
	return data, rdata, bssSize, sehRecords, nil
}
