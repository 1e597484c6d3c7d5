package main

import (
	"bytes"
	"encoding/binary"
)

// pe.go is the PE32+ image writer, adapted from the teacher's
// WritePEHeaderWithImports/WritePESectionHeader/WritePE (which built a
// similar but simpler import-table-bearing PE for a single Flap
// program) and byte-exact with original_source/src/
// portable_executable.rs's build_pe for the header/section-table
// layout math. Four physical sections only: .text, .data (.rdata,
// .pdata, .xdata merged in, see linker.go), .bss, .idata.

const (
	peDosHeaderSize     = 64
	peDosStubSize       = 64
	peHeaderOffsetField = 0x3C
	peOptionalHdrSize   = 0xF0 // PE32+ optional header, 240 bytes
	peSectionHdrSize    = 40
	peNumberOfSections  = 4
	peNumberOfDataDirs  = 16
)

const (
	scnCntCode       = 0x0000_0020
	scnCntInitData   = 0x0000_0040
	scnCntUninitData = 0x0000_0080
	scnMemExecute    = 0x2000_0000
	scnMemRead       = 0x4000_0000
	scnMemWrite      = 0x8000_0000
)

// IMAGE_SUBSYSTEM_WINDOWS_{GUI,CUI}, the two values compile.go's
// Subsystem field can take (SPEC_FULL.md's Open Question decision:
// console by default, `-subsystem=gui` opts into the GUI value).
const (
	SubsystemGUI     uint16 = 2
	SubsystemConsole uint16 = 3
)

// peImage bundles everything buildPE needs after the linker has
// finished laying out sections and resolving every RVA.
type peImage struct {
	code     []byte
	dataBlob []byte
	bssSize  uint32
	idata    []byte

	entryRVA uint32
	dataRVA  uint32
	bssRVA   uint32
	idataRVA uint32

	pdataRVA  uint32
	pdataSize uint32

	iatRVA       uint32
	iatSize      uint32
	importDirLen uint32

	subsystem uint16
}

func u16le(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func u32le(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }
func u64le(v uint64) []byte { b := make([]byte, 8); binary.LittleEndian.PutUint64(b, v); return b }

// dosStub renders a minimal 0x80-byte DOS header + stub: the MZ
// signature, the e_lfanew pointer to the PE header at 0x80, and a
// real-mode stub program that prints a message and exits, in the
// spirit of the teacher's pe.go stub (a hand-rolled one rather than an
// embedded binary, since this module has no bin/ asset to embed).
func dosStub() []byte {
	var b bytes.Buffer
	b.Write(u16le(0x5A4D)) // "MZ"
	b.Write(make([]byte, 58))
	b.Write(u32le(0x80)) // e_lfanew
	msg := []byte("This program requires Windows.\r\n$")
	stub := []byte{
		0x0E,       // push cs
		0x1F,       // pop ds
		0xBA, 0x0D, 0x00, // mov dx, offset msg (13 bytes of real-mode code precede the string)
		0xB4, 0x09, // mov ah, 9
		0xCD, 0x21, // int 21h
		0xB4, 0x4C, // mov ah, 4Ch
		0xCD, 0x21, // int 21h
	}
	b.Write(stub)
	b.Write(msg)
	out := b.Bytes()
	if len(out) < 0x80 {
		out = append(out, make([]byte, 0x80-len(out))...)
	}
	return out[:0x80]
}

// buildPE renders the final PE32+ executable bytes.
func buildPE(img peImage) ([]byte, error) {
	textVSize := uint32(len(img.code))
	textRawSize := alignUp32(textVSize, fileAlignment)
	textRawPtr := alignUp32(0x80+4+20+peOptionalHdrSize+peSectionHdrSize*peNumberOfSections, fileAlignment)

	dataVSize := uint32(len(img.dataBlob))
	dataRawSize := alignUp32(dataVSize, fileAlignment)
	dataRawPtr := textRawPtr + textRawSize

	idataVSize := uint32(len(img.idata))
	idataRawSize := alignUp32(idataVSize, fileAlignment)
	idataRawPtr := dataRawPtr + dataRawSize

	sizeOfImage := alignUp32(img.idataRVA+alignUp32(idataVSize, sectionAlignment), sectionAlignment)
	sizeOfHeaders := textRawPtr
	sizeOfFile := idataRawPtr + idataRawSize

	var out bytes.Buffer
	out.Write(dosStub())
	out.WriteString("PE\x00\x00")

	// COFF file header
	out.Write(u16le(0x8664)) // machine: AMD64
	out.Write(u16le(peNumberOfSections))
	out.Write(u32le(0)) // timestamp, zeroed for reproducible builds
	out.Write(u32le(0))
	out.Write(u32le(0))
	out.Write(u16le(peOptionalHdrSize))
	out.Write(u16le(0x0022)) // EXECUTABLE_IMAGE | LARGE_ADDRESS_AWARE

	// Optional header (PE32+)
	out.Write(u16le(0x020B))
	out.WriteByte(14) // major linker version
	out.WriteByte(0)
	out.Write(u32le(textRawSize))
	out.Write(u32le(dataRawSize))
	out.Write(u32le(alignUp32(img.bssSize, fileAlignment)))
	out.Write(u32le(img.entryRVA))
	out.Write(u32le(sectionAlignment)) // base of code
	out.Write(u64le(imageBase))
	out.Write(u32le(sectionAlignment))
	out.Write(u32le(fileAlignment))
	out.Write(u16le(6)) // major OS version
	out.Write(u16le(0))
	out.Write(u16le(0)) // major image version
	out.Write(u16le(0))
	out.Write(u16le(6)) // major subsystem version
	out.Write(u16le(0))
	out.Write(u32le(0)) // win32 version, reserved
	out.Write(u32le(sizeOfImage))
	out.Write(u32le(sizeOfHeaders))
	out.Write(u32le(0)) // checksum
	out.Write(u16le(img.subsystem))
	out.Write(u16le(0x8160)) // NX compatible, dynamic base, terminal server aware
	out.Write(u64le(0x10_0000)) // stack reserve
	out.Write(u64le(0x1000))    // stack commit
	out.Write(u64le(0x10_0000)) // heap reserve
	out.Write(u64le(0x1000))    // heap commit
	out.Write(u32le(0))         // loader flags
	out.Write(u32le(peNumberOfDataDirs))

	dataDirs := make([][2]uint32, peNumberOfDataDirs)
	dataDirs[1] = [2]uint32{img.idataRVA, img.importDirLen} // Import Table
	dataDirs[3] = [2]uint32{img.pdataRVA, img.pdataSize}    // Exception Table
	dataDirs[12] = [2]uint32{img.iatRVA, img.iatSize}       // IAT
	for _, d := range dataDirs {
		out.Write(u32le(d[0]))
		out.Write(u32le(d[1]))
	}

	writeSectionHeader(&out, ".text", textVSize, 0x1000, textRawSize, textRawPtr, scnCntCode|scnMemExecute|scnMemRead)
	writeSectionHeader(&out, ".data", dataVSize, img.dataRVA, dataRawSize, dataRawPtr, scnCntInitData|scnMemRead|scnMemWrite)
	writeSectionHeader(&out, ".bss", img.bssSize, img.bssRVA, 0, 0, scnCntUninitData|scnMemRead|scnMemWrite)
	writeSectionHeader(&out, ".idata", idataVSize, img.idataRVA, idataRawSize, idataRawPtr, scnCntInitData|scnMemRead)

	padTo(&out, int(textRawPtr))
	out.Write(img.code)
	padTo(&out, int(dataRawPtr))
	out.Write(img.dataBlob)
	padTo(&out, int(idataRawPtr))
	out.Write(img.idata)
	padTo(&out, int(sizeOfFile))

	return out.Bytes(), nil
}

func writeSectionHeader(out *bytes.Buffer, name string, vsize, vaddr, rawSize, rawPtr uint32, characteristics uint32) {
	nameBytes := make([]byte, 8)
	copy(nameBytes, name)
	out.Write(nameBytes)
	out.Write(u32le(vsize))
	out.Write(u32le(vaddr))
	out.Write(u32le(rawSize))
	out.Write(u32le(rawPtr))
	out.Write(make([]byte, 12)) // relocations/line numbers, unused
	out.Write(u32le(characteristics))
}

func padTo(out *bytes.Buffer, target int) {
	for out.Len() < target {
		out.WriteByte(0)
	}
}
