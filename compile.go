package main

// compile.go is the top-level driver tying parser.go, compiler.go,
// seh.go, and linker.go together into one entry point, the Go shape of
// original_source/src/builtin.rs's Jsonpiler::run: parse the whole
// source file as one JSON value, evaluate it as the program's single
// top-level statement sequence, wrap the emitted code in the program's
// one real function (the entry point, sharing the exact prologue the
// rest of this compiler's UNWIND_INFO assumes), and hand the result to
// Link.

// Compile parses source and produces the bytes of a ready-to-run
// PE32+ executable targeting subsystem (pe.go's SubsystemConsole or
// SubsystemGUI).
func (c *Compiler) Compile(source []byte, subsystem uint16) ([]byte, error) {
	tree, err := NewParser(source).Parse()
	if err != nil {
		return nil, err
	}

	mainScope := NewScope()
	result, err := c.Eval(tree, mainScope)
	if err != nil {
		return nil, err
	}

	entryLabel := c.Labels.Fresh()
	endLabel := c.Labels.Fresh()

	// align=0: the entry point has the same push rbp; mov rbp,rsp;
	// sub rsp,N prologue as a lambda body (builtin_control.go). It is
	// entered with rsp 8 bytes off 16-byte alignment, the push restores
	// it, and CalcAlloc(0) is a multiple of 16, so rsp is 16-byte
	// aligned at every call in the body and at the one into ExitProcess.
	frameSize, err := mainScope.CalcAlloc(0)
	if err != nil {
		return nil, err
	}

	c.Text = append(c.Text,
		Lbl(entryLabel),
		Push(Rbp),
		movQ(Rbp, Rsp),
		SubRId(Rsp, int32(frameSize)),
	)
	c.Text = append(c.Text, mainScope.body...)

	switch {
	case result.Kind == KindInt && result.IsVar:
		c.Text = append(c.Text, MovQQ(MovPair{Dst: movReg(Rcx), Src: movMem(result.Mem)}))
	case result.Kind == KindInt:
		c.Text = append(c.Text, movQImm(Rcx, result.LitInt))
	default:
		c.Text = append(c.Text, Clear(Rcx))
	}

	exitProcess := c.Import(DllKernel32, "ExitProcess", 0x167)
	c.Text = append(c.Text, CallImp(exitProcess), Lbl(endLabel))
	c.Data = append(c.Data, SehDirective(entryLabel, endLabel, frameSize))

	sehHandler := c.buildSehHandler()

	in := LinkInput{
		Labels:     c.Labels,
		Insts:      c.Text,
		Data:       c.Data,
		Imports:    c.Imports,
		Entry:      entryLabel,
		SehHandler: sehHandler,
		Subsystem:  subsystem,
	}
	return Link(in)
}
