package main

// builtin_output.go ports original_source/src/builtin/output.rs:
// message(title, msg), the direct grounding for spec.md's S5 scenario
// (a MessageBoxA popup). Both arguments may be literal or already-
// materialized runtime Strings; either way they resolve to a Memory
// holding (or labeling) a NUL-terminated byte buffer that LeaRM can
// take the address of.

func (c *Compiler) registerOutput() {
	c.Register("message", false, false, builtinMessage, Exactly(2))
}

// stringPtrMem resolves a String Value (literal or Var) to the Memory
// LeaRM should take the address of, interning literals into .rdata on
// the fly the way get_global_str does.
func stringPtrMem(c *Compiler, v Value) (Memory, error) {
	if v.Kind != KindString {
		return Memory{}, typeErrorf(v.Pos, "expected String, got %s", v.typeName())
	}
	if v.IsVar {
		return v.Mem, nil
	}
	return memGlobal(c.GlobalStr(v.LitString)), nil
}

func builtinMessage(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	titleArg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if titleArg.Kind != KindString {
		return Value{}, typeErrorf(titleArg.Pos, "argument 1 to `message`: expected String, got %s", titleArg.typeName())
	}
	msgArg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if msgArg.Kind != KindString {
		return Value{}, typeErrorf(msgArg.Pos, "argument 2 to `message`: expected String, got %s", msgArg.typeName())
	}

	titleMem, err := stringPtrMem(c, titleArg)
	if err != nil {
		return Value{}, err
	}
	msgMem, err := stringPtrMem(c, msgArg)
	if err != nil {
		return Value{}, err
	}

	msgBox := c.Import(DllUser32, "MessageBoxA", 0x285)
	scope.Emit(Clear(Rcx))
	scope.Emit(LeaRM(Rdx, msgMem))
	scope.Emit(LeaRM(R8, titleMem))
	scope.Emit(movQImm(R9, 0)) // MB_OK
	scope.Emit(CallImp(msgBox))
	ret, err := scope.MovTmp(Rax)
	if err != nil {
		return Value{}, err
	}
	return VarIntValue(ret), nil
}
