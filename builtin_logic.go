package main

// builtin_logic.go ports original_source/src/builtin/logic.rs: and, or,
// xor (byte-width bitwise folds over Bool arguments), not (bitwise
// complement), and assert (the one builtin in this file that, unlike
// the others, produces no value — it either falls through or jumps to
// a MessageBoxA+ExitProcess(1) stub, the original's assert(); the
// message is passed as ANSI bytes, not converted to UTF-16).

func (c *Compiler) registerLogic() {
	c.Register("and", false, false, func(c *Compiler, f *FuncInfo, s *Scope) (Value, error) {
		return logicTemplate(c, f, s, LogicAnd)
	}, AtLeast(2))
	c.Register("or", false, false, func(c *Compiler, f *FuncInfo, s *Scope) (Value, error) {
		return logicTemplate(c, f, s, LogicOr)
	}, AtLeast(2))
	c.Register("xor", false, false, func(c *Compiler, f *FuncInfo, s *Scope) (Value, error) {
		return logicTemplate(c, f, s, LogicXor)
	}, AtLeast(2))
	c.Register("not", false, false, builtinNot, Exactly(1))
	c.Register("assert", false, false, builtinAssert, Exactly(2))
}

func requireBool(v Value, argPos int, funcName string) (Value, error) {
	if v.Kind != KindBool {
		return Value{}, typeErrorf(v.Pos, "argument %d to `%s`: expected Bool, got %s", argPos, funcName, v.typeName())
	}
	return v, nil
}

// logicTemplate folds op across a chain of Bool arguments, the shared
// shape behind and/or/xor (logic.rs's logic_template).
func logicTemplate(c *Compiler, f *FuncInfo, scope *Scope, op LogicOp) (Value, error) {
	first, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if _, err := requireBool(first, 1, f.Name); err != nil {
		return Value{}, err
	}
	if _, err := c.valueToReg(first, Rax, scope); err != nil {
		return Value{}, err
	}
	for i := 2; i <= f.Len(); i++ {
		arg, err := f.Arg()
		if err != nil {
			return Value{}, err
		}
		if _, err := requireBool(arg, i, f.Name); err != nil {
			return Value{}, err
		}
		if _, err := c.valueToReg(arg, Rcx, scope); err != nil {
			return Value{}, err
		}
		scope.Emit(LogicRbRb(op, Rax, Rcx))
	}
	m, err := scope.MovTmp(Rax)
	if err != nil {
		return Value{}, err
	}
	return VarBoolValue(m), nil
}

func builtinNot(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	arg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if _, err := requireBool(arg, 1, f.Name); err != nil {
		return Value{}, err
	}
	if !arg.IsVar {
		return LitBoolValue(!arg.LitBool), nil
	}
	if _, err := c.valueToReg(arg, Rax, scope); err != nil {
		return Value{}, err
	}
	scope.Emit(NotRb(Rax))
	m, err := scope.MovTmp(Rax)
	if err != nil {
		return Value{}, err
	}
	return VarBoolValue(m), nil
}

// builtinAssert takes (condition, message): if condition is false at
// runtime it pops a MessageBoxA with message and exits(1), otherwise
// falls through returning Null, matching logic.rs's assert().
func builtinAssert(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	cond, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if _, err := requireBool(cond, 1, f.Name); err != nil {
		return Value{}, err
	}
	msgArg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if msgArg.Kind != KindString {
		return Value{}, typeErrorf(msgArg.Pos, "argument 2 to `assert`: expected String, got %s", msgArg.typeName())
	}

	if !cond.IsVar {
		if cond.LitBool {
			return NullValue(), nil
		}
		return Value{}, typeErrorf(f.Pos, "AssertionError: %s", msgArg.LitString)
	}

	var msgID LabelID
	if msgArg.IsVar {
		// Runtime string: resolved through the normal string Memory
		// slot rather than a fresh literal, see builtin_string.go.
	} else {
		msgID = c.GlobalStr(msgArg.LitString)
	}

	scope.Emit(MovBB(MovPair{Dst: movReg(Rax), Src: movMem(cond.Mem)}))
	scope.Emit(LogicRbRb(LogicTest, Rax, Rax))
	errLabel := c.Labels.Fresh()
	endLabel := c.Labels.Fresh()
	scope.Emit(JCc(CCE, errLabel))
	scope.Emit(Jmp(endLabel))
	scope.Emit(Lbl(errLabel))
	msgBox := c.Import(DllUser32, "MessageBoxA", 0x285)
	exitProcess := c.Import(DllKernel32, "ExitProcess", 0x167)
	scope.Emit(Clear(Rcx))
	if msgArg.IsVar {
		scope.Emit(MovQQ(MovPair{Dst: movReg(Rdx), Src: movMem(msgArg.Mem)}))
	} else {
		scope.Emit(LeaRM(Rdx, memGlobal(msgID)))
	}
	scope.Emit(Clear(R8))
	scope.Emit(movQImm(R9, 0x10))
	c.callAPICheckNull(msgBox, "MessageBoxA failed", scope)
	scope.Emit(movQImm(Rcx, 1))
	scope.Emit(CallImp(exitProcess))
	scope.Emit(Lbl(endLabel))
	return NullValue(), nil
}
