package main

// builtin_arith.go ports original_source/src/builtin/arithmetic.rs:
// abs, +, %, -, *, / — every one a thin wrapper around rax-accumulating
// codegen, with / and % sharing a zero-division guard that jumps to a
// shared MessageBoxA+ExitProcess handler (spec.md's RuntimeError /
// scenario S4; the text is ANSI bytes, not converted to UTF-16).

func (c *Compiler) registerArithmetic() {
	c.Register("abs", false, false, builtinAbs, Exactly(1))
	c.Register("+", false, false, builtinPlus, AnyArity())
	c.Register("%", false, false, builtinRem, Exactly(2))
	c.Register("-", false, false, builtinMinus, AnyArity())
	c.Register("*", false, false, builtinMul, AnyArity())
	c.Register("/", false, false, builtinDiv, AtLeast(2))
}

// requireInt validates v is an Int, the Go shape of the original's
// validate_type! macro applied to Json::Int.
func requireInt(v Value, argPos int, funcName string) (Value, error) {
	if v.Kind != KindInt {
		return Value{}, typeErrorf(v.Pos, "argument %d to `%s`: expected Int, got %s", argPos, funcName, v.typeName())
	}
	return v, nil
}

// builtinAbs computes the branchless absolute value via sign-extension:
// cqo fills rdx with the sign bits of rax, then xor/sub flips rax's
// sign iff it was negative, exactly the original's abs().
func builtinAbs(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	arg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if _, err := requireInt(arg, 1, f.Name); err != nil {
		return Value{}, err
	}
	if _, err := c.valueToReg(arg, Rax, scope); err != nil {
		return Value{}, err
	}
	scope.Emit(Custom([]byte{0x48, 0x99})) // cqo
	scope.Emit(LogicRR(LogicXor, Rax, Rdx))
	scope.Emit(SubRR(Rax, Rdx))
	m, err := scope.MovTmp(Rax)
	if err != nil {
		return Value{}, err
	}
	return VarIntValue(m), nil
}

// arithmeticTemplate folds a variable-arity Int argument list into rax
// via the given op, returning identity as a literal if given zero
// arguments, exactly as arithmetic_template does.
func arithmeticTemplate(c *Compiler, f *FuncInfo, scope *Scope, op func(dst, src Register) Instruction, identity int64) (Value, error) {
	if f.Len() == 0 {
		return LitIntValue(identity), nil
	}
	first, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if _, err := requireInt(first, 1, f.Name); err != nil {
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
		if _, err := requireInt(arg, i, f.Name); err != nil {
			return Value{}, err
		}
		if _, err := c.valueToReg(arg, Rcx, scope); err != nil {
			return Value{}, err
		}
		scope.Emit(op(Rax, Rcx))
	}
	m, err := scope.MovTmp(Rax)
	if err != nil {
		return Value{}, err
	}
	return VarIntValue(m), nil
}

func builtinPlus(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return arithmeticTemplate(c, f, scope, AddRR, 0)
}

func builtinMul(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return arithmeticTemplate(c, f, scope, IMulRR, 1)
}

// builtinMinus is unary negation for exactly one argument, subtraction
// folded left-to-right otherwise, matching the original's minus().
func builtinMinus(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	if f.Len() != 1 {
		return arithmeticTemplate(c, f, scope, SubRR, 0)
	}
	arg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if _, err := requireInt(arg, 1, f.Name); err != nil {
		return Value{}, err
	}
	if _, err := c.valueToReg(arg, Rax, scope); err != nil {
		return Value{}, err
	}
	scope.Emit(NegR(Rax))
	m, err := scope.MovTmp(Rax)
	if err != nil {
		return Value{}, err
	}
	return VarIntValue(m), nil
}

// zeroDivisionHandler is the shared stub every `/`/`%` zero-check
// jumps to: a MessageBoxA with a fixed text, then ExitProcess(MAX_UINT),
// ported from arithmetic.rs's get_nonzero_int_str / the
// ZERO_DIVISION_ERR label it references.
func (c *Compiler) zeroDivisionHandler() LabelID {
	return c.sharedHelper("ZERO_DIVISION_ERR", func(id LabelID) {
		msgBox := c.Import(DllUser32, "MessageBoxA", 0x285)
		exitProcess := c.Import(DllKernel32, "ExitProcess", 0x167)
		msgID := c.GlobalStr("Division or modulo by zero.")
		c.Text = append(c.Text,
			Lbl(id),
			Clear(Rcx),
			LeaRM(Rdx, memGlobal(msgID)),
			Clear(R8),
			movQImm(R9, 0x10),
			CallImp(msgBox),
			movQImm(Rcx, int64(uint32(0xFFFFFFFF))),
			CallImp(exitProcess),
		)
	})
}

// loadNonzeroDivisor materializes divisor into rcx, emitting a runtime
// zero-check (jumping to zeroDivisionHandler on failure) unless
// divisor is a literal the compiler can check directly at compile
// time, matching get_nonzero_int_str's Lit/Var split.
func (c *Compiler) loadNonzeroDivisor(divisor Value, scope *Scope) error {
	if !divisor.IsVar {
		if divisor.LitInt == 0 {
			return typeErrorf(divisor.Pos, "ZeroDivisionError")
		}
		scope.Emit(movQImm(Rcx, divisor.LitInt))
		return nil
	}
	scope.Emit(MovQQ(MovPair{Dst: movReg(Rcx), Src: movMem(divisor.Mem)}))
	scope.Emit(CmpRIb(Rcx, 0))
	handler := c.zeroDivisionHandler()
	scope.Emit(JCc(CCE, handler))
	return nil
}

func builtinDiv(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	first, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if _, err := requireInt(first, 1, f.Name); err != nil {
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
		if _, err := requireInt(arg, i, f.Name); err != nil {
			return Value{}, err
		}
		if err := c.loadNonzeroDivisor(arg, scope); err != nil {
			return Value{}, err
		}
		scope.Emit(Custom([]byte{0x48, 0x99})) // cqo
		scope.Emit(IDivR(Rcx))
	}
	m, err := scope.MovTmp(Rax)
	if err != nil {
		return Value{}, err
	}
	return VarIntValue(m), nil
}

func builtinRem(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	first, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if _, err := requireInt(first, 1, f.Name); err != nil {
		return Value{}, err
	}
	if _, err := c.valueToReg(first, Rax, scope); err != nil {
		return Value{}, err
	}
	second, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if _, err := requireInt(second, 2, f.Name); err != nil {
		return Value{}, err
	}
	if err := c.loadNonzeroDivisor(second, scope); err != nil {
		return Value{}, err
	}
	scope.Emit(Custom([]byte{0x48, 0x99})) // cqo
	scope.Emit(IDivR(Rcx))
	m, err := scope.MovTmp(Rdx)
	if err != nil {
		return Value{}, err
	}
	return VarIntValue(m), nil
}
