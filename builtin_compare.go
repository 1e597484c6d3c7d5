package main

// builtin_compare.go ports original_source/src/builtin/compare.rs:
// ==, <, <=, each folding a chain of comparisons into a single Bool,
// short-circuiting to false at the first failing pair exactly as the
// original's eq/less/less_eq do (a false_label every failing
// comparison jumps to, an end_label the success path jumps past it).

func (c *Compiler) registerCompare() {
	c.Register("==", false, false, builtinEq, AtLeast(2))
	c.Register("<", false, false, builtinLess, AtLeast(2))
	c.Register("<=", false, false, builtinLessEq, AtLeast(2))
}

// compareChain is the shared shape behind ==, <, <=: load the first
// argument into rax, then for each remaining argument load it into
// rcx, compare, and jump to falseLabel if cc fails; rax is updated to
// the just-compared value each iteration (so `{"<":[1,2,3]}` checks
// 1<2 then 2<3, not 1<2 and 1<3).
func compareChain(c *Compiler, f *FuncInfo, scope *Scope, failCC CC) (Value, error) {
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
	falseLabel := c.Labels.Fresh()
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
		scope.Emit(SubRR(Rax, Rcx)) // acts as cmp: sets flags, rax is dead after the jump below
		scope.Emit(JCc(failCC, falseLabel))
		if _, err := c.valueToReg(arg, Rax, scope); err != nil {
			return Value{}, err
		}
	}
	endLabel := c.Labels.Fresh()
	ret, err := scope.Tmp(1)
	if err != nil {
		return Value{}, err
	}
	scope.Emit(MovBB(MovPair{Dst: movMem(ret), HasImm: true, Imm: 0xFF}))
	scope.Emit(Jmp(endLabel))
	scope.Emit(Lbl(falseLabel))
	scope.Emit(MovBB(MovPair{Dst: movMem(ret), HasImm: true, Imm: 0}))
	scope.Emit(Lbl(endLabel))
	return VarBoolValue(ret), nil
}

// builtinEq uses subtraction to compare (sub sets ZF on equality); the
// failure branch fires when the subtraction result is nonzero.
func builtinEq(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return compareChain(c, f, scope, CCNE)
}

// builtinLess and builtinLessEq reuse the same sub-then-test shape but
// check the sign/zero flags for "not less" / "not less-or-equal"
// instead of "not equal" (CCGE fires when rax-rcx left prev >= cur,
// i.e. the ascending chain broke; CCG is the <= variant's break
// condition).
func builtinLess(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return compareChain(c, f, scope, CCGE)
}

func builtinLessEq(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return compareChain(c, f, scope, CCG)
}
