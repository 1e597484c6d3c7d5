package main

// builtin_string.go ports original_source/src/builtin/string.rs: concat
// and len. Both operate on literal Strings only — this backend's
// Memory model (operand.go) never holds an arbitrary runtime pointer a
// byte-scanning strlen loop could walk, only Global/Local/Tmp slots at
// compile-time-known offsets, so there is no way to compute a String
// variable's length at runtime the way the original's take_len_c_a_d
// (a cached strlen asm template) does; a Variable String argument is a
// compile-time type error here instead (documented as a trim in
// DESIGN.md).

func (c *Compiler) registerString() {
	c.Register("concat", false, false, builtinConcat, AtLeast(1))
	c.Register("len", false, false, builtinLen, Exactly(1))
}

func requireLitString(v Value, argPos int, funcName string) (string, error) {
	if v.Kind != KindString {
		return "", typeErrorf(v.Pos, "argument %d to `%s`: expected String, got %s", argPos, funcName, v.typeName())
	}
	if v.IsVar {
		return "", typeErrorf(v.Pos, "argument %d to `%s`: expected a literal String", argPos, funcName)
	}
	return v.LitString, nil
}

func builtinConcat(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	first, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	result, err := requireLitString(first, 1, f.Name)
	if err != nil {
		return Value{}, err
	}
	for i := 2; i <= f.Len(); i++ {
		arg, err := f.Arg()
		if err != nil {
			return Value{}, err
		}
		s, err := requireLitString(arg, i, f.Name)
		if err != nil {
			return Value{}, err
		}
		result += s
	}
	return LitStringValue(result), nil
}

func builtinLen(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	arg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	s, err := requireLitString(arg, 1, f.Name)
	if err != nil {
		return Value{}, err
	}
	return LitIntValue(int64(len(s))), nil
}
