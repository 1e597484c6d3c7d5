package main

// builtin_var.go ports original_source/src/builtin/variable.rs: global,
// =, $, scope — binding and dereferencing named variables. Function and
// literal-Null values are stored as-is; literal Strings are interned
// into .rdata (assign always materializes a String into a Var, even for
// local assignment, matching the original); Int/Bool values get a
// freshly allocated storage cell (bss for `global`, a scope temporary
// for `=`) that the evaluated value is copied into.

func (c *Compiler) registerVariable() {
	c.Register("global", false, false, builtinAssignGlobal, Exactly(2))
	c.Register("=", false, false, builtinAssignLocal, Exactly(2))
	c.Register("$", false, false, builtinReference, Exactly(1))
	c.Register("scope", true, true, builtinScope, Exactly(1))
}

// lookupVar resolves a name against the innermost-to-outermost lexical
// scope chain, falling back to the global table, mirroring the
// original's get_var.
func (c *Compiler) lookupVar(name string, scope *Scope) (Value, bool) {
	if v, ok := scope.LookupVar(name); ok {
		return v, true
	}
	if v, ok := c.globals[name]; ok {
		return v, true
	}
	return Value{}, false
}

func (c *Compiler) bindVar(name string, v Value, isGlobal bool, scope *Scope) error {
	if isGlobal {
		if _, exists := c.globals[name]; exists {
			return internalErrorf("variable %q already bound in global scope", name)
		}
		c.globals[name] = v
		return nil
	}
	return scope.BindVar(name, v)
}

func builtinAssign(c *Compiler, f *FuncInfo, scope *Scope, isGlobal bool) (Value, error) {
	nameArg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if nameArg.Kind != KindString || nameArg.IsVar {
		return Value{}, typeErrorf(nameArg.Pos, "argument 1 to `%s`: expected a literal String", f.Name)
	}
	name := nameArg.LitString

	valArg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}

	var stored Value
	switch valArg.Kind {
	case KindFunction:
		if _, ok := c.builtins[name]; ok {
			return Value{}, typeErrorf(nameArg.Pos, "Name conflict with a built-in function.")
		}
		stored = valArg
	case KindString:
		if !valArg.IsVar {
			stored = VarStringValue(memGlobal(c.GlobalStr(valArg.LitString)))
		} else if isGlobal {
			return Value{}, typeErrorf(valArg.Pos, "Local string cannot be assigned to a global variable.")
		} else {
			stored = valArg
		}
	case KindNull:
		stored = valArg
	case KindInt:
		target, err := storageFor(c, scope, isGlobal, 8)
		if err != nil {
			return Value{}, err
		}
		if _, err := c.valueToReg(valArg, Rax, scope); err != nil {
			return Value{}, err
		}
		scope.Emit(MovQQ(MovPair{Dst: movMem(target), Src: movReg(Rax)}))
		stored = VarIntValue(target)
	case KindBool:
		target, err := storageFor(c, scope, isGlobal, 1)
		if err != nil {
			return Value{}, err
		}
		if _, err := c.valueToReg(valArg, Rax, scope); err != nil {
			return Value{}, err
		}
		scope.Emit(MovBB(MovPair{Dst: movMem(target), Src: movReg(Rax)}))
		stored = VarBoolValue(target)
	case KindFloat:
		return Value{}, typeErrorf(valArg.Pos, "Float assignment is not supported")
	default:
		return Value{}, typeErrorf(valArg.Pos, "argument 2 to `%s`: Array and Object are not assignable", f.Name)
	}

	if err := c.bindVar(name, stored, isGlobal, scope); err != nil {
		return Value{}, typeErrorf(nameArg.Pos, "Reassignment may not be possible in some scope.")
	}
	if stored.Kind == KindFunction {
		c.userDefined[name] = stored.Func
	}
	return NullValue(), nil
}

// storageFor allocates the backing cell an assignment's value gets
// copied into: a bss global for `global`, an anonymous scope temporary
// for `=`.
func storageFor(c *Compiler, scope *Scope, isGlobal bool, size uint32) (Memory, error) {
	if isGlobal {
		return memGlobal(c.GetBss(size)), nil
	}
	return scope.Tmp(size)
}

func builtinAssignGlobal(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return builtinAssign(c, f, scope, true)
}

func builtinAssignLocal(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return builtinAssign(c, f, scope, false)
}

func builtinReference(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	nameArg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if nameArg.Kind != KindString || nameArg.IsVar {
		return Value{}, typeErrorf(nameArg.Pos, "argument 1 to `$`: expected a literal String")
	}
	v, ok := c.lookupVar(nameArg.LitString, scope)
	if !ok {
		return Value{}, typeErrorf(nameArg.Pos, "Undefined variable: `%s`", nameArg.LitString)
	}
	return v, nil
}

// builtinScope runs a literal Object in a fresh nested lexical scope,
// returning whatever its last statement produces (evalFunc already
// wraps the call in scope.Begin()/End() because `scope` is Scoped).
func builtinScope(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	obj, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if obj.Kind != KindObject {
		return Value{}, typeErrorf(obj.Pos, "argument 1 to `scope`: expected Object (Literal), got %s", obj.typeName())
	}
	return c.evalObject(obj.LitObject, obj.Pos, scope)
}
