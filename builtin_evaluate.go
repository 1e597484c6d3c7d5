package main

// builtin_evaluate.go ports original_source/src/builtin/evaluate.rs:
// ', eval, list, value. ' (quote) is the only SkipEval builtin here —
// it hands back its argument tree untouched; the rest receive
// already-evaluated arguments (evalFunc evaluates eagerly unless
// SkipEval is set), so value is identity, eval evaluates its argument
// once more (which runs a tree `'` handed back), and list just
// collects the evaluated argument list into a literal Array.

func (c *Compiler) registerEvaluate() {
	c.Register("'", false, true, builtinQuote, Exactly(1))
	c.Register("eval", false, false, builtinEval, Exactly(1))
	c.Register("list", false, false, builtinList, AnyArity())
	c.Register("value", false, false, builtinValue, Exactly(1))
}

func builtinQuote(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return f.Arg()
}

func builtinEval(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	v, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	return c.Eval(v, scope)
}

func builtinList(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return LitArrayValue(append([]Value(nil), f.Args...)), nil
}

func builtinValue(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	return f.Arg()
}
