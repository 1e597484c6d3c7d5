package main

// compiler.go is the front-end driver: the builtin registry, the
// evaluator (eval/evalObject/evalFunc), and global/bss/import
// bookkeeping, ported from original_source/src/builtin.rs's
// Jsonpiler::{eval, eval_args, eval_func, eval_object, register, run}.
// Where builtin.rs writes assembly text directly to self.data/self.text
// buffers, this version appends Instruction/DataDirective values to a
// Compiler's Text/Data slices; linker.go's two-pass driver turns those
// into bytes afterward (the teacher's repo keeps the same separation
// between "the compiler decides what to emit" and "the assembler turns
// it into machine code").

// ArityKind tags how many arguments a builtin accepts, following the
// original's Arity enum (Any, AtLeast(n), Exactly(n)); SomeArg (used
// only by `if`) is AtLeast(1) under a different name in the original,
// kept distinct here only for documentation value.
type ArityKind int

const (
	ArityAny ArityKind = iota
	ArityAtLeast
	ArityExactly
)

type Arity struct {
	Kind ArityKind
	N    int
}

func AnyArity() Arity            { return Arity{Kind: ArityAny} }
func AtLeast(n int) Arity        { return Arity{Kind: ArityAtLeast, N: n} }
func Exactly(n int) Arity        { return Arity{Kind: ArityExactly, N: n} }
func SomeArg() Arity             { return AtLeast(1) }

func (a Arity) validate(name string, pos Position, got int) error {
	switch a.Kind {
	case ArityAtLeast:
		if got < a.N {
			return arityErrorf(pos, name, a.N, got)
		}
	case ArityExactly:
		if got != a.N {
			return arityErrorf(pos, name, a.N, got)
		}
	}
	return nil
}

// FuncInfo is the call-site context passed to a builtin: its name,
// source position, and a cursor over its (already-evaluated, unless
// SkipEval) argument list, mirroring the original's FuncInfo plus its
// `arg()` helper.
type FuncInfo struct {
	Name string
	Pos  Position
	Args []Value
	idx  int
}

// Arg pops the next argument off the cursor, erroring if the call ran
// out (should not happen once Arity has been validated, but guards
// against builtin bugs the way the original's `.ok_or(...)` does).
func (f *FuncInfo) Arg() (Value, error) {
	if f.idx >= len(f.Args) {
		return Value{}, internalErrorf("%s: argument cursor exhausted", f.Name)
	}
	v := f.Args[f.idx]
	f.idx++
	return v, nil
}

func (f *FuncInfo) Len() int { return len(f.Args) }

// BuiltinFunc is a registered function's codegen body: given the
// call's arguments and the enclosing scope, it emits instructions into
// scope and/or compiler.Text/Data, and returns the call's result value.
type BuiltinFunc func(c *Compiler, f *FuncInfo, scope *Scope) (Value, error)

// Builtin is one registered name's dispatch record, exactly the
// original's (scoped, skip_eval, func, arg_len) Builtin tuple/struct.
type Builtin struct {
	Scoped   bool // wrap the call in a fresh nested Scope (Begin/End)
	SkipEval bool // pass raw, unevaluated argument trees (control.rs's `if`/`lambda`)
	Fn       BuiltinFunc
	Arity    Arity
}

// Compiler is the front-end's top-level state: the builtin registry,
// the global/bss symbol tables, the import table, and the accumulated
// data directives and out-of-line function bodies (lambdas) that feed
// linker.go.
type Compiler struct {
	Labels  *LabelTable
	Imports *ImportTable

	Data []DataDirective
	Text []Instruction // out-of-line code (lambda bodies, shared helpers) in emission order; Compile appends the entry point after it

	builtins    map[string]Builtin
	globals     map[string]Value
	userDefined map[string]*AsmFunc

	stringPool map[string]LabelID // dedups identical global string constants
	sharedHelp map[string]LabelID // dedups shared runtime helpers (error handlers, u8-to-16, ...)

	guiFlag *LabelID // set once `GUI` has initialized a window, guards against double-init (builtin_gui.go)

	includeStack  map[string]bool // paths currently being included, detects recursive include (builtin_file.go)
	includedFiles map[string]bool // every path ever pulled in via include, accumulated for the life of the Compiler (watch.go's include-aware rewatch)

	verbose bool
}

// IncludedFiles returns the absolute paths of every file pulled in via
// `include` so far, letting watch.go extend its watch set as a source
// tree grows new includes across rebuilds.
func (c *Compiler) IncludedFiles() []string {
	paths := make([]string, 0, len(c.includedFiles))
	for p := range c.includedFiles {
		paths = append(paths, p)
	}
	return paths
}

func NewCompiler() *Compiler {
	c := &Compiler{
		Labels:      NewLabelTable(),
		Imports:     NewImportTable(),
		builtins:    map[string]Builtin{},
		globals:     map[string]Value{},
		userDefined: map[string]*AsmFunc{},
		stringPool:  map[string]LabelID{},
		sharedHelp:  map[string]LabelID{},
	}
	c.registerAll()
	return c
}

// Register adds one builtin to the dispatch table, the Go shape of the
// original's Jsonpiler::register.
func (c *Compiler) Register(name string, scoped, skipEval bool, fn BuiltinFunc, arity Arity) {
	c.builtins[name] = Builtin{Scoped: scoped, SkipEval: skipEval, Fn: fn, Arity: arity}
}

func (c *Compiler) registerAll() {
	c.registerArithmetic()
	c.registerCompare()
	c.registerLogic()
	c.registerControl()
	c.registerVariable()
	c.registerString()
	c.registerOutput()
	c.registerEvaluate()
	c.registerGUI()
	c.registerFile()
}

// DllKernel32 / DllUser32 are the two DLLs every builtin in this
// package imports from, named the way the original's Jsonpiler::
// KERNEL32/USER32 constants are.
const (
	DllKernel32 = "KERNEL32.dll"
	DllUser32   = "USER32.dll"
)

// Import requests dll!fn and returns a label CallImp can target
// directly, deduping repeated requests for the same pair.
func (c *Compiler) Import(dll string, fn string, hint uint16) LabelID {
	return c.Imports.RequestLabel(c.Labels, dll, hint, fn)
}

// GlobalStr interns a literal Go string as a NUL-terminated .rdata
// constant, returning the same label for repeated identical strings
// (builtin.rs's global_str, plus the dedup the original achieves with
// its own string-literal cache).
func (c *Compiler) GlobalStr(s string) LabelID {
	if id, ok := c.stringPool[s]; ok {
		return id
	}
	id := c.Labels.Fresh()
	c.Data = append(c.Data, BytesDirective(id, s))
	c.stringPool[s] = id
	return id
}

// GetBss reserves size zero-initialized bytes in .bss, aligned to size
// (or 8, whichever is larger, to keep quad stores naturally aligned).
func (c *Compiler) GetBss(size uint32) LabelID {
	align := size
	if align < 8 {
		align = 8
	}
	id := c.Labels.Fresh()
	c.Data = append(c.Data, BssDirective(id, size, align))
	return id
}

// sharedHelper memoizes a runtime helper routine (an error handler, a
// UTF-8-to-UTF-16 converter, ...) by name, calling build to emit its
// body into Text only the first time it's requested — the Go shape of
// the original's get_custom_error/get_u8_to_16/get_msg_box, which key
// the same memoization off self.sym_table.
func (c *Compiler) sharedHelper(name string, build func(id LabelID)) LabelID {
	if id, ok := c.sharedHelp[name]; ok {
		return id
	}
	id := c.Labels.Fresh()
	c.sharedHelp[name] = id
	build(id)
	return id
}

// Eval recursively evaluates v: arrays evaluate each element in place,
// objects dispatch through evalObject, everything else is already a
// literal and is returned unchanged. Mirrors Jsonpiler::eval.
func (c *Compiler) Eval(v Value, scope *Scope) (Value, error) {
	switch v.Kind {
	case KindArray:
		out, err := c.evalArgs(v.LitArray, scope)
		if err != nil {
			return Value{}, err
		}
		r := LitArrayValue(out)
		r.Pos = v.Pos
		return r, nil
	case KindObject:
		return c.evalObject(v.LitObject, v.Pos, scope)
	default:
		return v, nil
	}
}

func (c *Compiler) evalArgs(args []Value, scope *Scope) ([]Value, error) {
	out := make([]Value, len(args))
	for i, a := range args {
		v, err := c.Eval(a, scope)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalObject runs every entry of a literal object as a statement in
// source order, discarding all but the last result (builtin.rs's
// eval_object): `{"a":..., "b":...}` runs the `a` call purely for
// effect, then returns what the `b` call produces.
func (c *Compiler) evalObject(entries []ObjectEntry, pos Position, scope *Scope) (Value, error) {
	if len(entries) == 0 {
		return Value{}, typeErrorf(pos, "Empty object is not allowed")
	}
	var result Value
	for i, e := range entries {
		v, err := c.evalFunc(scope, e.Key, e.KeyPos, e.Val)
		if err != nil {
			return Value{}, err
		}
		if i < len(entries)-1 {
			continue
		}
		result = v
	}
	return result, nil
}

// evalFunc dispatches one key/value pair as a function call: key is
// either a registered builtin name or a user-defined lambda; val is
// the call's argument (an Array spreads into multiple arguments, any
// other value is treated as the sole argument), exactly as
// Jsonpiler::eval_func.
func (c *Compiler) evalFunc(scope *Scope, name string, pos Position, val Value) (Value, error) {
	if b, ok := c.builtins[name]; ok {
		var tmp *Scope
		if b.Scoped {
			tmp = scope.Begin()
		}
		var argVals []Value
		if val.Kind == KindArray {
			if b.SkipEval {
				argVals = val.LitArray
			} else {
				ev, err := c.evalArgs(val.LitArray, scope)
				if err != nil {
					return Value{}, err
				}
				argVals = ev
			}
		} else if b.SkipEval {
			argVals = []Value{val}
		} else {
			ev, err := c.evalArgs([]Value{val}, scope)
			if err != nil {
				return Value{}, err
			}
			argVals = ev
		}
		if err := b.Arity.validate(name, pos, len(argVals)); err != nil {
			return Value{}, err
		}
		fi := &FuncInfo{Name: name, Pos: pos, Args: argVals}
		result, err := b.Fn(c, fi, scope)
		if err != nil {
			return Value{}, err
		}
		if tmp != nil {
			if err := scope.End(tmp); err != nil {
				return Value{}, err
			}
		}
		return result, nil
	}
	if fn, ok := c.userDefined[name]; ok {
		return c.callUserDefined(fn, name, pos, val, scope)
	}
	return Value{}, typeErrorf(pos, "Undefined function: `%s`", name)
}

// callUserDefined emits the Win64 call sequence for invoking a
// previously compiled lambda: move each argument into its calling
// convention slot, call, then wrap the return register into a Value
// of the lambda's declared return kind (eval_func's Json::Function
// branch).
func (c *Compiler) callUserDefined(fn *AsmFunc, name string, pos Position, val Value, scope *Scope) (Value, error) {
	var args []Value
	if val.Kind == KindArray {
		ev, err := c.evalArgs(val.LitArray, scope)
		if err != nil {
			return Value{}, err
		}
		args = ev
	} else {
		ev, err := c.evalArgs([]Value{val}, scope)
		if err != nil {
			return Value{}, err
		}
		args = ev
	}
	if len(args) != len(fn.Params) {
		return Value{}, arityErrorf(pos, name, len(fn.Params), len(args))
	}
	for i, a := range args {
		if a.Kind != fn.Params[i].Kind {
			return Value{}, typeErrorf(pos, "argument %d to `%s`: expected %s, got %s", i+1, name, fn.Params[i].typeName(), a.typeName())
		}
		if i < 4 {
			reg := WinArgRegs[i]
			if err := c.moveValueIntoReg(a, reg, scope); err != nil {
				return Value{}, err
			}
		} else {
			scope.UpdateArgsSlots(uint32(i + 1))
			r, err := c.valueToReg(a, Rax, scope)
			if err != nil {
				return Value{}, err
			}
			scope.Emit(MovArgSlot(int32(i*8), r))
		}
	}
	scope.Emit(Call(fn.Label))
	switch fn.Ret.Kind {
	case KindInt:
		m, err := scope.MovTmp(Rax)
		if err != nil {
			return Value{}, err
		}
		return VarIntValue(m), nil
	case KindBool:
		m, err := scope.MovTmp(Rax)
		if err != nil {
			return Value{}, err
		}
		return VarBoolValue(m), nil
	case KindString:
		m, err := scope.MovTmp(Rax)
		if err != nil {
			return Value{}, err
		}
		return VarStringValue(m), nil
	case KindNull:
		return NullValue(), nil
	default:
		return Value{}, typeErrorf(pos, "Unsupported return type: `%s`", fn.Ret.typeName())
	}
}

func (c *Compiler) moveValueIntoReg(v Value, reg Register, scope *Scope) error {
	_, err := c.valueToReg(v, reg, scope)
	return err
}

// valueToReg emits code to materialize v's int/bool into reg (imm or
// memory load) and returns reg, the shared "get this value into a GP
// register" step every builtin needs (mov_int/mov_bool's role in the
// original's utility module).
func (c *Compiler) valueToReg(v Value, reg Register, scope *Scope) (Register, error) {
	switch v.Kind {
	case KindInt:
		if v.IsVar {
			scope.Emit(MovQQ(MovPair{Dst: movReg(reg), Src: movMem(v.Mem)}))
		} else {
			scope.Emit(movQImm(reg, v.LitInt))
		}
		return reg, nil
	case KindBool:
		b := int64(0)
		if !v.IsVar && v.LitBool {
			b = 0xFF
		}
		if v.IsVar {
			scope.Emit(MovBB(MovPair{Dst: movReg(reg), Src: movMem(v.Mem)}))
		} else {
			scope.Emit(MovBB(MovPair{Dst: movReg(reg), HasImm: true, Imm: b}))
		}
		return reg, nil
	default:
		return reg, typeErrorf(v.Pos, "cannot materialize a %s into a register", v.typeName())
	}
}

// callAPICheckNull emits a call through the IAT followed by the
// standard "result == 0 -> jump to a custom error handler" guard every
// Win32 API call in the original wraps its CallApi in
// (internal.rs's call_api_check_null), reporting msg if the call
// fails.
func (c *Compiler) callAPICheckNull(imp LabelID, msg string, scope *Scope) {
	scope.Emit(CallImp(imp))
	scope.Emit(TestRdRd(Rax, Rax))
	okLabel := c.Labels.Fresh()
	scope.Emit(JCc(CCNE, okLabel))
	scope.Emit(Call(c.customErrorHandler(msg)))
	scope.Emit(Lbl(okLabel))
}

// customErrorHandler builds (once per distinct msg) a shared routine
// that pops up a MessageBoxA with msg and exits with code MAX_UINT,
// ported from internal.rs's get_custom_error.
func (c *Compiler) customErrorHandler(msg string) LabelID {
	return c.sharedHelper("err:"+msg, func(id LabelID) {
		msgID := c.GlobalStr(msg)
		msgBox := c.Import(DllUser32, "MessageBoxA", 0x285)
		exitProcess := c.Import(DllKernel32, "ExitProcess", 0x167)
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
