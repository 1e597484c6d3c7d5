package main

import "strconv"

// value.go is the compiler's value model: every literal source value
// the parser can produce, and every one the evaluator can attach a
// runtime location to, ported from original_source/src/value.rs's
// JValue enum (Null, Bool, Int, Float, String, Array, Function,
// Object), each non-Null variant split into a Literal form (known at
// compile time) and a Variable form (a runtime Memory slot) exactly as
// the original's Bind<T> wrapper does.

// Kind tags which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindFunction
	KindObject
)

// AsmFunc is a compiled lambda: the label of its entry point, its
// (currently always empty, see control.rs's "PARAMETERS HAS BEEN NOT
// IMPLEMENTED") parameter list, and its literal return value shape.
type AsmFunc struct {
	Label  LabelID
	Params []Value
	Ret    *Value
}

// Value is the sum type the evaluator passes between builtins: either
// a literal known at compile time or a runtime value living in a
// Memory slot. Array and Object carry their element Values directly
// (both only ever appear as compile-time literals, since the source
// language has no runtime array/object construction).
type Value struct {
	Kind Kind

	IsVar bool // true: Mem holds the runtime location. false: the Lit* field holds the value.
	Mem   Memory

	LitBool   bool
	LitInt    int64
	LitFloat  float64
	LitString string
	LitArray  []Value
	LitObject []ObjectEntry

	Func *AsmFunc

	Pos Position
}

// ObjectEntry is one key/value pair of a literal object, in source
// order. Order matters: evalObject (compiler.go) evaluates entries in
// order as a sequence of statements and returns only the last one's
// result, exactly as the original's eval_object does.
type ObjectEntry struct {
	Key   string
	KeyPos Position
	Val   Value
}

func NullValue() Value { return Value{Kind: KindNull} }

func LitBoolValue(b bool) Value   { return Value{Kind: KindBool, LitBool: b} }
func VarBoolValue(m Memory) Value { return Value{Kind: KindBool, IsVar: true, Mem: m} }

func LitIntValue(i int64) Value  { return Value{Kind: KindInt, LitInt: i} }
func VarIntValue(m Memory) Value { return Value{Kind: KindInt, IsVar: true, Mem: m} }

func LitFloatValue(f float64) Value  { return Value{Kind: KindFloat, LitFloat: f} }
func VarFloatValue(m Memory) Value   { return Value{Kind: KindFloat, IsVar: true, Mem: m} }

func LitStringValue(s string) Value  { return Value{Kind: KindString, LitString: s} }
func VarStringValue(m Memory) Value  { return Value{Kind: KindString, IsVar: true, Mem: m} }

func LitArrayValue(v []Value) Value          { return Value{Kind: KindArray, LitArray: v} }
func LitObjectValue(o []ObjectEntry) Value   { return Value{Kind: KindObject, LitObject: o} }

func FunctionValue(f *AsmFunc) Value { return Value{Kind: KindFunction, Func: f} }

// IsTruthy reports whether a literal Bool value is true; callers must
// only invoke this after confirming Kind == KindBool && !IsVar.
func (v Value) IsTruthy() bool { return v.LitBool }

// typeName renders the diagnostic name of v's kind, following the
// original's type-name strings in its TypeError messages.
func (v Value) typeName() string {
	switch v.Kind {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindFunction:
		return "Function"
	case KindObject:
		return "Object"
	default:
		return "Unknown"
	}
}

// String renders v the way the original's Display impl for JValue
// does, for diagnostics and the `'`/`value`/`eval` builtins that can
// surface a literal value back as source text.
func (v Value) String() string {
	if v.IsVar {
		switch v.Kind {
		case KindBool:
			return "<bool var>"
		case KindInt:
			return "<int var>"
		case KindFloat:
			return "<float var>"
		case KindString:
			return "<string var>"
		}
	}
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.LitBool {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.LitInt, 10)
	case KindFloat:
		return strconv.FormatFloat(v.LitFloat, 'g', -1, 64)
	case KindString:
		return "\"" + escapeString(v.LitString) + "\""
	case KindArray:
		s := "["
		for i, e := range v.LitArray {
			if i > 0 {
				s += ","
			}
			s += e.String()
		}
		return s + "]"
	case KindObject:
		s := "{"
		for i, e := range v.LitObject {
			if i > 0 {
				s += ","
			}
			s += "\"" + escapeString(e.Key) + "\":" + e.Val.String()
		}
		return s + "}"
	case KindFunction:
		return "<function>"
	default:
		return "<unknown>"
	}
}
