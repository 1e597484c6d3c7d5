package main

import (
	"os"
	"path/filepath"
)

// builtin_file.go ports original_source/src/builtin/file.rs's include:
// `{"include": ["path.jspl", "fnName", ...]}` parses another source
// file at compile time and pulls the named user-defined functions into
// the current module. The original tracks a per-file symbol table and
// caches already-included files across the whole compilation graph;
// this port keeps only a recursive-include guard and a check that every
// requested name is defined after the file is evaluated, since
// compile.go's Compile entry point compiles one source at a time and
// has no second Compiler instance to share a file-table cache with.

func (c *Compiler) registerFile() {
	c.Register("include", true, false, builtinInclude, AtLeast(1))
}

func builtinInclude(c *Compiler, f *FuncInfo, scope *Scope) (Value, error) {
	pathArg, err := f.Arg()
	if err != nil {
		return Value{}, err
	}
	if pathArg.Kind != KindString || pathArg.IsVar {
		return Value{}, typeErrorf(pathArg.Pos, "argument 1 to `include`: expected a literal String path")
	}

	wanted := map[string]bool{}
	for i := 2; i <= f.Len(); i++ {
		nameArg, err := f.Arg()
		if err != nil {
			return Value{}, err
		}
		if nameArg.Kind != KindString || nameArg.IsVar {
			return Value{}, typeErrorf(nameArg.Pos, "argument %d to `include`: expected a literal String function name", i)
		}
		wanted[nameArg.LitString] = true
	}

	absPath, err := filepath.Abs(pathArg.LitString)
	if err != nil {
		return Value{}, typeErrorf(pathArg.Pos, "IncludeError: %v: `%s`", err, pathArg.LitString)
	}
	if c.includeStack[absPath] {
		return Value{}, typeErrorf(pathArg.Pos, "IncludeError: Recursive include detected for `%s`", pathArg.LitString)
	}
	ext := filepath.Ext(absPath)
	if ext != ".jspl" && ext != ".json" {
		return Value{}, typeErrorf(pathArg.Pos, "IncludeError: Input file must be a .json or .jspl file.")
	}

	bytes, err := os.ReadFile(absPath)
	if err != nil {
		return Value{}, typeErrorf(pathArg.Pos, "IncludeError: Could not open file: `%s`", absPath)
	}

	tree, err := NewParser(bytes).Parse()
	if err != nil {
		return Value{}, err
	}

	if c.includeStack == nil {
		c.includeStack = map[string]bool{}
	}
	if c.includedFiles == nil {
		c.includedFiles = map[string]bool{}
	}
	c.includeStack[absPath] = true
	c.includedFiles[absPath] = true
	_, evalErr := c.Eval(tree, scope)
	delete(c.includeStack, absPath)
	if evalErr != nil {
		return Value{}, evalErr
	}

	missing := ""
	for name := range wanted {
		if _, ok := c.userDefined[name]; ok {
			continue
		}
		if missing != "" {
			missing += ", "
		}
		missing += name
	}
	if missing != "" {
		return Value{}, typeErrorf(pathArg.Pos, "DefineError: The following functions were not found: %s", missing)
	}
	return NullValue(), nil
}
