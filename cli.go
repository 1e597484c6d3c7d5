package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// cli.go is the user-friendly subcommand layer, kept in the teacher's
// cli.go shape (a CommandContext struct, one cmdXxx function per
// subcommand, shebang support) but rebuilt around this module's own
// domain: one JSON/S-expr source file in, one Win64 PE executable out,
// no multi-architecture target selection.

// CommandContext holds the flags every subcommand reads.
type CommandContext struct {
	Verbose    bool
	Subsystem  uint16
	OutputPath string
	Watch      bool
}

// RunCLI dispatches args[0] to the matching subcommand, the Go shape of
// the teacher's RunCLI.
func RunCLI(args []string, ctx *CommandContext) error {
	if len(args) == 0 {
		return cmdHelp()
	}

	if strings.HasSuffix(args[0], ".jspl") || strings.HasSuffix(args[0], ".json") {
		if content, err := os.ReadFile(args[0]); err == nil && len(content) > 2 && content[0] == '#' && content[1] == '!' {
			return cmdRun(ctx, args[0], args[1:])
		}
	}

	switch args[0] {
	case "build":
		if len(args) < 2 {
			return fmt.Errorf("usage: jpc [-o output] build <file.jspl>")
		}
		return cmdBuild(ctx, args[1])
	case "run":
		if len(args) < 2 {
			return fmt.Errorf("usage: jpc run <file.jspl> [args...]")
		}
		return cmdRun(ctx, args[1], args[2:])
	case "help", "--help", "-h":
		return cmdHelp()
	case "version", "--version", "-V":
		fmt.Println(versionString)
		return nil
	default:
		if strings.HasSuffix(args[0], ".jspl") || strings.HasSuffix(args[0], ".json") {
			return cmdBuild(ctx, args[0])
		}
		return fmt.Errorf("unknown command: %s\n\nRun 'jpc help' for usage information", args[0])
	}
}

// outputPathFor resolves the .exe path a build of inputFile should
// produce: ctx.OutputPath (from -o) takes precedence, then
// JPC_OUTPUT_DIR joined with the input's base name, then the input's
// base name in the current directory.
func outputPathFor(ctx *CommandContext, inputFile string) string {
	if ctx.OutputPath != "" {
		return ctx.OutputPath
	}
	base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile)) + ".exe"
	if dir := outputDirEnv(); dir != "" {
		return filepath.Join(dir, base)
	}
	return base
}

// buildOne compiles inputFile to outputPath and returns the Compiler
// instance used, so callers that care which other files got pulled in
// via `include` (watchAndRebuild, in particular) can inspect
// c.IncludedFiles() afterward.
func buildOne(ctx *CommandContext, inputFile, outputPath string) (*Compiler, error) {
	source, err := os.ReadFile(inputFile)
	if err != nil {
		return nil, ioErrorf("could not read %s: %v", inputFile, err)
	}
	if ctx.Verbose {
		fmt.Fprintf(os.Stderr, "Building %s -> %s\n", inputFile, outputPath)
	}
	c := NewCompiler()
	exe, err := c.Compile(source, ctx.Subsystem)
	if err != nil {
		return c, err
	}
	if err := os.WriteFile(outputPath, exe, 0755); err != nil {
		return c, ioErrorf("could not write %s: %v", outputPath, err)
	}
	return c, nil
}

// cmdBuild compiles a source file to an executable.
func cmdBuild(ctx *CommandContext, inputFile string) error {
	outputPath := outputPathFor(ctx, inputFile)
	if ctx.Watch {
		return watchAndRebuild(inputFile, func() ([]string, error) {
			c, err := buildOne(ctx, inputFile, outputPath)
			if c == nil {
				return nil, err
			}
			return c.IncludedFiles(), err
		})
	}
	if _, err := buildOne(ctx, inputFile, outputPath); err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}
	fmt.Printf("Built: %s\n", outputPath)
	return nil
}

// cmdRun compiles inputFile to a temporary executable and runs it
// immediately, cleaning up afterward.
func cmdRun(ctx *CommandContext, inputFile string, programArgs []string) error {
	tmpDir := "/dev/shm"
	if _, err := os.Stat(tmpDir); os.IsNotExist(err) {
		tmpDir = os.TempDir()
	}
	baseName := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	tmpExec := filepath.Join(tmpDir, fmt.Sprintf("jpc_run_%s_%d.exe", baseName, os.Getpid()))
	defer os.Remove(tmpExec)

	if _, err := buildOne(ctx, inputFile, tmpExec); err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}

	code, err := runExecutable(tmpExec, programArgs)
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

func cmdHelp() error {
	fmt.Printf(`%s - a JSON/S-expression compiler targeting Win64 PE executables

USAGE:
    jpc [flags] <command> [arguments]

COMMANDS:
    build <file.jspl>      Compile a source file to a .exe
    run <file.jspl>        Compile and run a program immediately
    help                   Show this help message
    version                Show version information

SHORTHAND:
    jpc <file.jspl>        Same as 'jpc build <file.jspl>'

FLAGS (given before the command):
    -o <file>             Output executable path (default: input name + .exe)
    -S, -subsystem <name>  Target subsystem: console (default) or gui
    -watch                 Recompile on source file changes
    -v, -verbose           Verbose compilation diagnostics

EXAMPLES:
    jpc build hello.jspl
    jpc -o hello.exe build hello.jspl
    jpc run hello.jspl
    jpc -subsystem gui build gui_demo.jspl
`, versionString)
	return nil
}
