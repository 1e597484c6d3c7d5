package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// main.go is the process entry point: flag parsing feeding into
// cli.go's RunCLI, kept in the teacher's flat main.go shape (a single
// flag.FlagSet, no arena of subcommand-specific flag sets) since this
// module has far fewer target dimensions to parse than the teacher's
// multi-arch/multi-OS CLI did.

const versionString = "jpc 0.1.0"

func main() {
	flag.Usage = func() {
		cmdHelp()
	}
	output := flag.String("o", "", "output executable path")
	subsystem := flag.String("subsystem", "", "target subsystem: console or gui")
	flag.StringVar(subsystem, "S", "", "shorthand for -subsystem")
	verbose := flag.Bool("verbose", false, "verbose compilation diagnostics")
	flag.BoolVar(verbose, "v", false, "shorthand for -verbose")
	watch := flag.Bool("watch", false, "recompile on source file changes")
	flag.Parse()

	// -subsystem/-S left unset falls back to JPC_SUBSYSTEM, then to
	// console, the same override order outputDirEnv gives -o.
	subsystemArg := *subsystem
	if subsystemArg == "" {
		subsystemArg = subsystemEnv()
	}
	sub, err := parseSubsystem(subsystemArg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := &CommandContext{
		Verbose:    *verbose || VerboseMode,
		Subsystem:  sub,
		OutputPath: *output,
		Watch:      *watch,
	}

	if err := RunCLI(flag.Args(), ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseSubsystem(s string) (uint16, error) {
	switch strings.ToLower(s) {
	case "console", "":
		return SubsystemConsole, nil
	case "gui", "windows":
		return SubsystemGUI, nil
	default:
		return 0, fmt.Errorf("unsupported subsystem: %s (supported: console, gui)", s)
	}
}
