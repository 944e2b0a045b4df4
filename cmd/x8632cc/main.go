// x8632cc is a CLI front end over pkg/driver, in the same one-file,
// doXxx-per-debug-flag shape as cmd/ralph-cc: it reads a pkg/irtext
// program, runs it through the backend, and writes the resulting x86-32
// assembly to stdout and to a sibling .s file.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gox8632/x8632cc/pkg/ctx"
	"github.com/gox8632/x8632cc/pkg/driver"
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/irtext"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	mattr       string
	sandboxed   bool
	mode        string
	dumpFrame   bool
	dumpAddrOpt bool
	dumpIRText  bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "x8632cc [file]",
		Short: "x8632cc compiles a small textual IR to sandboxed x86-32 assembly",
		Long: `x8632cc is a CLI front end for testing the x86-32 sandboxed AOT
backend in isolation. It reads a pkg/irtext program (a textual
stand-in for the IR a real caller builds in Go) and lowers it through
the same pipeline pkg/driver exposes to library callers.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileFile(args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVar(&mattr, "mattr", "", "target attribute: sse2 (default) or sse4.1")
	rootCmd.Flags().BoolVar(&sandboxed, "sandboxed", true, "emit the NaCl-style sandboxed ABI")
	rootCmd.Flags().StringVar(&mode, "O", "O2", "optimization level: O2 (linear-scan) or Om1 (single-pass)")
	rootCmd.Flags().BoolVar(&dumpFrame, "fdump-frame", false, "print frame-layout diagnostics to stderr")
	rootCmd.Flags().BoolVar(&dumpAddrOpt, "fdump-addropt", false, "print address-mode fusion diagnostics to stderr")
	rootCmd.Flags().BoolVar(&dumpIRText, "dirtext", false, "dump the parsed module back to irtext notation")

	return rootCmd
}

func compileFile(filename string, out, errOut io.Writer) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(errOut, "x8632cc: error reading %s: %v\n", filename, err)
		return err
	}

	p := irtext.NewParser(irtext.NewLexer(string(content)))
	mod := p.ParseModule()
	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			fmt.Fprintf(errOut, "%s: %s\n", filename, e)
		}
		return fmt.Errorf("parsing %s failed with %d errors", filename, len(p.Errors()))
	}

	if dumpIRText {
		dumpParsedModule(filename, mod, out)
	}

	c := ctx.New()
	isa, err := ctx.ParseInstructionSet(mattr)
	if err != nil {
		fmt.Fprintf(errOut, "x8632cc: %v\n", err)
		return err
	}
	c.ISA = isa
	c.Sandboxed = sandboxed
	c.Verbose = ctx.Verbosity{Frame: dumpFrame, AddrOpt: dumpAddrOpt}
	c.Out = func(line string) { fmt.Fprintln(errOut, line) }

	var asmText string
	var compileErr error
	switch mode {
	case "Om1":
		asmText, compileErr = driver.TranslateOm1(c, mod)
	case "O2", "":
		asmText, compileErr = driver.TranslateO2(c, mod)
	default:
		err := fmt.Errorf("unrecognized -O value %q (want O2 or Om1)", mode)
		fmt.Fprintf(errOut, "x8632cc: %v\n", err)
		return err
	}
	if compileErr != nil {
		fmt.Fprintf(errOut, "x8632cc: %v\n", compileErr)
	}

	outputFilename := asmOutputFilename(filename)
	if werr := os.WriteFile(outputFilename, []byte(asmText), 0o644); werr != nil {
		fmt.Fprintf(errOut, "x8632cc: error writing %s: %v\n", outputFilename, werr)
		return werr
	}
	fmt.Fprint(out, asmText)

	return compileErr
}

// dumpParsedModule writes the reparsed module back out in irtext
// notation, both to a sibling .irtext.parsed file and to stdout, in the
// same "write a file, then also print to stdout" convention doParse
// uses for -dparse.
func dumpParsedModule(filename string, mod *ir.Module, out io.Writer) {
	outputFilename := filename + ".irtext.parsed"
	if f, err := os.Create(outputFilename); err == nil {
		irtext.NewPrinter(f).PrintModule(mod)
		f.Close()
	}
	irtext.NewPrinter(out).PrintModule(mod)
}

func asmOutputFilename(filename string) string {
	for _, ext := range []string{".ir", ".irt", ".irtext"} {
		if strings.HasSuffix(filename, ext) {
			return filename[:len(filename)-len(ext)] + ".s"
		}
	}
	return filename + ".s"
}
