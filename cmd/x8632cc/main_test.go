package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompileFileWritesAssemblyAndEchoesToStdout(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "add.irtext")
	program := `
(module
  (func @f
    (ret i32)
    (params (i32 %1) (i32 %2))
    (block entry
      (binop %3 i32 add (use i32 %1) (use i32 %2))
      (ret i32 (use i32 %3)))))`
	if err := os.WriteFile(src, []byte(program), 0o644); err != nil {
		t.Fatal(err)
	}

	mattr, sandboxed, mode = "", true, "O2"
	var out, errOut strings.Builder
	if err := compileFile(src, &out, &errOut); err != nil {
		t.Fatalf("compileFile: %v (stderr: %s)", err, errOut.String())
	}

	if !strings.Contains(out.String(), "\tret\n") {
		t.Errorf("expected the emitted assembly on stdout, got:\n%s", out.String())
	}

	asmPath := strings.TrimSuffix(src, ".irtext") + ".s"
	written, err := os.ReadFile(asmPath)
	if err != nil {
		t.Fatalf("expected %s to be written: %v", asmPath, err)
	}
	if string(written) != out.String() {
		t.Errorf("sibling .s file content should match stdout output")
	}
}

func TestCompileFileReportsParseErrorsForMalformedInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.irtext")
	if err := os.WriteFile(src, []byte("(module (func"), 0o644); err != nil {
		t.Fatal(err)
	}

	mattr, sandboxed, mode = "", true, "O2"
	var out, errOut strings.Builder
	if err := compileFile(src, &out, &errOut); err == nil {
		t.Fatal("expected a parse error for malformed irtext input")
	}
	if errOut.Len() == 0 {
		t.Error("expected parse errors to be reported on stderr")
	}
}
