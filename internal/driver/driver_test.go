package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sable-lang/sable/internal/diag"
	"github.com/sable-lang/sable/internal/lexer"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main"+SourceExt)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file is not an error")
	assert.Equal(t, "llc", cfg.LLC)
	assert.Equal(t, "gcc", cfg.CC)
	assert.Equal(t, []string{"-no-pie"}, cfg.CFlags)
	assert.Equal(t, 2*time.Minute, cfg.ToolTimeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llc: llc-17\ncc: clang\nmin_llvm_version: 15.0.0\nkeep_temps: true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "llc-17", cfg.LLC)
	assert.Equal(t, "clang", cfg.CC)
	assert.Equal(t, "15.0.0", cfg.MinLLVMVersion)
	assert.True(t, cfg.KeepTemps)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("linker: ld\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "prog", OutputName("prog.sb"))
	assert.Equal(t, filepath.Join("a", "b"), OutputName(filepath.Join("a", "b.sb")))
	assert.Equal(t, "notes.txt.out", OutputName("notes.txt"))
}

func TestLLVMVersionParsing(t *testing.T) {
	out := `Ubuntu LLVM version 14.0.6
  Optimized build.
  Default target: x86_64-pc-linux-gnu`
	m := llvmVersionRE.FindStringSubmatch(out)
	require.NotNil(t, m)
	assert.Equal(t, "14.0.6", m[1])

	assert.Nil(t, llvmVersionRE.FindStringSubmatch("llc: command not found"))
}

func TestTokenize(t *testing.T) {
	path := writeSource(t, "fn main() -> i32 {\n    return 0\n}")
	d := New(DefaultConfig())

	tokens, err := d.Tokenize(path)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)
	assert.Equal(t, lexer.TokenFn, tokens[0].Type)
	assert.Equal(t, lexer.TokenEOF, tokens[len(tokens)-1].Type)
	assert.Equal(t, path, tokens[0].Pos.Filename)
}

func TestEmitIR(t *testing.T) {
	path := writeSource(t, "fn main() -> i32 {\n    let x = 5\n    return x\n}")
	d := New(DefaultConfig())

	text, err := d.EmitIR(path)
	require.NoError(t, err)
	assert.Contains(t, text, "define i32 @main() {")
	assert.Contains(t, text, "ret i32")
}

func TestPipelineStopsAtLexError(t *testing.T) {
	path := writeSource(t, "fn main() -> i32 {\n    let x = 5 $\n    return x\n}")
	d := New(DefaultConfig())

	_, err := d.EmitIR(path)
	require.Error(t, err)
	var lexErr *diag.LexError
	assert.ErrorAs(t, err, &lexErr)
}

func TestPipelineStopsAtParseError(t *testing.T) {
	path := writeSource(t, "fn main() -> i32 {\n    let = 5\n    return 0\n}")
	d := New(DefaultConfig())

	_, err := d.EmitIR(path)
	require.Error(t, err)
	var parseErr *diag.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestPipelineStopsAtTypeError(t *testing.T) {
	path := writeSource(t, "fn main() -> i32 {\n    return \"no\"\n}")
	d := New(DefaultConfig())

	_, err := d.EmitIR(path)
	require.Error(t, err)
	var typeErr *diag.TypeError
	assert.ErrorAs(t, err, &typeErr)
	assert.Equal(t, diag.TypeMismatch, typeErr.Kind)
}

func TestPipelineStopsAtOwnershipError(t *testing.T) {
	path := writeSource(t, `fn main() -> i32 {
    let s = "x"
    let t = <- s
    println(s)
    return 0
}`)
	d := New(DefaultConfig())

	_, err := d.EmitIR(path)
	require.Error(t, err)
	var ownErr *diag.OwnershipError
	assert.ErrorAs(t, err, &ownErr)
	assert.Equal(t, diag.UseAfterMove, ownErr.Kind)
}

func TestMissingSourceFile(t *testing.T) {
	d := New(DefaultConfig())
	_, err := d.EmitIR(filepath.Join(t.TempDir(), "absent.sb"))
	assert.Error(t, err)
}

func TestCompileReportsMissingBackend(t *testing.T) {
	path := writeSource(t, "fn main() -> i32 {\n    return 0\n}")
	cfg := DefaultConfig()
	cfg.LLC = filepath.Join(t.TempDir(), "no-such-llc")
	d := New(cfg)

	bin, err := d.Compile(context.Background(), path, "")
	require.Error(t, err)
	assert.Empty(t, bin)
	var backendErr *diag.BackendError
	assert.ErrorAs(t, err, &backendErr)
}
