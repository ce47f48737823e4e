// Package driver runs the Sable compilation pipeline: lex, parse, type
// check, ownership check, IR generation, then llc and the system linker.
// Stages run strictly in order and the first failing stage aborts the
// unit; independent units may compile in parallel.
package driver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sable-lang/sable/internal/checker"
	"github.com/sable-lang/sable/internal/codegen"
	"github.com/sable-lang/sable/internal/lexer"
	"github.com/sable-lang/sable/internal/ownership"
	"github.com/sable-lang/sable/internal/parser"
)

// SourceExt is the Sable source file extension.
const SourceExt = ".sb"

// Driver owns one toolchain configuration and compiles any number of
// units with it. It is safe for concurrent use.
type Driver struct {
	cfg Config
	tc  *Toolchain
}

// New creates a driver over the given tool configuration.
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg, tc: NewToolchain(cfg)}
}

// Tokenize lexes one source file and returns its token stream.
func (d *Driver) Tokenize(path string) ([]lexer.Token, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	return lexer.NewWithFilename(string(src), path).Tokenize()
}

// EmitIR runs the front and middle of the pipeline over one source file
// and returns the textual IR.
func (d *Driver) EmitIR(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read source")
	}
	return d.emitIR(string(src), path)
}

func (d *Driver) emitIR(src, path string) (string, error) {
	glog.V(1).Infof("lexing %s", path)
	tokens, err := lexer.NewWithFilename(src, path).Tokenize()
	if err != nil {
		return "", err
	}

	glog.V(1).Infof("parsing %s (%d tokens)", path, len(tokens))
	prog, err := parser.Parse(tokens)
	if err != nil {
		return "", err
	}

	glog.V(1).Infof("type checking %s", path)
	info, err := checker.Check(prog)
	if err != nil {
		return "", err
	}

	glog.V(1).Infof("ownership checking %s", path)
	if err := ownership.Track(prog); err != nil {
		return "", err
	}

	glog.V(1).Infof("generating IR for %s", path)
	return codegen.EmitText(prog, info, filepath.Base(path))
}

// OutputName derives the default executable path for a source file by
// stripping the source extension.
func OutputName(path string) string {
	out := strings.TrimSuffix(path, SourceExt)
	if out == path {
		out = path + ".out"
	}
	return out
}

// Compile compiles one source file to a native executable and returns
// the executable's path. An empty outPath derives the name from the
// source path.
func (d *Driver) Compile(ctx context.Context, path, outPath string) (string, error) {
	if outPath == "" {
		outPath = OutputName(path)
	}
	if err := d.tc.CheckLLVM(ctx); err != nil {
		return "", err
	}

	text, err := d.EmitIR(path)
	if err != nil {
		return "", err
	}

	tmp, err := os.MkdirTemp("", "sable-build-")
	if err != nil {
		return "", errors.Wrap(err, "create build directory")
	}
	if !d.cfg.KeepTemps {
		defer os.RemoveAll(tmp)
	} else {
		glog.Infof("keeping build directory %s", tmp)
	}

	base := strings.TrimSuffix(filepath.Base(path), SourceExt)
	irPath := filepath.Join(tmp, base+".ll")
	objPath := filepath.Join(tmp, base+".o")
	if err := os.WriteFile(irPath, []byte(text), 0o644); err != nil {
		return "", errors.Wrap(err, "write IR")
	}

	glog.V(1).Infof("llc %s", irPath)
	if err := d.tc.EmitObject(ctx, irPath, objPath); err != nil {
		return "", err
	}
	glog.V(1).Infof("link %s", outPath)
	if err := d.tc.Link(ctx, objPath, outPath); err != nil {
		return "", err
	}
	glog.V(1).Infof("built %s", outPath)
	return outPath, nil
}

// CompileAll compiles several independent units in parallel. The first
// failure cancels the rest.
func (d *Driver) CompileAll(ctx context.Context, paths []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			_, err := d.Compile(ctx, p, "")
			return errors.Wrapf(err, "compile %s", p)
		})
	}
	return g.Wait()
}

// Run compiles a source file to a temporary executable, runs it, and
// returns the program's exit code.
func (d *Driver) Run(ctx context.Context, path string, args []string) (int, error) {
	tmp, err := os.MkdirTemp("", "sable-run-")
	if err != nil {
		return -1, errors.Wrap(err, "create run directory")
	}
	defer os.RemoveAll(tmp)

	exe, err := d.Compile(ctx, path, filepath.Join(tmp, strings.TrimSuffix(filepath.Base(path), SourceExt)))
	if err != nil {
		return -1, err
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err = cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrap(err, "run executable")
}
