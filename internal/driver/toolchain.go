package driver

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/sable-lang/sable/internal/diag"
)

// Config controls the external backend tools. Zero values fall back to
// the defaults below.
type Config struct {
	LLC            string        `yaml:"llc"`
	CC             string        `yaml:"cc"`
	CFlags         []string      `yaml:"cflags"`
	MinLLVMVersion string        `yaml:"min_llvm_version"`
	ToolTimeout    time.Duration `yaml:"tool_timeout"`
	KeepTemps      bool          `yaml:"keep_temps"`
}

// DefaultConfig returns the stock tool configuration.
func DefaultConfig() Config {
	return Config{
		LLC:            "llc",
		CC:             "gcc",
		CFlags:         []string{"-no-pie"},
		MinLLVMVersion: "10.0.0",
		ToolTimeout:    2 * time.Minute,
	}
}

// LoadConfig reads a YAML tool configuration, filling unset fields with
// defaults. A missing file yields the defaults without error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "read tool config")
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse tool config %s", path)
	}
	if cfg.LLC == "" {
		cfg.LLC = "llc"
	}
	if cfg.CC == "" {
		cfg.CC = "gcc"
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 2 * time.Minute
	}
	return cfg, nil
}

// Toolchain invokes the external backend: llc for object emission and
// the C compiler as the linker driver.
type Toolchain struct {
	cfg Config
}

// NewToolchain wraps the configured tools.
func NewToolchain(cfg Config) *Toolchain { return &Toolchain{cfg: cfg} }

// CommandSpec describes one backend command invocation.
type CommandSpec struct {
	Cmd     string
	Args    []string
	WorkDir string
}

// run executes one backend command, mapping any failure to a
// BackendError carrying the tool's stderr.
func (t *Toolchain) run(ctx context.Context, spec CommandSpec) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.ToolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Cmd, spec.Args...)
	cmd.Dir = spec.WorkDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &diag.BackendError{Tool: spec.Cmd, Stderr: stderr.String(), Err: err}
	}
	return nil
}

var llvmVersionRE = regexp.MustCompile(`LLVM version (\d+\.\d+\.\d+)`)

// CheckLLVM verifies that llc is present and at least the configured
// minimum LLVM version.
func (t *Toolchain) CheckLLVM(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.ToolTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, t.cfg.LLC, "--version").CombinedOutput()
	if err != nil {
		return &diag.BackendError{Tool: t.cfg.LLC, Stderr: string(out), Err: err}
	}
	m := llvmVersionRE.FindSubmatch(out)
	if m == nil {
		return errors.Errorf("%s --version output has no LLVM version", t.cfg.LLC)
	}
	got, err := semver.NewVersion(string(m[1]))
	if err != nil {
		return errors.Wrapf(err, "parse LLVM version %q", m[1])
	}
	min, err := semver.NewVersion(t.cfg.MinLLVMVersion)
	if err != nil {
		return errors.Wrapf(err, "parse configured minimum LLVM version %q", t.cfg.MinLLVMVersion)
	}
	if got.LessThan(min) {
		return errors.Errorf("LLVM %s is older than required %s", got, min)
	}
	return nil
}

// EmitObject runs llc over a textual IR file, producing a native object
// file.
func (t *Toolchain) EmitObject(ctx context.Context, irPath, objPath string) error {
	return t.run(ctx, CommandSpec{
		Cmd:  t.cfg.LLC,
		Args: []string{"-filetype=obj", "-o", objPath, irPath},
	})
}

// Link turns an object file into an executable through the C compiler.
func (t *Toolchain) Link(ctx context.Context, objPath, exePath string) error {
	args := append([]string{}, t.cfg.CFlags...)
	args = append(args, "-o", exePath, objPath)
	return t.run(ctx, CommandSpec{Cmd: t.cfg.CC, Args: args})
}
