package builder

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// runCommand executes a prepared external command; tests swap this out to
// observe the build steps without a working toolchain.
var runCommand = func(cmd *exec.Cmd) error {
	return cmd.Run()
}

// run executes one external command inside dir with its output passed
// through to the build log.
func (b *Builder) run(ctx context.Context, phase, dir, name string, args ...string) error {
	log(ctx).Info().Str("phase", phase).Bool("command", true).
		Msg(strings.Join(append([]string{name}, args...), " "))

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := runCommand(cmd); err != nil {
		return eris.Wrapf(err, "Command %s failed", name)
	}

	return nil
}

// compile configures and builds the interpreter inside the scratch tree,
// then installs it into the target prefix. The linker strips every shared
// object and executable; static libraries keep their symbols and are handled
// during post-processing.
func (b *Builder) compile(ctx context.Context, opts []string) error {
	if err := b.run(ctx, "compile", b.cfg.SrcDir, "./configure", opts...); err != nil {
		return err
	}

	jobs := strconv.Itoa(runtime.NumCPU())
	if err := b.run(ctx, "compile", b.cfg.SrcDir, "make", "-j", jobs, "LDFLAGS=-Wl,--strip-all"); err != nil {
		return err
	}

	return b.run(ctx, "install", b.cfg.SrcDir, "make", "install")
}
