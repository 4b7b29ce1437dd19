package builder

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"

	"github.com/morpheu/heroku-buildpack-python/pkg/config"
	"github.com/morpheu/heroku-buildpack-python/pkg/stack"
)

// Request carries the inputs of a single build: the exact interpreter
// version and the stack whose image is running the build.
type Request struct {
	Version *semver.Version
	Stack   string
}

// Builder drives the build pipeline for one runtime archive.
type Builder struct {
	cfg *config.Config
}

// New returns a Builder using the given configuration.
func New(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Run executes the whole pipeline: validate, fetch, extract, configure,
// compile, install, post-process, archive. The first failing phase aborts
// the run. Nothing is cleaned up on failure; the surrounding build
// environment is assumed to be disposable.
func (b *Builder) Run(ctx context.Context, req Request) error {
	if err := stack.Check(req.Stack, req.Version); err != nil {
		return err
	}

	log(ctx).Info().Msgf("Building Python %s for %s", req.Version, req.Stack)

	uploadDir := filepath.Join(b.cfg.UploadDir, req.Stack, "runtimes")
	for _, dir := range []string{b.cfg.SrcDir, uploadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return eris.Wrapf(err, "Failed to create directory %s", dir)
		}
	}

	archivePath, err := b.fetch(ctx, req.Version)
	if err != nil {
		return err
	}

	if err := b.extract(ctx, archivePath); err != nil {
		return err
	}

	if err := b.compile(ctx, configureOptions(req.Version, b.cfg.InstallDir)); err != nil {
		return err
	}

	if err := b.postProcess(ctx, req.Version); err != nil {
		return err
	}

	return b.archive(ctx, req.Version, uploadDir)
}
