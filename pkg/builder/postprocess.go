package builder

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// Version ranges with special post-install handling.
var (
	// Static archives are unaffected by the link-time stripping; these are
	// the trees that ship them.
	staticLibRange = mustConstraint(">= 3.4, < 3.10")
	// make install leaves these trees without a version-less python name.
	pythonLinkRange = mustConstraint(">= 3.4, < 3.10")
)

// Directories dropped from the install tree, wherever they appear.
var prunedDirs = map[string]bool{
	"test":      true,
	"tests":     true,
	"idle_test": true,
}

// postProcess trims the installed tree down to what the buildpack ships:
// static libraries lose their unneeded symbols, bundled test suites and
// bytecode caches are dropped and the version-less python name is restored.
func (b *Builder) postProcess(ctx context.Context, version *semver.Version) error {
	if staticLibRange.Check(version) {
		if err := b.stripStaticLibraries(ctx); err != nil {
			return err
		}
	}

	if err := b.pruneTestDirectories(ctx); err != nil {
		return err
	}

	if err := b.clearBytecodeCaches(ctx); err != nil {
		return err
	}

	if pythonLinkRange.Check(version) {
		if err := b.linkPython(ctx); err != nil {
			return err
		}
	}

	return nil
}

// stripStaticLibraries removes unneeded symbols from every static library
// below the install prefix. --strip-unneeded keeps the symbol-table sections
// relocation depends on, so the archives stay linkable.
func (b *Builder) stripStaticLibraries(ctx context.Context) error {
	var libs []string
	err := filepath.WalkDir(b.cfg.InstallDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".a") {
			libs = append(libs, path)
		}

		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "Failed to scan %s for static libraries", b.cfg.InstallDir)
	}

	if len(libs) == 0 {
		return nil
	}

	args := append([]string{"--strip-unneeded"}, libs...)
	return b.run(ctx, "post-process", "", "strip", args...)
}

// pruneTestDirectories drops the interpreter's bundled test suites, mirroring
// upstream distribution images. A no-op on builds configured with
// --disable-test-modules.
func (b *Builder) pruneTestDirectories(ctx context.Context) error {
	var doomed []string
	err := filepath.WalkDir(b.cfg.InstallDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() && prunedDirs[entry.Name()] {
			doomed = append(doomed, path)
			return filepath.SkipDir
		}

		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "Failed to scan %s for test directories", b.cfg.InstallDir)
	}

	for _, dir := range doomed {
		log(ctx).Debug().Str("phase", "post-process").Msgf("Removing %s", dir)
		if err := os.RemoveAll(dir); err != nil {
			return eris.Wrapf(err, "Failed to remove %s", dir)
		}
	}

	return nil
}

// clearBytecodeCaches deletes every .pyc file make install produced. The
// caches use timestamp-based invalidation, which the image build process
// invalidates wholesale by normalizing file timestamps.
//
// TODO: regenerate the caches with checked-hash invalidation (compileall
// --invalidation-mode checked-hash, default optimization level only) instead
// of shipping none at all.
func (b *Builder) clearBytecodeCaches(ctx context.Context) error {
	removed := 0
	err := filepath.WalkDir(b.cfg.InstallDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".pyc") {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}

		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "Failed to clear bytecode caches under %s", b.cfg.InstallDir)
	}

	log(ctx).Debug().Str("phase", "post-process").Msgf("Removed %d bytecode cache files", removed)
	return nil
}

// linkPython restores the version-less python name. The target is relative
// so the link survives relocation into /app at runtime.
func (b *Builder) linkPython(ctx context.Context) error {
	link := filepath.Join(b.cfg.InstallDir, "bin", "python")
	if err := os.Remove(link); err != nil && !eris.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "Failed to remove stale file %s", link)
	}

	if err := os.Symlink("python3", link); err != nil {
		return eris.Wrapf(err, "Failed to create symlink %s", link)
	}

	return nil
}
