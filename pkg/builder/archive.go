package builder

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
)

// archive packs the install tree into a gzip-compressed tarball in the
// stack's upload directory. The tar stream is deterministic for a given
// tree: entries are sorted by name and written in PAX format.
func (b *Builder) archive(ctx context.Context, version *semver.Version, uploadDir string) error {
	if err := b.reportSize(ctx, b.cfg.InstallDir); err != nil {
		return err
	}

	dest := filepath.Join(uploadDir, fmt.Sprintf("python-%s.tar.gz", version))
	log(ctx).Info().Str("phase", "archive").Msgf("Packing %s", dest)

	handle, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "Failed to create %s", dest)
	}

	if err := writeTarGz(handle, b.cfg.InstallDir); err != nil {
		handle.Close()
		return eris.Wrapf(err, "Failed to pack %s", dest)
	}

	if err := handle.Close(); err != nil {
		return eris.Wrapf(err, "Failed to write %s", dest)
	}

	return b.reportSize(ctx, uploadDir)
}

// writeTarGz streams root's contents as a sorted PAX tar archive through a
// gzip writer at the highest compression level.
func writeTarGz(w io.Writer, root string) error {
	var paths []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path != root {
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)

	gzWriter, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}

	tarWriter := tar.NewWriter(gzWriter)
	for _, path := range paths {
		if err := addTarEntry(tarWriter, root, path); err != nil {
			return err
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}

	return gzWriter.Close()
}

// addTarEntry appends one file, directory or symlink to the archive with its
// path relative to root.
func addTarEntry(tarWriter *tar.Writer, root, path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}

	link := ""
	if fi.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(fi, link)
	if err != nil {
		return err
	}

	// Access and change times move whenever the tree is read; PAX would
	// record them, so the stream must not carry them.
	header.AccessTime = time.Time{}
	header.ChangeTime = time.Time{}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}

	header.Name = filepath.ToSlash(rel)
	if fi.IsDir() {
		header.Name += "/"
	}
	header.Format = tar.FormatPAX

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	if !fi.Mode().IsRegular() {
		return nil
	}

	handle, err := os.Open(path)
	if err != nil {
		return err
	}
	defer handle.Close()

	_, err = io.Copy(tarWriter, handle)
	return err
}

// reportSize logs the cumulative size of everything below dir, as a stand-in
// for du -sh.
func (b *Builder) reportSize(ctx context.Context, dir string) error {
	var total uint64
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.Type().IsRegular() {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			total += uint64(info.Size())
		}

		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "Failed to measure %s", dir)
	}

	log(ctx).Info().Str("phase", "archive").Msgf("%s uses %s", dir, humanize.IBytes(total))
	return nil
}
