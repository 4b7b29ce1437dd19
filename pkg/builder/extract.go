package builder

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// extract unpacks the downloaded source archive into the scratch directory,
// dropping the single Python-x.y.z/ directory that wraps every upstream
// tarball.
func (b *Builder) extract(ctx context.Context, archivePath string) error {
	log(ctx).Info().Str("phase", "extract").Msgf("Unpacking %s", archivePath)

	handle, err := os.Open(archivePath)
	if err != nil {
		return eris.Wrapf(err, "Failed to open %s", archivePath)
	}
	defer handle.Close()

	stat, err := handle.Stat()
	if err != nil {
		return eris.Wrapf(err, "Failed to read %s", archivePath)
	}

	var reader io.Reader
	switch {
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		gzReader, err := gzip.NewReader(handle)
		if err != nil {
			return eris.Wrapf(err, "Failed to read %s", archivePath)
		}
		defer gzReader.Close()
		reader = gzReader
	case strings.HasSuffix(archivePath, ".tar.xz"):
		xzReader, err := xz.NewReader(handle)
		if err != nil {
			return eris.Wrapf(err, "Failed to read %s", archivePath)
		}
		reader = xzReader
	default:
		return eris.Errorf("Archive format of %s is not supported", archivePath)
	}

	bar := getProgressBar(stat.Size(), "      extract")
	defer bar.Finish()

	return extractTar(reader, handle, bar, b.cfg.SrcDir)
}

func extractTar(r io.Reader, f *os.File, bar *progressbar.ProgressBar, destDir string) error {
	buf := make([]byte, 4096)
	archive := tar.NewReader(r)

	for {
		item, err := archive.Next()
		if err != nil {
			if err == io.EOF {
				break
			}

			return eris.Wrap(err, "Failed to read archive entry")
		}

		fi := item.FileInfo()
		if fi.IsDir() {
			continue
		}

		dest, ok := stripArchivePath(destDir, item.Name)
		if !ok {
			continue
		}

		destParent := filepath.Dir(dest)
		if err := os.MkdirAll(destParent, 0755); err != nil {
			return eris.Wrapf(err, "Failed to create directory %s", destParent)
		}

		if item.Typeflag == tar.TypeSymlink {
			if err := os.Remove(dest); err != nil && !eris.Is(err, os.ErrNotExist) {
				return eris.Wrapf(err, "Failed to remove stale file %s", dest)
			}

			if err := os.Symlink(item.Linkname, dest); err != nil {
				return eris.Wrapf(err, "Failed to create symlink %s pointing to %s", dest, item.Linkname)
			}
			continue
		}

		if item.Typeflag != tar.TypeReg {
			continue
		}

		destHandle, err := os.Create(dest)
		if err != nil {
			return eris.Wrapf(err, "Failed to create file %s", dest)
		}

		for {
			n, err := archive.Read(buf)
			if err != nil && n < 1 {
				if err == io.EOF {
					break
				}

				destHandle.Close()
				return eris.Wrapf(err, "Failed to read archive entry %s", item.Name)
			}

			if _, err := destHandle.Write(buf[:n]); err != nil {
				destHandle.Close()
				return eris.Wrapf(err, "Failed to write extracted file %s", dest)
			}

			if pos, err := f.Seek(0, io.SeekCurrent); err == nil {
				bar.Set64(pos)
			}
		}

		if err := destHandle.Close(); err != nil {
			return eris.Wrapf(err, "Failed to write extracted file %s", dest)
		}

		// The sources must keep their modes, configure has to stay executable.
		if err := os.Chmod(dest, fi.Mode()); err != nil {
			return eris.Wrapf(err, "Failed to set permissions on %s", dest)
		}
	}

	return nil
}

// stripArchivePath maps an archive entry below destDir with the first path
// element removed. Entries that don't reach below the wrapping directory, or
// whose remaining elements climb back out of destDir, report ok = false.
func stripArchivePath(destDir, item string) (string, bool) {
	pathParts := strings.Split(filepath.Clean(item), string(filepath.Separator))
	if len(pathParts) < 2 {
		return "", false
	}

	dest := filepath.Join(destDir, filepath.Join(pathParts[1:]...))
	if !strings.HasPrefix(dest, destDir+string(filepath.Separator)) {
		return "", false
	}

	return dest, true
}
