package bundle

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	jfs "github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
)

// entry is one file, directory or symlink below a staging directory. Name is
// the slash separated archive path, rooted at the staging directory's base name.
type entry struct {
	name   string
	path   string
	mode   fs.FileMode
	target string // symlink destination
}

// walk lists the staging directory in lexical order so archives of the same
// tree always come out identical.
func walk(srcDir string) (entries []entry, err error) {
	root := filepath.Base(srcDir)
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		e := entry{name: filepath.ToSlash(filepath.Join(root, rel)), path: path}

		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			e.mode = fs.ModeSymlink | 0o777
			if e.target, err = os.Readlink(path); err != nil {
				return err
			}
		case info.IsDir():
			e.mode = fs.ModeDir | 0o755
		case info.Mode()&0o111 != 0:
			e.mode = 0o755
		default:
			e.mode = 0o644
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// WriteTarGz packs srcDir into a gzip compressed tarball at dest. Ownership is
// dropped and every timestamp is set to mtime.
func WriteTarGz(srcDir, dest string, mtime time.Time) (err error) {
	entries, err := walk(srcDir)
	if err != nil {
		return errors.Wrap(err, "failed to list staging directory")
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, jfs.PermFileShared)
	if err != nil {
		return errors.Wrap(err, "failed to create archive")
	}
	defer func() {
		if errClose := f.Close(); errClose != nil && err == nil {
			err = errClose
		}
	}()

	gz, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.name,
			Mode:    int64(e.mode.Perm()),
			ModTime: mtime,
		}
		switch {
		case e.mode&fs.ModeSymlink != 0:
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.target
		case e.mode.IsDir():
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
		default:
			hdr.Typeflag = tar.TypeReg
			info, errStat := os.Stat(e.path)
			if errStat != nil {
				return errStat
			}
			hdr.Size = info.Size()
		}

		if err = tw.WriteHeader(hdr); err != nil {
			return errors.Wrapf(err, "failed to write header for %s", e.name)
		}
		if hdr.Typeflag == tar.TypeReg {
			if err = copyFileTo(tw, e.path); err != nil {
				return errors.Wrapf(err, "failed to archive %s", e.name)
			}
		}
	}

	if err = tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// WriteZip packs srcDir into a zip file at dest with the same normalisation
// as WriteTarGz.
func WriteZip(srcDir, dest string, mtime time.Time) (err error) {
	entries, err := walk(srcDir)
	if err != nil {
		return errors.Wrap(err, "failed to list staging directory")
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, jfs.PermFileShared)
	if err != nil {
		return errors.Wrap(err, "failed to create archive")
	}
	defer func() {
		if errClose := f.Close(); errClose != nil && err == nil {
			err = errClose
		}
	}()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: mtime,
		}
		if e.mode.IsDir() {
			hdr.Name += "/"
			hdr.Method = zip.Store
		}
		hdr.SetMode(e.mode)

		w, errCreate := zw.CreateHeader(hdr)
		if errCreate != nil {
			return errors.Wrapf(errCreate, "failed to write header for %s", e.name)
		}
		switch {
		case e.mode&fs.ModeSymlink != 0:
			_, err = io.WriteString(w, e.target)
		case e.mode.IsRegular():
			err = copyFileTo(w, e.path)
		}
		if err != nil {
			return errors.Wrapf(err, "failed to archive %s", e.name)
		}
	}

	return zw.Close()
}

func copyFileTo(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
