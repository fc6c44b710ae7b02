// Package checksum writes and verifies the SHA-256 manifest published next to
// the release archives.
package checksum

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
	"github.com/jxl-ui/jxl-release/src/pkg/release/bundle"
)

// Filename is the manifest name, in the output directory and on the release.
const Filename = "SHA256SUMS.txt"

// Entry is one line of the manifest.
type Entry struct {
	Digest string
	Name   string
}

func (e Entry) String() string {
	return e.Digest + "  " + e.Name
}

// Archives lists the publishable archives directly inside dir, sorted by name.
func Archives(dir string) ([]string, error) {
	infos, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read output directory")
	}
	var names []string
	for _, info := range infos {
		if info.Type().IsRegular() && bundle.IsArchive(info.Name()) {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Generate hashes every archive in outputDir and writes the manifest there.
// It returns the manifest path and its entries.
func Generate(outputDir string) (string, []Entry, error) {
	names, err := Archives(outputDir)
	if err != nil {
		return "", nil, err
	}

	var (
		entries []Entry
		buf     bytes.Buffer
	)
	for _, name := range names {
		digest, err := File(filepath.Join(outputDir, name))
		if err != nil {
			return "", nil, err
		}
		e := Entry{Digest: digest, Name: name}
		entries = append(entries, e)
		fmt.Fprintln(&buf, e.String())
		print.Verb(e.String())
	}

	path := filepath.Join(outputDir, Filename)
	if err := fs.WriteFileAtomic(path, buf.Bytes(), fs.PermDirShared, fs.PermFileShared); err != nil {
		return "", nil, errors.Wrap(err, "failed to write checksum manifest")
	}

	print.Info("Wrote", Filename, "with", len(entries), "entries")
	return path, entries, nil
}

// File returns the hex SHA-256 digest of a file.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "failed to hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Parse reads manifest lines in sha256sum format.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.SplitN(text, "  ", 2)
		if len(parts) != 2 || len(parts[0]) != sha256.Size*2 {
			return nil, errors.Errorf("malformed checksum line %d: %q", line, text)
		}
		entries = append(entries, Entry{Digest: strings.ToLower(parts[0]), Name: strings.TrimPrefix(parts[1], "*")})
	}
	return entries, scanner.Err()
}

// Mismatch describes an archive that does not match the manifest.
type Mismatch struct {
	Name     string
	Expected string
	Actual   string // empty when the file is missing
}

// Verify recomputes every digest listed in the manifest in outputDir. It
// returns the mismatches, and an error only when the manifest is unreadable.
func Verify(outputDir string) ([]Entry, []Mismatch, error) {
	f, err := os.Open(filepath.Join(outputDir, Filename))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open checksum manifest")
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, nil, err
	}

	var mismatches []Mismatch
	for _, e := range entries {
		path := filepath.Join(outputDir, e.Name)
		if !fs.IsFile(path) {
			mismatches = append(mismatches, Mismatch{Name: e.Name, Expected: e.Digest})
			continue
		}
		actual, err := File(path)
		if err != nil {
			return nil, nil, err
		}
		if actual != e.Digest {
			mismatches = append(mismatches, Mismatch{Name: e.Name, Expected: e.Digest, Actual: actual})
		}
	}
	return entries, mismatches, nil
}
