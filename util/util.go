// Package util holds small helpers shared by the command line and the terminal feed.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/reelcore/reelcore/filesystem"
	"golang.org/x/exp/constraints"
	"golang.org/x/term"
)

var (
	invalidFilenameChars = regexp.MustCompile(`[\\/<>:;"'|?!*{}#%&^+,~\s]`)
	repeatedUnderscores  = regexp.MustCompile(`__+`)
	edgeSeparators       = regexp.MustCompile(`^[_\-.]+|[_\-.]+$`)
)

// SanitizeFilename turns a free-form name, such as a scenario title, into a safe file name.
func SanitizeFilename(filename string) string {
	filename = invalidFilenameChars.ReplaceAllString(filename, "_")
	filename = repeatedUnderscores.ReplaceAllString(filename, "_")
	return edgeSeparators.ReplaceAllString(filename, "")
}

// Quantify returns "1 card" or "3 cards".
func Quantify(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// TerminalSize returns the size of the terminal attached to stdout.
func TerminalSize() (width, height int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// FileStem is the base name of path without its extension.
func FileStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// PrintErasable prints msg without a newline and returns a function that wipes it.
func PrintErasable(msg string) (eraser func()) {
	_, _ = fmt.Fprintf(os.Stdout, "\r%s", msg)
	return func() {
		_, _ = fmt.Fprintf(os.Stdout, "\r%s\r", strings.Repeat(" ", len(msg)))
	}
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Delete removes a file or a whole directory through the filesystem backend.
func Delete(path string) error {
	fs := filesystem.API()
	stat, err := fs.Stat(path)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		return fs.RemoveAll(path)
	}
	return fs.Remove(path)
}
