package print

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	isVerbose  = false
	isColoured = false
	out        io.Writer = os.Stdout
	errOut     io.Writer = os.Stderr
	infoStyle            = color.New(color.FgBlack).Add(color.BgCyan)
	warnStyle            = color.New(color.FgBlack).Add(color.BgHiYellow)
	erroStyle            = color.New(color.FgRed).Add(color.BgBlack)
)

// SetVerbose activates all the Verb calls
func SetVerbose() {
	isVerbose = true
}

// SetColoured activates ANSI colour codes
func SetColoured() {
	isColoured = true
}

// SetOutput redirects Info, Verb and Warn to w and Erro to e, mostly for tests
func SetOutput(w, e io.Writer) {
	out = w
	errOut = e
}

// Verb prints a message only if Verb is set - controlled via the --verbose flag
func Verb(a ...interface{}) {
	if isVerbose {
		Info(a...)
	}
}

// Info is for general purpose messages that are always shown
func Info(a ...interface{}) {
	if isColoured {
		fmt.Fprint(out, infoStyle.Sprint("INFO:"), " ", color.WhiteString(fmt.Sprintln(a...)))
	} else {
		fmt.Fprint(out, "INFO: ", fmt.Sprintln(a...))
	}
}

// Warn is for problems that do not stop the release, such as a skipped target
func Warn(a ...interface{}) {
	if isColoured {
		fmt.Fprint(out, warnStyle.Sprint("WARN:"), " ", color.YellowString(fmt.Sprintln(a...)))
	} else {
		fmt.Fprint(out, "WARN: ", fmt.Sprintln(a...))
	}
}

// Erro is for fatal errors, written to stderr
func Erro(a ...interface{}) {
	if isColoured {
		fmt.Fprint(errOut, erroStyle.Sprint("ERROR:"), " ", color.RedString(fmt.Sprintln(a...)))
	} else {
		fmt.Fprint(errOut, "ERROR: ", fmt.Sprintln(a...))
	}
}
