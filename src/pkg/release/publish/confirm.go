package publish

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"gopkg.in/AlecAivazis/survey.v1"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// Prompt confirms with a survey prompt that defaults to no. AssumeYes answers
// every question without asking. Without a terminal on stdin, or when
// NonInteractive is set, the answer is no.
type Prompt struct {
	AssumeYes      bool
	NonInteractive bool
}

func (p Prompt) Confirm(message string) (bool, error) {
	if p.AssumeYes {
		print.Info(message, "yes (--yes)")
		return true, nil
	}
	if p.NonInteractive || !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		print.Warn(message, "no (stdin is not a terminal, pass --yes to confirm)")
		return false, nil
	}

	answer := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &answer, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to read confirmation")
	}
	return answer, nil
}
