// Package toolchain verifies the release preconditions before any build work
// starts: required tools on PATH and a working publishing credential.
package toolchain

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner"
	"github.com/jxl-ui/jxl-release/src/pkg/project"
)

// Authenticator verifies the publishing credential and returns the account it
// belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// Gate holds the preconditions for one run.
type Gate struct {
	Runner   runner.Runner
	Required []string
	Optional []string
	Auth     Authenticator // nil when nothing will be published
}

// Report lists which optional tools were found.
type Report struct {
	Available map[string]bool
	Account   string
}

// Has reports whether an optional tool was found.
func (r Report) Has(tool string) bool {
	return r.Available[tool]
}

// ToolsFor returns the required and optional tools for a project.
func ToolsFor(p project.Project) (required, optional []string) {
	opt := map[string]bool{"rustup": true}
	for _, t := range p.Targets {
		for _, s := range t.Strategies {
			switch s {
			case project.StrategyCross:
				opt["cross"] = true
			case project.StrategyZigbuild:
				opt["cargo-zigbuild"] = true
			case project.StrategyContainer:
				opt["docker"] = true
			}
		}
		if t.OS == "darwin" {
			for _, tool := range []string{"lipo", "sips", "iconutil", "hdiutil"} {
				opt[tool] = true
			}
		}
	}
	for tool := range opt {
		optional = append(optional, tool)
	}
	sort.Strings(optional)
	return []string{"cargo"}, optional
}

// Check verifies every precondition. All missing required tools are reported
// together in a single error.
func (g Gate) Check(ctx context.Context) (Report, error) {
	report := Report{Available: map[string]bool{}}

	var missing []string
	for _, tool := range g.Required {
		path, err := g.Runner.LookPath(tool)
		if err != nil {
			missing = append(missing, tool)
			continue
		}
		report.Available[tool] = true
		print.Verb("found", tool, "at", path)
	}
	if len(missing) > 0 {
		return report, errors.Errorf("required tools not found on PATH: %s", strings.Join(missing, ", "))
	}

	for _, tool := range g.Optional {
		if _, err := g.Runner.LookPath(tool); err != nil {
			print.Verb("optional tool", tool, "not found")
			continue
		}
		report.Available[tool] = true
		print.Verb("found optional tool", tool)
	}

	if g.Auth == nil {
		return report, nil
	}
	account, err := g.Auth.Authenticate(ctx)
	if err != nil {
		return report, errors.Wrap(err, "publishing credential is not authenticated")
	}
	report.Account = account
	print.Verb("authenticated as", account)

	return report, nil
}
