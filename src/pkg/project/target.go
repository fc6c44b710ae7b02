package project

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Archive formats a target can be packaged as.
const (
	FormatTarGz = "tar.gz"
	FormatZip   = "zip"
	FormatDMG   = "dmg"
)

// Build strategies, tried in the order they are listed on a target.
const (
	StrategyCargo     = "cargo"
	StrategyCross     = "cross"
	StrategyZigbuild  = "zigbuild"
	StrategyContainer = "container"
)

// Target is one (architecture, operating system) pair to compile for.
// nolint:lll
type Target struct {
	Triple     string   `json:"triple" yaml:"triple"`                             // rust target triple, e.g. x86_64-unknown-linux-gnu
	OS         string   `json:"os,omitempty" yaml:"os,omitempty"`                 // linux, darwin or windows - derived from the triple when empty
	Arch       string   `json:"arch,omitempty" yaml:"arch,omitempty"`             // x86_64 or aarch64 - derived from the triple when empty
	Platform   string   `json:"platform,omitempty" yaml:"platform,omitempty"`     // label used in artifact names, e.g. linux-x86_64
	Formats    []string `json:"formats,omitempty" yaml:"formats,omitempty"`       // archive formats for this target
	Strategies []string `json:"strategies,omitempty" yaml:"strategies,omitempty"` // build strategies in fallback order
}

// Native reports whether the target runs on the host operating system. Native
// targets are always mandatory, regardless of the failure policy.
func (t Target) Native(hostOS string) bool {
	return t.OS == hostOS
}

// Executable returns the binary filename for this target.
func (t Target) Executable(binary string) string {
	if t.OS == "windows" {
		return binary + ".exe"
	}
	return binary
}

// CargoOutput returns where cargo leaves the release binary for this target.
func (t Target) CargoOutput(projectDir, binary string) string {
	return filepath.Join(projectDir, "target", t.Triple, "release", t.Executable(binary))
}

// DisplayOS is the human name of the target operating system.
func (t Target) DisplayOS() string {
	switch t.OS {
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	}
	return t.OS
}

func (t Target) String() string {
	return fmt.Sprintf("%s (%s)", t.Platform, t.Triple)
}

// withDefaults fills OS, Arch, Platform, Formats and Strategies from the triple.
func (t Target) withDefaults() Target {
	parts := strings.Split(t.Triple, "-")
	if t.Arch == "" && len(parts) > 0 {
		t.Arch = parts[0]
	}
	if t.OS == "" {
		switch {
		case strings.Contains(t.Triple, "apple-darwin"):
			t.OS = "darwin"
		case strings.Contains(t.Triple, "windows"):
			t.OS = "windows"
		case strings.Contains(t.Triple, "linux"):
			t.OS = "linux"
		}
	}
	if t.Platform == "" {
		osLabel := t.OS
		if osLabel == "darwin" {
			osLabel = "macos"
		}
		t.Platform = osLabel + "-" + t.Arch
	}
	if len(t.Formats) == 0 {
		switch t.OS {
		case "linux":
			t.Formats = []string{FormatTarGz}
		default:
			t.Formats = []string{FormatZip}
		}
	}
	if len(t.Strategies) == 0 {
		t.Strategies = []string{StrategyCargo}
		if t.OS == "linux" || t.OS == "windows" {
			t.Strategies = append(t.Strategies, StrategyCross)
		}
	}
	return t
}

func validFormat(f string) bool {
	return f == FormatTarGz || f == FormatZip
}

func validStrategy(s string) bool {
	switch s {
	case StrategyCargo, StrategyCross, StrategyZigbuild, StrategyContainer:
		return true
	}
	return false
}
