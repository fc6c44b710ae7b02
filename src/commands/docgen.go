package commands

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/urfave/cli.v1"
)

// GenerateDocs generates markdown documentation for the commands in app
func GenerateDocs(app *cli.App) (result string) {
	buffer := bytes.Buffer{}

	buffer.WriteString(fmt.Sprintf("# `%s`\n\n%s - %s\n\n", app.Name, app.Version, app.Authors[0].Name))

	if app.Usage != "" {
		buffer.WriteString(app.Usage)
		buffer.WriteString("\n\n")
	}

	buffer.WriteString(fmt.Sprintf("## Commands (%d)\n\n", len(app.Commands)))

	for _, command := range app.Commands {
		generateCommandDocs(app.Name, command, &buffer)
		buffer.WriteString("---\n\n")
	}

	if len(app.Flags) > 0 {
		buffer.WriteString("## Global Flags\n\n")
		for _, flag := range app.Flags {
			writeFlag(flag, &buffer)
		}
		buffer.WriteString("\n\n")
	}
	return buffer.String()
}

func generateCommandDocs(prefix string, command cli.Command, buffer *bytes.Buffer) {
	buffer.WriteString(fmt.Sprintf("### `%s %s`\n\n", prefix, command.Name))
	if command.Usage != "" {
		buffer.WriteString(fmt.Sprintf("Usage: `%s`\n\n", command.Usage))
	}
	if command.Description != "" {
		buffer.WriteString(fmt.Sprintf("%s\n\n", command.Description))
	}
	if len(command.Flags) > 0 {
		buffer.WriteString("#### Flags\n\n")
		for _, flag := range command.Flags {
			writeFlag(flag, buffer)
		}
		buffer.WriteString("\n")
	}
	if len(command.Subcommands) > 0 {
		buffer.WriteString(fmt.Sprintf("#### Subcommands (%d)\n\n", len(command.Subcommands)))
		for _, subcommand := range command.Subcommands {
			generateCommandDocs(fmt.Sprint(prefix, " ", command.Name), subcommand, buffer)
		}
		buffer.WriteString("\n")
	}
}

func writeFlag(flag cli.Flag, buffer *bytes.Buffer) {
	flagInfo := strings.SplitN(flag.String(), "\t", 2)
	if len(flagInfo) < 2 {
		buffer.WriteString(fmt.Sprintf("- `%s`\n", flagInfo[0]))
		return
	}
	buffer.WriteString(fmt.Sprintf("- `%s`: %s\n", flagInfo[0], flagInfo[1]))
}
