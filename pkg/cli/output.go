/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/cns-portal/pkg/serializer"
)

func outputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    flagFormat,
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("output format (supported values: %s)", strings.Join(serializer.SupportedFormats(), ", ")),
	}
}

// parseOutputFormat validates the --format flag.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.ParseFormat(cmd.String(flagFormat))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q", cmd.String(flagFormat))
	}
	return f, nil
}

// newWriter writes to --output when set, else to the command's writer.
func newWriter(cmd *cli.Command, format serializer.Format) *serializer.Writer {
	if path := cmd.String(flagOutput); path != "" {
		return serializer.NewFileWriterOrStdout(format, path)
	}
	return serializer.NewWriter(format, stdout(cmd))
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
