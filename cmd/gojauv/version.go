//go:build linux || darwin

package main

import (
	"fmt"
	"runtime/debug"

	"github.com/joeycumines/goja-uv/gojauv"
	"github.com/spf13/cobra"
)

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gojauv %s (uv %d.%d)\n", buildVersion(), gojauv.VersionMajor, gojauv.VersionMinor)
			return err
		},
	}
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
