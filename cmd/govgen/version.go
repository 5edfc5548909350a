package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type VersionOptions struct {
	*GovgenOptions
}

func NewVersionOptions(g *GovgenOptions) *VersionOptions {
	return &VersionOptions{GovgenOptions: g}
}

func NewVersionCmd(o *VersionOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	return cmd
}

func (o *VersionOptions) Run() error {
	fmt.Fprintf(o.out, "govgen version %s\n", version)

	return nil
}
