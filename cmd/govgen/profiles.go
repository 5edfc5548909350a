package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/resolver"
)

type ProfilesOptions struct {
	*GovgenOptions

	Output string
}

func NewProfilesOptions(g *GovgenOptions) *ProfilesOptions {
	return &ProfilesOptions{GovgenOptions: g}
}

func NewProfilesCmd(o *ProfilesOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List industry profiles",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputText, "Output format: text or json")
	return cmd
}

func (o *ProfilesOptions) Run() error {
	if err := checkOutput(o.Output, outputText, outputJSON); err != nil {
		return err
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	reg, err := p.profiles()
	if err != nil {
		return err
	}
	summaries := reg.Summaries()
	if o.Output == outputJSON {
		return writeJSON(o.out, summaries)
	}

	tw := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFRAMEWORKS\tMODULES\tADAPTERS")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name,
			dashIfEmpty(s.RegulatoryFrameworks), dashIfEmpty(s.ModuleRecommendations), dashIfEmpty(s.AdapterRecommendations))
	}
	return tw.Flush()
}

type ParamsOptions struct {
	*GovgenOptions

	Output string
}

func NewParamsOptions(g *GovgenOptions) *ParamsOptions {
	return &ParamsOptions{GovgenOptions: g}
}

func NewParamsCmd(o *ParamsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "List the configuration fields a client fills in",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputText, "Output format: text or json")
	return cmd
}

func (o *ParamsOptions) Run() error {
	if err := checkOutput(o.Output, outputText, outputJSON); err != nil {
		return err
	}
	params := resolver.ParameterSchema()
	if o.Output == outputJSON {
		return writeJSON(o.out, params)
	}

	group := ""
	for _, param := range params {
		if param.Group != group {
			group = param.Group
			fmt.Fprintf(o.out, "%s:\n", group)
		}
		req := ""
		if param.Required {
			req = " (required)"
		}
		fmt.Fprintf(o.out, "  %s [%s]%s  %s\n", param.Path, param.Type, req, param.Label)
		if len(param.Options) > 0 {
			fmt.Fprintf(o.out, "      options: %s\n", strings.Join(param.Options, ", "))
		}
	}
	return nil
}

func dashIfEmpty(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	return strings.Join(ss, ",")
}
