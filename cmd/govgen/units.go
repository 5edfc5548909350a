package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/unit"
)

type UnitsOptions struct {
	*GovgenOptions

	Module string
	Layer  string
	Output string
}

func NewUnitsOptions(g *GovgenOptions) *UnitsOptions {
	return &UnitsOptions{GovgenOptions: g}
}

func NewUnitsCmd(o *UnitsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List registered built-in units and plugins",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVar(&o.Module, "module", "", "Only units that declare this module")
	cmd.Flags().StringVar(&o.Layer, "layer", "", "Only units in this layer: platform or context")
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputText, "Output format: text or json")
	return cmd
}

func (o *UnitsOptions) Run() error {
	if err := checkOutput(o.Output, outputText, outputJSON); err != nil {
		return err
	}
	if o.Layer != "" && o.Layer != unit.LayerPlatform && o.Layer != unit.LayerContext {
		return fmt.Errorf("unknown layer %q (want %s or %s)", o.Layer, unit.LayerPlatform, unit.LayerContext)
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	reg, err := p.units()
	if err != nil {
		return err
	}

	var infos []unit.Info
	switch {
	case o.Module != "":
		infos = reg.ByModule(o.Module)
	case o.Layer != "":
		infos = reg.ByLayer(o.Layer)
	default:
		infos = reg.Infos()
	}
	if o.Module != "" && o.Layer != "" {
		infos = inLayer(reg.ByLayer(o.Layer), infos)
	}
	if infos == nil {
		infos = []unit.Info{}
	}

	if o.Output == outputJSON {
		return writeJSON(o.out, infos)
	}
	tw := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tVERSION\tMODULES")
	for _, info := range infos {
		version := info.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.ID, info.Name, info.Kind, version, dashIfEmpty(info.Modules))
	}
	return tw.Flush()
}

// inLayer keeps the entries of infos whose id also appears in layer.
func inLayer(layer, infos []unit.Info) []unit.Info {
	ids := make(map[string]bool, len(layer))
	for _, info := range layer {
		ids[info.ID] = true
	}
	var out []unit.Info
	for _, info := range infos {
		if ids[info.ID] {
			out = append(out, info)
		}
	}
	return out
}
