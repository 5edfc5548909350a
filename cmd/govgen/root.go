package main

import (
	"io"

	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"
)

// version is set by the linker at build time.
var version = "dev"

// GovgenOptions holds the flags shared by every command.
type GovgenOptions struct {
	ProjectRoot string
	StorePath   string
	LogLevel    string
	LogFormat   string

	out    io.Writer
	errOut io.Writer
}

func NewGovgenOptions(out, errOut io.Writer) *GovgenOptions {
	return &GovgenOptions{out: out, errOut: errOut}
}

func NewGovgenCmd(o *GovgenOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "govgen",
		Version: version,
		Short:   "govgen generates data-governance standards and platform artifacts",
		Long: `govgen generates data-governance standards and platform artifacts.

A client configuration is resolved from an industry profile, stored under
.govgen/, and expanded into standards documents, platform configurations
and deployment scripts, packaged as one archive per run.`,
	}

	// Affects children as well
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// Disable docs header
	cmd.DisableAutoGenTag = true

	cmd.SetOut(o.out)
	cmd.SetErr(o.errOut)

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.ProjectRoot, "project-root", ".", "Project directory holding govgen.yml")
	pf.StringVar(&o.StorePath, "store", "", "Configuration store path (default: storePath from govgen.yml, else .govgen/config.json)")
	pf.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&o.LogFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(NewVersionCmd(NewVersionOptions(o)))
	cmd.AddCommand(NewInitCmd(NewInitOptions(o)))
	cmd.AddCommand(NewProfilesCmd(NewProfilesOptions(o)))
	cmd.AddCommand(NewParamsCmd(NewParamsOptions(o)))
	cmd.AddCommand(NewUnitsCmd(NewUnitsOptions(o)))
	cmd.AddCommand(NewResolveCmd(NewResolveOptions(o)))
	cmd.AddCommand(NewDeltaCmd(NewDeltaOptions(o)))
	cmd.AddCommand(NewValidateCmd(NewValidateOptions(o)))
	cmd.AddCommand(NewPreviewCmd(NewPreviewOptions(o)))
	cmd.AddCommand(NewGenerateCmd(NewGenerateOptions(o)))
	cmd.AddCommand(NewInspectCmd(NewInspectOptions(o)))
	cmd.AddCommand(NewHistoryCmd(NewHistoryOptions(o)))
	cmd.AddCommand(NewStatusCmd(NewStatusOptions(o)))
	cmd.AddCommand(NewConfigCmd(o))
	cmd.AddCommand(NewServeMCPCmd(NewServeMCPOptions(o)))

	// Reconfigure Commands
	cobrautil.VisitCommands(cmd, cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.ReconfigureLeafCmds(disallowExtraArgs),
		cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd))

	return cmd
}

// disallowExtraArgs rejects positional arguments for leaf commands that do
// not declare their own argument rule.
func disallowExtraArgs(cmd *cobra.Command) {
	if cmd.Args != nil {
		return
	}
	cobrautil.DisallowExtraArgs(cmd)
}
