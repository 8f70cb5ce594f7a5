package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/aryankumar/coalesce/internal/check"
	"github.com/aryankumar/coalesce/internal/config"
	"github.com/aryankumar/coalesce/internal/output"
)

// sectionList wraps the listing for formats that need a top-level table
type sectionList struct {
	Sections []config.SectionInfo `json:"sections" yaml:"sections" toml:"sections"`
}

func newSectionsCmd(opts *rootOptions) *cobra.Command {
	var kinds bool

	cmd := &cobra.Command{
		Use:   "sections",
		Short: "List configured sections",
		Long: `List the sections in the configuration with their root, file patterns
and checks. Disabled sections are only run when named explicitly.

With --kinds, list the check kinds that can be used in a section instead.`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kinds {
				return listKinds(cmd.OutOrStdout())
			}
			return listSections(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&kinds, "kinds", false, "list available check kinds")

	return cmd
}

func listKinds(w io.Writer) error {
	for _, kind := range check.Kinds() {
		fmt.Fprintln(w, kind)
	}
	return nil
}

func listSections(w io.Writer, opts *rootOptions) error {
	infos := opts.manager.Sections()
	defaults := opts.config.Defaults

	format, err := output.ParseFormat(defaults.OutputFormat)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(format).Format(w, infos)
	case output.FormatTOML:
		return output.NewFormatter(format).Format(w, sectionList{Sections: infos})
	}

	if len(infos) == 0 {
		fmt.Fprintf(w, "No sections configured, \"coalesce run\" uses the built-in %q section\n", config.DefaultSectionName)
		return nil
	}
	return sectionsTable(w, infos, defaults.NoColor)
}

func sectionsTable(w io.Writer, infos []config.SectionInfo, noColor bool) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Root", "Files", "Checks", "Enabled"})

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	colors := output.NewColorScheme(w, noColor)
	yellow := color.New(color.FgYellow)

	for _, info := range infos {
		name := info.Name
		enabled := "yes"
		if info.Disabled {
			enabled = "no"
			if !colors.Disabled {
				enabled = yellow.Sprint(enabled)
			}
		}

		table.Append([]string{
			colors.Path(name),
			info.Root,
			strings.Join(info.Files, ","),
			strings.Join(info.Checks, ", "),
			enabled,
		})
	}

	table.Render()

	fmt.Fprintf(w, "\nTotal sections: %d\n", len(infos))
	return nil
}
