// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/execproxy/execproxy/internal/issue"

	"github.com/spf13/cobra"
)

func newIssueCommand(app *App) *cobra.Command {
	var style string

	issueCmd := &cobra.Command{
		Use:   "issue [topic]",
		Short: "Show troubleshooting guidance",
		Long: `Show troubleshooting guidance.

Without arguments, lists every topic. With a topic name, renders its guidance.`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			var titles []string
			for _, i := range issue.Values() {
				titles = append(titles, i.Title())
			}
			return titles, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listIssues(app)
				return nil
			}
			return showIssue(app, args[0], style)
		},
	}

	issueCmd.Flags().StringVar(&style, "style", issueStyle, "glamour style: auto, dark, light, notty")

	return issueCmd
}

func listIssues(app *App) {
	fmt.Fprintln(app.stdout, TitleStyle.Render("Troubleshooting topics"))
	fmt.Fprintln(app.stdout)
	for _, i := range issue.Values() {
		fmt.Fprintf(app.stdout, "  %s\n", CmdStyle.Render(i.Title()))
	}
	fmt.Fprintln(app.stdout)
	fmt.Fprintln(app.stdout, SubtitleStyle.Render("Run 'execproxy issue <topic>' for details."))
}

func showIssue(app *App, title, style string) error {
	i, ok := issue.Lookup(title)
	if !ok {
		return app.fail(ExitFailure, fmt.Errorf("unknown topic %q, run 'execproxy issue' to list topics", title))
	}
	rendered, err := i.Render(style)
	if err != nil {
		return app.fail(ExitFailure, err)
	}
	fmt.Fprint(app.stdout, rendered)
	return nil
}
