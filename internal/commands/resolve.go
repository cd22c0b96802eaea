package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/WikipediaBrown/Kew-Developer/endpoint"
)

func newResolveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print every endpoint's method and resolved URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd, app.runtime.Resolver)
		},
	}
}

func runResolve(cmd *cobra.Command, r *endpoint.Resolver) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, ep := range endpoint.All() {
		target, err := r.Resolve(ep)
		if err != nil {
			return exitWithCode(ExitConfig, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", ep, target.Method, target.URL)
	}
	return w.Flush()
}
