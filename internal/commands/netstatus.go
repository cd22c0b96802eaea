package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/WikipediaBrown/Kew-Developer/netstatus"
)

func newNetStatusCommand(app *App) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "netstatus",
		Short: "Report network reachability of the API host",
		Long: `Probe the network interfaces and the API host and print the reachability
status each time it changes, until interrupted. With --once a single probe is
printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if once {
				return runNetStatusOnce(cmd, app.runtime)
			}
			return runNetStatus(cmd, app.runtime.Monitor)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "probe once and exit")
	return cmd
}

func runNetStatusOnce(cmd *cobra.Command, rt *Runtime) error {
	prober := netstatus.DialProber{
		Address: probeAddress(rt.Resolver),
		Timeout: rt.Config.Network.Probe.Timeout,
	}
	status := prober.Probe(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), status)
	if status != netstatus.Satisfied {
		return exitWithCode(ExitNetwork, fmt.Errorf("network status is %s", status))
	}
	return nil
}

func runNetStatus(cmd *cobra.Command, m *netstatus.Monitor) error {
	updates, unsubscribe := m.Subscribe()
	defer unsubscribe()

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return m.Run(ctx)
	})
	g.Go(func() error {
		return printUpdates(ctx, cmd, updates)
	})
	return g.Wait()
}

func printUpdates(ctx context.Context, cmd *cobra.Command, updates <-chan netstatus.Status) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case status, ok := <-updates:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", time.Now().Format(time.RFC3339), status)
		}
	}
}
