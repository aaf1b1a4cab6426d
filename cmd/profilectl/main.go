// profilectl compiles declarative network state into NetworkManager
// connection profiles without touching the host.
//
// Usage:
//
//	profilectl gen -d desired.yaml -c current.json -o ./out    Write keyfiles
//	profilectl validate -d desired.yaml [-c current.json]      Check a desired state
//	profilectl verify -d desired.yaml -c current.json          Compare against a snapshot
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"netstate-agent/internal/domain/entities"
	"netstate-agent/internal/infrastructure/adapters"
	"netstate-agent/internal/infrastructure/network"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every subcommand
type globalOptions struct {
	desiredPath string
	currentPath string
	verbose     bool
	logger      *logrus.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:               "profilectl",
		Short:             "Compile declarative network state into NetworkManager profiles",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.verbose)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.desiredPath, "desired", "d", "", "desired state file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&opts.currentPath, "current", "c", "", "current state snapshot (nmstatectl show output)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newGenCmd(opts),
		newValidateCmd(opts),
		newVerifyCmd(opts),
	)
	return rootCmd
}

func newLogger(out io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

func (o *globalOptions) requireDesired() error {
	if o.desiredPath == "" {
		return fmt.Errorf("desired state file required: use -d <file>")
	}
	return nil
}

func (o *globalOptions) stateSource() *network.FileStateSource {
	return network.NewFileStateSource(adapters.NewRealFileSystem(), o.desiredPath, o.logger)
}

func (o *globalOptions) stateProvider(path string) *network.FileStateProvider {
	return network.NewFileStateProvider(adapters.NewRealFileSystem(), path)
}

func countByState(ifaces entities.Interfaces) map[entities.InterfaceState]int {
	counts := map[entities.InterfaceState]int{}
	for _, iface := range ifaces {
		counts[iface.Base().EffectiveState()]++
	}
	return counts
}
