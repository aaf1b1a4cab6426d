package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"netstate-agent/internal/application/usecases"
	"netstate-agent/internal/domain/nm"
	"netstate-agent/internal/domain/services"
	"netstate-agent/internal/infrastructure/adapters"
	"netstate-agent/internal/infrastructure/config"
	"netstate-agent/internal/infrastructure/persistence"
)

type genOptions struct {
	outputDir  string
	yamlOutput bool
	stableUUID bool
	storePath  string
	nodeName   string
	save       bool
}

func newGenCmd(global *globalOptions) *cobra.Command {
	opts := &genOptions{}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate connection profiles",
		Long: `Reconcile the desired state against a current state snapshot and
compile the changed interfaces into NetworkManager connection profiles.

Profiles already present in the store with identical content are skipped.
UUIDs of stored profiles are reused.

  profilectl gen -d desired.yaml -c current.json              # keyfiles to stdout
  profilectl gen -d desired.yaml -c current.json -o ./out     # one keyfile per profile
  profilectl gen -d desired.yaml --yaml                       # profile documents
  profilectl gen -d desired.yaml --store ./p.db --save        # remember UUIDs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := global.requireDesired(); err != nil {
				return err
			}
			return runGen(cmd.Context(), cmd.OutOrStdout(), global, opts)
		},
	}

	hostname, _ := os.Hostname()
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "directory to write keyfiles to (default stdout)")
	cmd.Flags().BoolVar(&opts.yamlOutput, "yaml", false, "print profile documents instead of keyfiles")
	cmd.Flags().BoolVar(&opts.stableUUID, "stable-uuid", false, "derive new profile UUIDs from name and type")
	cmd.Flags().StringVar(&opts.storePath, "store", "", "sqlite profile store (default in-memory)")
	cmd.Flags().StringVar(&opts.nodeName, "node", hostname, "node name in the profile store")
	cmd.Flags().BoolVar(&opts.save, "save", false, "save generated profiles to the store")
	return cmd
}

func runGen(ctx context.Context, out io.Writer, global *globalOptions, opts *genOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openStore(ctx, opts.storePath)
	if err != nil {
		return err
	}
	defer db.Close()

	repository := persistence.NewSQLProfileRepository(db, adapters.NewRealClock(), global.logger)
	if err := repository.Migrate(ctx); err != nil {
		return err
	}

	// dry runs stop before the applier
	useCase := usecases.NewApplyNetworkStateUseCase(
		global.stateSource(),
		global.stateProvider(global.currentPath),
		repository,
		nil,
		services.NewStateReconciler(global.logger),
		services.NewStateVerifier(global.logger),
		usecases.ApplyOptions{StableUUID: opts.stableUUID},
		global.logger,
	)

	output, err := useCase.Execute(ctx, usecases.ApplyNetworkStateInput{NodeName: opts.nodeName, DryRun: true})
	if err != nil {
		return err
	}

	for _, conn := range output.Applied {
		if err := writeProfile(out, opts, conn); err != nil {
			return err
		}
	}
	for _, key := range output.Deleted {
		fmt.Fprintf(out, "# delete %s\n", key)
	}
	if len(output.Applied) == 0 && len(output.Deleted) == 0 {
		fmt.Fprintf(out, "# nothing to do, %d profiles unchanged\n", output.Unchanged)
	}

	if opts.save {
		if err := repository.SaveProfiles(ctx, opts.nodeName, output.Applied); err != nil {
			return err
		}
		if err := repository.DeleteProfiles(ctx, opts.nodeName, output.Deleted); err != nil {
			return err
		}
	}
	return nil
}

func openStore(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return persistence.OpenInMemory()
	}
	return persistence.OpenDatabase(ctx, config.DatabaseConfig{
		Driver:     persistence.DriverSQLite,
		SQLitePath: path,
	})
}

func writeProfile(out io.Writer, opts *genOptions, conn *nm.Connection) error {
	var (
		data []byte
		err  error
	)
	if opts.yamlOutput {
		data, err = nm.EncodeProfile(conn)
	} else {
		data, err = nm.RenderKeyfile(conn)
	}
	if err != nil {
		return err
	}

	if opts.outputDir == "" {
		if opts.yamlOutput {
			_, err = fmt.Fprintf(out, "---\n%s", data)
		} else {
			_, err = fmt.Fprintf(out, "# %s\n%s\n", conn.Key().FileName(), data)
		}
		return err
	}

	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return err
	}
	name := conn.Key().FileName()
	if opts.yamlOutput {
		name += ".yaml"
	}
	path := filepath.Join(opts.outputDir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, path)
	return err
}
