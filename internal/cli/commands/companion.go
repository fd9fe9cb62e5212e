package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/weave-lang/weave/internal/cli/ui"
	"github.com/weave-lang/weave/internal/companion"
	"github.com/weave-lang/weave/internal/weaver/aspect"
)

var (
	companionAddr  string
	companionAdmin string
	companionRaw   bool
)

// NewCompanionCommand creates the companion command group
func NewCompanionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "companion",
		Short: "Run or query the companion registry",
		Long: `The companion registry is a small UDP key/value service that shares
registered aspects, interfaces and enums between weave runs.`,
	}

	cmd.PersistentFlags().StringVar(&companionAddr, "addr", "", "Registry address (default: companion.addr)")

	cmd.AddCommand(newCompanionServeCommand())
	cmd.AddCommand(newCompanionGetCommand())
	cmd.AddCommand(newCompanionSetCommand())
	cmd.AddCommand(newCompanionListCommand())
	cmd.AddCommand(newCompanionPingCommand())
	return cmd
}

func newCompanionServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry until interrupted",
		Example: `  # Serve on the well-known address with the configured store
  weave companion serve

  # Also expose the read-only HTTP admin API
  weave companion serve --admin 127.0.0.1:8081`,
		Args: cobra.NoArgs,
		RunE: runCompanionServe,
	}
	cmd.Flags().StringVar(&companionAdmin, "admin", "", "HTTP admin address (default: companion.admin_addr)")
	return cmd
}

func runCompanionServe(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := companion.OpenStore(ctx, env.cfg.StoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	addr := registryAddr(env)
	admin := env.cfg.Companion.AdminAddr
	if companionAdmin != "" {
		admin = companionAdmin
	}

	return serve(ctx, env.logger, store, addr, admin)
}

// serve runs the registry and, when admin is set, the admin API until ctx
// is done or either of them fails.
func serve(ctx context.Context, logger *zap.Logger, store companion.Store, addr, admin string) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := companion.NewServer(store, logger)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, addr)
	})
	if admin != "" {
		g.Go(func() error {
			return companion.ServeAdmin(gctx, admin, store, logger)
		})
	}
	return g.Wait()
}

func newCompanionGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Show the definition registered under path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			client := registryClient(env)

			value, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if companionRaw {
				_, err := out.Write(value)
				return err
			}

			var rec aspect.Record
			if err := companion.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("%s does not hold a weave definition: %w", args[0], err)
			}
			if jsonOutput {
				return writeJSON(out, rec)
			}
			writeRecord(cmd, args[0], &rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&companionRaw, "raw", false, "Write the stored bytes unchanged")
	return cmd
}

func writeRecord(cmd *cobra.Command, path string, rec *aspect.Record) {
	table := ui.NewKeyValueTable(cmd.OutOrStdout(), noColor)
	table.AddRow("Path", path)
	table.AddRow("Kind", string(rec.Kind))
	table.AddRow("Name", rec.Name)
	if rec.ImportPath != "" {
		table.AddRow("Package", rec.ImportPath)
	}
	if len(rec.Methods) > 0 {
		names := make([]string, len(rec.Methods))
		for i, m := range rec.Methods {
			names[i] = m.Name
		}
		table.AddRow("Methods", strings.Join(names, ", "))
	}
	if len(rec.Supertypes) > 0 {
		table.AddRow("Supertypes", strings.Join(rec.Supertypes, ", "))
	}
	if len(rec.Members) > 0 {
		members := make([]string, 0, len(rec.Members))
		for name := range rec.Members {
			members = append(members, name)
		}
		sort.Strings(members)
		table.AddRow("Members", strings.Join(members, ", "))
	}
	table.Render()
}

func newCompanionSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a raw value in the registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			if err := registryClient(env).Set(cmd.Context(), args[0], []byte(args[1])); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Stored "+args[0], noColor)
			return nil
		},
	}
}

func newCompanionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List registered keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			keys, err := registryClient(env).List(cmd.Context(), prefix)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, map[string][]string{"keys": keys})
			}
			if len(keys) == 0 {
				fmt.Fprintln(out, "No keys registered")
				return nil
			}
			table := ui.NewTable(out, noColor, "KEY")
			for _, k := range keys {
				table.AddRow(k)
			}
			table.Render()
			return nil
		},
	}
}

func newCompanionPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the registry answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			client := registryClient(env)

			start := time.Now()
			if err := client.Ping(cmd.Context()); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(),
				fmt.Sprintf("Registry at %s answered in %s", client.Addr(), time.Since(start).Round(time.Microsecond)), noColor)
			return nil
		},
	}
}

func registryAddr(env *environment) string {
	if companionAddr != "" {
		return companionAddr
	}
	return env.cfg.Companion.Addr
}

func registryClient(env *environment) *companion.Client {
	return companion.NewClient(registryAddr(env), companion.WithTimeout(env.cfg.Companion.Timeout))
}
