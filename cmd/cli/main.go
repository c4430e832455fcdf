// Command pf is the stockfolio command line client.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/and161185/stockfolio/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// globalFlags mirror config keys; only flags set on the command line
// override the layered config.
type globalFlags struct {
	configPath string
	api        string
	store      string
	redisAddr  string
	timeout    string
	logLevel   string
	cacert     string
	insecure   bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "pf",
		Short: "Stockfolio portfolio client",
		Long: `pf talks to the stockfolio API on behalf of a signed-in user.

The session (access token, refresh token and user) is kept in the
configured credential store and refreshed transparently when the access
token expires.

Examples:
  pf login -u alice
  pf watch add NVDA --target 150
  pf dashboard --follow`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", config.DefaultPath(), "config file")
	f.StringVar(&a.flags.api, "api", "", "API base URL")
	f.StringVar(&a.flags.store, "store", "", "credential store (file|redis|memory)")
	f.StringVar(&a.flags.redisAddr, "redis-addr", "", "Redis address for --store redis")
	f.StringVar(&a.flags.timeout, "timeout", "", "per-request timeout")
	f.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	f.StringVar(&a.flags.cacert, "cacert", "", "extra CA certificate (PEM)")
	f.BoolVar(&a.flags.insecure, "insecure", false, "skip TLS verification (dev)")

	root.AddCommand(
		newVersionCmd(a),
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newForgotPasswordCmd(a),
		newResetPasswordCmd(a),
		newRefreshCmd(a),
		newStocksCmd(a),
		newTxCmd(a),
		newWatchCmd(a),
		newDashboardCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(*cobra.Command, []string) error {
			a.printf("pf %s (%s)\n", version, buildDate)
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr, os.Getenv)
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		a.eprintf("pf: %v\n", err)
		stop()
		os.Exit(1)
	}
}
