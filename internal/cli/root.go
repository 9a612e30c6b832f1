// internal/cli/root.go
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/waifuai/solana-ico/internal/errs"
)

var (
	cfgFile string
	offline bool
)

var rootCmd = &cobra.Command{
	Use:   "ico",
	Short: "Bonding-curve token sale settlement on Solana",
	Long: `ico manages a token sale priced on a bonding curve: it initializes the
sale state at its program-derived address, settles buys and sells against
the curve, pays referral commissions, withdraws escrowed lamports to the
owner, and gates resources behind exact pay-per-access fees.

Every mutating command composes an effect, submits it as one transaction,
waits for confirmation and only then commits the local state. Confirmed
settlements are journaled to a local database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns a process exit code. Classified
// failures print their kind so scripts can tell a validation rejection
// from a transport failure.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "ico.yaml", "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "settle against an in-memory ledger instead of a cluster")

	rootCmd.AddCommand(
		newInitCmd(),
		newBuyCmd(),
		newSellCmd(),
		newWithdrawCmd(),
		newInfoCmd(),
		newHistoryCmd(),
		newResourceCmd(),
		newBalanceCmd(),
		newSendCmd(),
		newConfigCmd(),
	)
}

func printError(err error) {
	red := color.New(color.FgRed, color.Bold)
	if kind := errs.KindOf(err); kind != "" {
		red.Fprintf(os.Stderr, "Error (%s): ", kind)
	} else {
		red.Fprint(os.Stderr, "Error: ")
	}
	fmt.Fprintln(os.Stderr, err.Error())

	var e *errs.Error
	if errors.As(err, &e) && e.Retryable() {
		color.New(color.FgYellow).Fprintln(os.Stderr, "This failure may be transient; retrying can succeed.")
	}
}

// withApp wires the application for one command invocation and tears it
// down afterwards.
func withApp(cmd *cobra.Command, fn func(app *App) error) error {
	app, err := newApp(cmd.Context(), cfgFile, offline)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
