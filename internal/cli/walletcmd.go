// internal/cli/walletcmd.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waifuai/solana-ico/internal/transport"
)

func newBalanceCmd() *cobra.Command {
	var addressStr string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the lamport balance of the wallet or a given account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				account := app.Wallet.PublicKey
				if addressStr != "" {
					var err error
					account, err = parsePubkey(addressStr, "account")
					if err != nil {
						return err
					}
				}
				info, err := app.Adapter.QueryAccount(cmd.Context(), account)
				if err != nil {
					return err
				}
				bold.Printf("%s\n", account)
				fmt.Printf("  Balance: %d lamports\n", info.Lamports)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&addressStr, "address", "", "account to query (defaults to the configured wallet)")
	return cmd
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <recipient> <lamports>",
		Short: "Transfer lamports from the wallet to a recipient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				recipient, err := parsePubkey(args[0], "recipient")
				if err != nil {
					return err
				}
				amount, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				effect := transport.NewEffect(transport.Action{
					Kind:        transport.ActionTransfer,
					Source:      app.Wallet.PublicKey,
					Destination: recipient,
					Lamports:    amount,
				})
				conf, err := app.Adapter.Submit(cmd.Context(), effect)
				if err != nil {
					return err
				}
				green.Printf("Sent %d lamports to %s\n", amount, recipient)
				fmt.Printf("  Signature: %s\n", conf.Signature)
				return nil
			})
		},
	}
}
