// internal/cli/resource.go
package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/waifuai/solana-ico/internal/storage"
)

func newResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Register and access fee-gated resources",
	}
	cmd.AddCommand(newResourceCreateCmd(), newResourceAccessCmd(), newResourceListCmd())
	return cmd
}

func newResourceCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <resource-id> <fee-lamports>",
		Short: "Register a resource or update its access fee",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				fee, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid fee %q: %w", args[1], err)
				}
				record, err := app.Registry.CreateOrUpdate(cmd.Context(), app.Wallet.PublicKey, args[0], fee)
				if err != nil {
					return err
				}
				if err := app.Store.SaveResourceState(cmd.Context(), &storage.ResourceStateRecord{
					Owner:      record.Owner.String(),
					ResourceID: record.ResourceID,
					Address:    record.Address.String(),
					AccessFee:  record.AccessFee,
					UpdatedAt:  time.Now().UTC(),
				}); err != nil {
					return err
				}
				green.Printf("Resource %q registered\n", record.ResourceID)
				fmt.Printf("  Address:    %s\n", record.Address)
				fmt.Printf("  Access fee: %d lamports\n", record.AccessFee)
				return nil
			})
		},
	}
}

func newResourceAccessCmd() *cobra.Command {
	var ownerStr string

	cmd := &cobra.Command{
		Use:   "access <resource-id> <lamports>",
		Short: "Pay the exact access fee for one use of a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				amount, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				owner, err := ownerOrSelf(app, ownerStr)
				if err != nil {
					return err
				}
				grant, err := app.Registry.Access(cmd.Context(), args[0], owner, app.Wallet.PublicKey, amount)
				if err != nil {
					return err
				}
				if err := app.Store.SaveAccessGrant(cmd.Context(), &storage.AccessGrant{
					ResourceID: grant.ResourceID,
					Owner:      owner.String(),
					Payer:      grant.Payer.String(),
					Lamports:   grant.Amount,
					Signature:  grant.Confirmation.Signature,
				}); err != nil {
					return err
				}
				green.Printf("Access granted to %q\n", grant.ResourceID)
				fmt.Printf("  Paid:      %d lamports\n", grant.Amount)
				fmt.Printf("  Signature: %s\n", grant.Confirmation.Signature)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ownerStr, "owner", "", "resource owner (defaults to the configured wallet)")
	return cmd
}

func newResourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resources registered by the configured wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				records, err := app.Store.ListResourceStates(cmd.Context(), app.Wallet.PublicKey.String())
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("No registered resources.")
					return nil
				}
				for _, r := range records {
					bold.Println(r.ResourceID)
					fmt.Printf("  Address:    %s\n", r.Address)
					fmt.Printf("  Access fee: %d lamports\n", r.AccessFee)
				}
				return nil
			})
		},
	}
}
