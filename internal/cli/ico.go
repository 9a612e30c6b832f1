// internal/cli/ico.go
package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/waifuai/solana-ico/internal/curve"
	"github.com/waifuai/solana-ico/internal/errs"
	"github.com/waifuai/solana-ico/internal/ledger"
	"github.com/waifuai/solana-ico/internal/tokenomics"
	"github.com/waifuai/solana-ico/internal/transport"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	cyan  = color.New(color.FgCyan)
)

func newInitCmd() *cobra.Command {
	var (
		mintStr   string
		curveKind string
		basePrice uint64
		scaling   uint64
		supplyCap uint64
		steepness float64
		sigA      float64
		sigB      float64
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the token sale state for the configured wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				mint, err := parsePubkey(mintStr, "mint")
				if err != nil {
					return err
				}
				cfg := ledger.CurveConfig{
					Kind:           curve.Kind(curveKind),
					BasePrice:      decimal.NewFromUint64(basePrice),
					ScalingFactor:  decimal.NewFromUint64(scaling),
					TotalSupplyCap: supplyCap,
					Steepness:      steepness,
					A:              sigA,
					B:              sigB,
				}
				settlement, err := app.Settler.Initialize(cmd.Context(), app.Wallet.PublicKey, mint, cfg)
				if err != nil {
					return err
				}
				green.Println("ICO initialized")
				bold.Printf("  State account:  %s\n", settlement.State.StateAddress)
				bold.Printf("  Escrow account: %s\n", settlement.State.EscrowAddress)
				fmt.Printf("  Signature:      %s\n", settlement.Confirmation.Signature)
				return nil
			})
		},
	}

	defaults := tokenomics.Default()
	cmd.Flags().StringVar(&mintStr, "mint", "", "token mint address (required)")
	cmd.Flags().StringVar(&curveKind, "curve", string(curve.KindLinear), "pricing curve: linear, exponential, sigmoid or polynomial")
	cmd.Flags().Uint64Var(&basePrice, "base-price", uint64(defaults.StartingPrice.IntPart()), "price per token at zero supply, in lamports")
	cmd.Flags().Uint64Var(&scaling, "scaling-factor", uint64(defaults.ScalingFactor.IntPart()), "supply at which the linear price doubles")
	cmd.Flags().Uint64Var(&supplyCap, "supply-cap", defaults.SaleSupply(), "maximum tokens the sale may mint")
	cmd.Flags().Float64Var(&steepness, "steepness", 0.01, "exponential curve steepness")
	cmd.Flags().Float64Var(&sigA, "sigmoid-a", 0.001, "sigmoid slope parameter")
	cmd.Flags().Float64Var(&sigB, "sigmoid-b", 0, "sigmoid midpoint supply")
	_ = cmd.MarkFlagRequired("mint")
	return cmd
}

func newBuyCmd() *cobra.Command {
	var (
		ownerStr    string
		referrerStr string
	)

	cmd := &cobra.Command{
		Use:   "buy <lamports>",
		Short: "Buy tokens with the given lamports at the current curve price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				principal, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				owner, err := ownerOrSelf(app, ownerStr)
				if err != nil {
					return err
				}
				req := ledger.BuyRequest{
					Owner:     owner,
					Buyer:     app.Wallet.PublicKey,
					Principal: principal,
				}
				if referrerStr != "" {
					referrer, err := parsePubkey(referrerStr, "referrer")
					if err != nil {
						return err
					}
					req.Referrer = &referrer
				}
				settlement, err := app.Settler.Buy(cmd.Context(), req)
				if err != nil {
					return err
				}
				green.Printf("Bought %d tokens for %d lamports\n", settlement.TokensMinted, principal)
				if settlement.Commission > 0 {
					cyan.Printf("  Referral commission: %d lamports to %s\n", settlement.Commission, settlement.Referrer)
				}
				fmt.Printf("  Tokens sold:    %d\n", settlement.State.TokensSold)
				fmt.Printf("  Escrow balance: %d lamports\n", settlement.State.EscrowBalance)
				fmt.Printf("  Signature:      %s\n", settlement.Confirmation.Signature)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ownerStr, "owner", "", "sale owner (defaults to the configured wallet)")
	cmd.Flags().StringVar(&referrerStr, "referrer", "", "referrer receiving a commission from this purchase")
	return cmd
}

func newSellCmd() *cobra.Command {
	var ownerStr string

	cmd := &cobra.Command{
		Use:   "sell <tokens>",
		Short: "Sell tokens back to the curve for an escrow refund",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				tokens, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				owner, err := ownerOrSelf(app, ownerStr)
				if err != nil {
					return err
				}
				settlement, err := app.Settler.Sell(cmd.Context(), ledger.SellRequest{
					Owner:  owner,
					Seller: app.Wallet.PublicKey,
					Tokens: tokens,
				})
				if err != nil {
					return err
				}
				green.Printf("Sold %d tokens for %d lamports\n", settlement.TokensBurned, settlement.LamportsOut)
				fmt.Printf("  Tokens sold:    %d\n", settlement.State.TokensSold)
				fmt.Printf("  Escrow balance: %d lamports\n", settlement.State.EscrowBalance)
				fmt.Printf("  Signature:      %s\n", settlement.Confirmation.Signature)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ownerStr, "owner", "", "sale owner (defaults to the configured wallet)")
	return cmd
}

func newWithdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <lamports>",
		Short: "Withdraw escrowed lamports to the owner wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				amount, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				settlement, err := app.Settler.Withdraw(cmd.Context(), ledger.WithdrawRequest{
					Owner:     app.Wallet.PublicKey,
					Requester: app.Wallet.PublicKey,
					Amount:    amount,
				})
				if err != nil {
					return err
				}
				green.Printf("Withdrew %d lamports\n", settlement.LamportsOut)
				fmt.Printf("  Escrow balance: %d lamports\n", settlement.State.EscrowBalance)
				fmt.Printf("  Signature:      %s\n", settlement.Confirmation.Signature)
				return nil
			})
		},
	}
}

func newInfoCmd() *cobra.Command {
	var ownerStr string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the sale state and on-chain account balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				owner, err := ownerOrSelf(app, ownerStr)
				if err != nil {
					return err
				}
				state, err := app.Ledger.State(owner)
				if err != nil {
					return err
				}

				// The two account lookups are independent round trips.
				var stateInfo, escrowInfo *transport.AccountInfo
				g, ctx := errgroup.WithContext(cmd.Context())
				g.Go(func() error {
					var err error
					stateInfo, err = app.Adapter.QueryAccount(ctx, state.StateAddress)
					if errs.KindOf(err) == errs.KindNotFound {
						err = nil
					}
					return err
				})
				g.Go(func() error {
					var err error
					escrowInfo, err = app.Adapter.QueryAccount(ctx, state.EscrowAddress)
					if errs.KindOf(err) == errs.KindNotFound {
						err = nil
					}
					return err
				})
				if err := g.Wait(); err != nil {
					return err
				}

				pricer, err := state.Config.Pricer()
				if err != nil {
					return err
				}

				bold.Println("Token sale")
				fmt.Printf("  Owner:          %s\n", state.Owner)
				fmt.Printf("  Mint:           %s\n", state.TokenMint)
				fmt.Printf("  State account:  %s\n", state.StateAddress)
				fmt.Printf("  Escrow account: %s\n", state.EscrowAddress)
				fmt.Printf("  Curve:          %s\n", pricer.Kind())
				fmt.Printf("  Tokens sold:    %d / %d\n", state.TokensSold, state.Config.TotalSupplyCap)
				fmt.Printf("  Current price:  %s lamports\n", pricer.Price(state.TokensSold))
				fmt.Printf("  Escrow balance: %d lamports\n", state.EscrowBalance)
				if stateInfo != nil {
					fmt.Printf("  State lamports on chain:  %d\n", stateInfo.Lamports)
				}
				if escrowInfo != nil {
					fmt.Printf("  Escrow lamports on chain: %d\n", escrowInfo.Lamports)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ownerStr, "owner", "", "sale owner (defaults to the configured wallet)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		ownerStr string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled settlements, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *App) error {
				owner, err := ownerOrSelf(app, ownerStr)
				if err != nil {
					return err
				}
				settlements, err := app.Store.ListSettlements(cmd.Context(), owner.String(), limit)
				if err != nil {
					return err
				}
				if len(settlements) == 0 {
					fmt.Println("No journaled settlements.")
					return nil
				}
				for _, s := range settlements {
					bold.Printf("%s  %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"), s.Kind)
					fmt.Printf("  Counterparty: %s\n", s.Counterparty)
					if s.Tokens > 0 {
						fmt.Printf("  Tokens:       %d\n", s.Tokens)
					}
					if s.Lamports > 0 {
						fmt.Printf("  Lamports:     %d\n", s.Lamports)
					}
					if s.Commission > 0 {
						fmt.Printf("  Commission:   %d to %s\n", s.Commission, s.Referrer)
					}
					fmt.Printf("  Signature:    %s\n", s.Signature)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ownerStr, "owner", "", "sale owner (defaults to the configured wallet)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum settlements to list")
	return cmd
}

func parsePubkey(s, label string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s address %q: %w", label, s, err)
	}
	return key, nil
}

func parseAmount(s string) (uint64, error) {
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

func ownerOrSelf(app *App, ownerStr string) (solana.PublicKey, error) {
	if ownerStr == "" {
		return app.Wallet.PublicKey, nil
	}
	return parsePubkey(ownerStr, "owner")
}
