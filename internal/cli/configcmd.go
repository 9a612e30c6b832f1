// internal/cli/configcmd.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waifuai/solana-ico/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and verify the configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigVerifyCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			bold.Println("Configuration")
			fmt.Printf("  Cluster:         %s (%s)\n", cfg.Cluster, cfg.ClusterURL)
			fmt.Printf("  Program ID:      %s\n", orUnset(cfg.ProgramID))
			fmt.Printf("  Keypair path:    %s\n", orUnset(cfg.KeypairPath))
			fmt.Printf("  Wallets file:    %s\n", orUnset(cfg.WalletsFile))
			fmt.Printf("  Commission rate: %.2f\n", cfg.CommissionRate)
			fmt.Printf("  Submit timeout:  %d ms\n", cfg.SubmitTimeout)
			fmt.Printf("  Journal path:    %s\n", cfg.JournalPath)
			fmt.Printf("  Log file:        %s\n", cfg.LogFile)
			return nil
		},
	}
}

func newConfigVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Validate the configuration and the signing keypair",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if _, err := cfg.RequireProgramID(); err != nil {
				return err
			}
			w, err := loadWallet(cfg)
			if err != nil {
				return err
			}
			green.Println("Configuration OK")
			fmt.Printf("  Wallet: %s\n", w.PublicKey)
			return nil
		},
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
