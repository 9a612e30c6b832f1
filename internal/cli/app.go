// internal/cli/app.go
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/waifuai/solana-ico/internal/config"
	"github.com/waifuai/solana-ico/internal/curve"
	"github.com/waifuai/solana-ico/internal/ledger"
	"github.com/waifuai/solana-ico/internal/logger"
	"github.com/waifuai/solana-ico/internal/pda"
	"github.com/waifuai/solana-ico/internal/resource"
	"github.com/waifuai/solana-ico/internal/storage"
	"github.com/waifuai/solana-ico/internal/storage/sqlite"
	"github.com/waifuai/solana-ico/internal/transport"
	"github.com/waifuai/solana-ico/internal/transport/solanarpc"
	"github.com/waifuai/solana-ico/internal/wallet"
)

// App holds everything one CLI invocation needs: configuration, the signing
// wallet, the transport adapter, the journal store and the wired settler.
// State snapshots are rehydrated from the journal on startup so successive
// one-shot invocations see a consistent ledger.
type App struct {
	Cfg      *config.Config
	Logger   *logger.Logger
	Wallet   *wallet.Wallet
	Adapter  transport.Adapter
	Store    storage.Store
	Ledger   *ledger.Ledger
	Settler  ledger.Settler
	Registry *resource.Registry

	programID solana.PublicKey
}

// newApp wires the application from the config file at cfgPath. With
// offline set, effects settle against an in-memory adapter instead of a
// cluster; useful for local rehearsal of curve parameters.
func newApp(ctx context.Context, cfgPath string, offline bool) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	programStr, err := cfg.RequireProgramID()
	if err != nil {
		return nil, err
	}
	programID, err := solana.PublicKeyFromBase58(programStr)
	if err != nil {
		return nil, fmt.Errorf("invalid program_id: %w", err)
	}

	w, err := loadWallet(cfg)
	if err != nil {
		return nil, err
	}

	var adapter transport.Adapter
	if offline {
		mem := transport.NewMemory()
		mem.Fund(w.PublicKey, 10_000_000_000)
		adapter = mem
	} else {
		adapter = solanarpc.New(cfg.ClusterURL, w, solanarpc.Options{
			SubmitTimeout: time.Duration(cfg.SubmitTimeout) * time.Millisecond,
		}, log.Logger)
	}

	store, err := sqlite.NewStore(cfg.JournalPath, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := store.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	led, err := ledger.New(adapter, programID, cfg.CommissionRate, log.Logger)
	if err != nil {
		return nil, err
	}

	registry := resource.NewRegistry(adapter, programID, log.Logger)

	app := &App{
		Cfg:       cfg,
		Logger:    log,
		Wallet:    w,
		Adapter:   adapter,
		Store:     store,
		Ledger:    led,
		Settler:   ledger.WithJournal(ledger.WithLogging(led, log.Logger), store, log.Logger),
		Registry:  registry,
		programID: programID,
	}
	if err := app.restore(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func loadWallet(cfg *config.Config) (*wallet.Wallet, error) {
	if cfg.KeypairPath == "" {
		return nil, fmt.Errorf("keypair_path is not set; set it in the config file or via SOLANA_ICO_KEYPAIR_PATH")
	}
	return wallet.LoadFromFile(cfg.KeypairPath)
}

// restore rehydrates the ledger and registry from journaled snapshots.
func (a *App) restore(ctx context.Context) error {
	rec, err := a.Store.LoadIcoState(ctx, a.Wallet.PublicKey.String())
	if err != nil {
		return fmt.Errorf("failed to load journaled state: %w", err)
	}
	if rec != nil {
		state, err := stateFromRecord(rec, a.programID)
		if err != nil {
			return err
		}
		if err := a.Ledger.Restore(state); err != nil {
			return err
		}
	}

	resources, err := a.Store.ListResourceStates(ctx, a.Wallet.PublicKey.String())
	if err != nil {
		return fmt.Errorf("failed to load journaled resources: %w", err)
	}
	for _, r := range resources {
		owner, err := solana.PublicKeyFromBase58(r.Owner)
		if err != nil {
			continue
		}
		addr, _, err := pda.ResourceState(owner, r.ResourceID, a.programID)
		if err != nil {
			continue
		}
		a.Registry.Restore(resource.Record{
			Owner:      owner,
			ResourceID: r.ResourceID,
			AccessFee:  r.AccessFee,
			Address:    addr,
		})
	}
	return nil
}

// Close flushes the logger and closes the journal.
func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// stateFromRecord rebuilds the in-memory state from a journaled snapshot.
// Derived addresses are recomputed rather than trusted from the row.
func stateFromRecord(rec *storage.IcoStateRecord, programID solana.PublicKey) (ledger.IcoState, error) {
	owner, err := solana.PublicKeyFromBase58(rec.Owner)
	if err != nil {
		return ledger.IcoState{}, fmt.Errorf("journaled owner is not a valid public key: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(rec.TokenMint)
	if err != nil {
		return ledger.IcoState{}, fmt.Errorf("journaled mint is not a valid public key: %w", err)
	}
	basePrice, err := decimal.NewFromString(rec.BasePrice)
	if err != nil {
		return ledger.IcoState{}, fmt.Errorf("journaled base price: %w", err)
	}
	scaling, err := decimal.NewFromString(rec.ScalingFactor)
	if err != nil {
		return ledger.IcoState{}, fmt.Errorf("journaled scaling factor: %w", err)
	}
	stateAddr, _, err := pda.IcoState(owner, programID)
	if err != nil {
		return ledger.IcoState{}, err
	}
	escrowAddr, _, err := pda.Escrow(owner, programID)
	if err != nil {
		return ledger.IcoState{}, err
	}
	return ledger.IcoState{
		Owner:     owner,
		TokenMint: mint,
		Config: ledger.CurveConfig{
			Kind:           curve.Kind(rec.CurveKind),
			BasePrice:      basePrice,
			ScalingFactor:  scaling,
			TotalSupplyCap: rec.SupplyCap,
		},
		StateAddress:  stateAddr,
		EscrowAddress: escrowAddr,
		TokensSold:    rec.TokensSold,
		EscrowBalance: rec.EscrowBalance,
	}, nil
}
