// internal/pda/pda.go
package pda

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/waifuai/solana-ico/internal/errs"
)

// Seed prefixes fixed by the on-chain program. Any party can recompute the
// storage address of a state account from these and the public inputs.
var (
	seedIcoState      = []byte("ico_state")
	seedEscrowAccount = []byte("escrow_account")
	seedResourceState = []byte("resource_state")
)

// IcoState derives the address of the ICO state account for an owner.
func IcoState(owner, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{seedIcoState, owner.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, errs.E(errs.KindDerivation, "pda.ico_state",
			fmt.Errorf("failed to find ico state address: %w", err))
	}
	return addr, bump, nil
}

// Escrow derives the address of the escrow account for an owner.
func Escrow(owner, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{seedEscrowAccount, owner.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, errs.E(errs.KindDerivation, "pda.escrow",
			fmt.Errorf("failed to find escrow address: %w", err))
	}
	return addr, bump, nil
}

// ResourceState derives the address of a resource record keyed by the
// owning server and the resource identifier.
func ResourceState(owner solana.PublicKey, resourceID string, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{seedResourceState, owner.Bytes(), []byte(resourceID)},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, errs.E(errs.KindDerivation, "pda.resource_state",
			fmt.Errorf("failed to find resource state address for %q: %w", resourceID, err))
	}
	return addr, bump, nil
}
