// internal/transport/solanarpc/instructions.go
package solanarpc

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/waifuai/solana-ico/internal/transport"
)

var associatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

// buildInstructions lowers an effect's actions to Solana instructions.
// Token actions address the counterparty's associated token account; a
// mint destination gets an idempotent ATA create prepended so first-time
// buyers do not need a separate setup step.
func buildInstructions(effect *transport.Effect, payer solana.PublicKey) ([]solana.Instruction, error) {
	instructions := make([]solana.Instruction, 0, len(effect.Actions)+1)

	for _, action := range effect.Actions {
		switch action.Kind {
		case transport.ActionMint:
			ata, _, err := solana.FindAssociatedTokenAddress(action.Destination, action.Mint)
			if err != nil {
				return nil, fmt.Errorf("failed to derive destination token account: %w", err)
			}
			instructions = append(instructions,
				createATAIdempotentInstruction(payer, action.Destination, action.Mint, ata),
				token.NewMintToInstruction(
					action.Tokens,
					action.Mint,
					ata,
					payer, // mint authority
					nil,
				).Build(),
			)

		case transport.ActionBurn:
			ata, _, err := solana.FindAssociatedTokenAddress(action.Source, action.Mint)
			if err != nil {
				return nil, fmt.Errorf("failed to derive source token account: %w", err)
			}
			instructions = append(instructions,
				token.NewBurnInstruction(
					action.Tokens,
					ata,
					action.Mint,
					action.Source,
					nil,
				).Build(),
			)

		case transport.ActionTransfer:
			instructions = append(instructions,
				system.NewTransferInstruction(
					action.Lamports,
					action.Source,
					action.Destination,
				).Build(),
			)

		case transport.ActionCreateAccount:
			// A lamport transfer to a fresh address creates the
			// system-owned account implicitly; rent lamports ride along.
			instructions = append(instructions,
				system.NewTransferInstruction(
					action.Lamports,
					payer,
					action.Destination,
				).Build(),
			)

		default:
			return nil, fmt.Errorf("unsupported action kind %q", action.Kind)
		}
	}

	return instructions, nil
}

// createATAIdempotentInstruction builds the associated token program's
// CreateIdempotent instruction (discriminator 1), which is a no-op when the
// account already exists.
func createATAIdempotentInstruction(payer, owner, mint, ata solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		associatedTokenProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SysVarRentPubkey, IsWritable: false, IsSigner: false},
		},
		[]byte{1},
	)
}
