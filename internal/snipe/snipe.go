// Package snipe implements the snipe executor: builder for the launchpad's
// buy instruction, PDA/ATA derivation, optional idempotent ATA creation,
// pre-flight simulation, and submit-and-confirm.
package snipe

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/elly-po/pumpsniper/internal/errkind"
	"github.com/elly-po/pumpsniper/internal/launchpad"
	"github.com/elly-po/pumpsniper/internal/model"
	"github.com/elly-po/pumpsniper/internal/rpcclient"
)

const buyDataLen = 24

// confirmPollInterval and confirmTimeout bound the send-and-confirm poll
// loop; the caller's context deadline still governs overall cancellation
// (§5 "Timeouts are owned by callers").
const confirmPollInterval = 500 * time.Millisecond

// RPC is the subset of rpcclient.Client the executor depends on.
type RPC interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	GetAccountInfoJSONParsed(ctx context.Context, addr solana.PublicKey) (*rpcclient.AccountInfo, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error)
}

// Executor assembles, signs, and submits the launchpad buy instruction.
type Executor struct {
	rpc              RPC
	launchpadProgram solana.PublicKey
	globalFeeVault   solana.PublicKey
	configAuthority  solana.PublicKey
	discriminator    [8]byte
}

// New constructs an Executor bound to the launchpad's fixed accounts and
// buy-instruction discriminator (all configuration-time, §6).
func New(rpc RPC, launchpadProgram, globalFeeVault, configAuthority solana.PublicKey, discriminator [8]byte) *Executor {
	return &Executor{
		rpc:              rpc,
		launchpadProgram: launchpadProgram,
		globalFeeVault:   globalFeeVault,
		configAuthority:  configAuthority,
		discriminator:    discriminator,
	}
}

// BuildBuyData assembles the exactly-24-byte buy instruction payload:
// discriminator[8] || amount_le[8] || max_le[8] (§4.8, §8 invariant 4).
func (e *Executor) BuildBuyData(amountNative uint64, maxSlippageSentinel int64) []byte {
	data := make([]byte, buyDataLen)
	copy(data[0:8], e.discriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], amountNative)
	binary.LittleEndian.PutUint64(data[16:24], uint64(maxSlippageSentinel))
	return data
}

// DerivedAccounts is the set of addresses the buy instruction resolves
// before assembly (§4.8 "PDA derivation", "ATA derivation").
type DerivedAccounts struct {
	GlobalPDA       solana.PublicKey
	BondingCurvePDA solana.PublicKey
	BondingCurveATA solana.PublicKey
	UserATA         solana.PublicKey
}

// Derive computes the two PDAs and two ATAs the buy instruction needs.
func (e *Executor) Derive(mint, payer solana.PublicKey) (DerivedAccounts, error) {
	globalPDA, _, err := solana.FindProgramAddress([][]byte{[]byte(launchpad.SeedGlobal)}, e.launchpadProgram)
	if err != nil {
		return DerivedAccounts{}, errkind.Wrap(errkind.InvalidAddress, "derive global pda", err)
	}
	bondingCurvePDA, _, err := solana.FindProgramAddress([][]byte{[]byte(launchpad.SeedBondingCurve), mint.Bytes()}, e.launchpadProgram)
	if err != nil {
		return DerivedAccounts{}, errkind.Wrap(errkind.InvalidAddress, "derive bonding-curve pda", err)
	}
	bondingCurveATA, _, err := solana.FindAssociatedTokenAddress(bondingCurvePDA, mint)
	if err != nil {
		return DerivedAccounts{}, errkind.Wrap(errkind.InvalidAddress, "derive bonding-curve ata", err)
	}
	userATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return DerivedAccounts{}, errkind.Wrap(errkind.InvalidAddress, "derive user ata", err)
	}
	return DerivedAccounts{
		GlobalPDA:       globalPDA,
		BondingCurvePDA: bondingCurvePDA,
		BondingCurveATA: bondingCurveATA,
		UserATA:         userATA,
	}, nil
}

// BuildInstruction assembles the 12-account buy instruction in canonical
// order (§4.8 "Accounts list", §8 invariant 5).
func (e *Executor) BuildInstruction(mint, payer solana.PublicKey, derived DerivedAccounts, data []byte) solana.Instruction {
	return solana.NewInstruction(
		e.launchpadProgram,
		solana.AccountMetaSlice{
			{PublicKey: derived.GlobalPDA, IsSigner: false, IsWritable: false},
			{PublicKey: e.globalFeeVault, IsSigner: false, IsWritable: true},
			{PublicKey: mint, IsSigner: false, IsWritable: false},
			{PublicKey: derived.BondingCurvePDA, IsSigner: false, IsWritable: true},
			{PublicKey: derived.BondingCurveATA, IsSigner: false, IsWritable: true},
			{PublicKey: derived.UserATA, IsSigner: false, IsWritable: true},
			{PublicKey: payer, IsSigner: true, IsWritable: true},
			{PublicKey: launchpad.SystemProgram, IsSigner: false, IsWritable: false},
			{PublicKey: launchpad.TokenProgram, IsSigner: false, IsWritable: false},
			{PublicKey: launchpad.RentSysvar, IsSigner: false, IsWritable: false},
			{PublicKey: e.configAuthority, IsSigner: false, IsWritable: false},
			{PublicKey: e.launchpadProgram, IsSigner: false, IsWritable: false},
		},
		data,
	)
}

// Buy builds, simulates, signs, and submits the launchpad buy transaction
// for order, returning the submitted signature on success.
func (e *Executor) Buy(ctx context.Context, order model.BuyOrder) (solana.Signature, error) {
	payer := order.PayerSecret.PublicKey()

	balance, err := e.rpc.GetBalance(ctx, payer)
	if err != nil {
		return solana.Signature{}, err
	}
	if balance < order.AmountNative {
		return solana.Signature{}, errkind.New(errkind.InsufficientBalance, fmt.Sprintf("balance %d lamports < requested %d lamports", balance, order.AmountNative))
	}

	derived, err := e.Derive(order.Mint, payer)
	if err != nil {
		return solana.Signature{}, err
	}

	var instructions []solana.Instruction
	userATAInfo, err := e.rpc.GetAccountInfoJSONParsed(ctx, derived.UserATA)
	if err != nil {
		return solana.Signature{}, err
	}
	if !userATAInfo.Exists {
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(payer, payer, order.Mint).Build())
	}

	data := e.BuildBuyData(order.AmountNative, order.MaxSlippageSentinel)
	instructions = append(instructions, e.BuildInstruction(order.Mint, payer, derived, data))

	blockhash, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return solana.Signature{}, errkind.Wrap(errkind.MalformedTransaction, "build buy transaction", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &order.PayerSecret
		}
		return nil
	}); err != nil {
		return solana.Signature{}, errkind.Wrap(errkind.MalformedTransaction, "sign buy transaction", err)
	}

	sim, err := e.rpc.SimulateTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	if sim.Value.Err != nil {
		return solana.Signature{}, errkind.New(errkind.SimulationRejected, fmt.Sprintf("%v logs=%v", sim.Value.Err, sim.Value.Logs))
	}

	sig, err := e.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}

	if err := e.awaitConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// awaitConfirmation polls GetSignatureStatuses at confirmed commitment
// until ctx's deadline (§4.8 "Submission" / "Failure semantics" — no
// automatic resend on NotConfirmed).
func (e *Executor) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()
	for {
		status, err := e.rpc.GetSignatureStatus(ctx, sig)
		reached := status != nil && (status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || status.ConfirmationStatus == rpc.ConfirmationStatusFinalized)
		if err == nil && reached {
			if status.Err != nil {
				return errkind.New(errkind.ProviderError, fmt.Sprintf("transaction failed on-chain: %v", status.Err))
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return errkind.New(errkind.NotConfirmed, "confirmation deadline exceeded")
		case <-ticker.C:
		}
	}
}
