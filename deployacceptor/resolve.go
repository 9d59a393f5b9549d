package deployacceptor

import (
	"context"
	"errors"
	"fmt"

	"github.com/drfurkann/casper-node/deploy"
	"github.com/drfurkann/casper-node/state"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// resolveAccount issues the global-state query for the deploy's paying
// account. A missing account is a hard rejection for client submissions;
// for peer-relayed deploys it means the economic checks are skipped, so a
// nil account with a nil error is returned.
func (a *DeployAcceptor) resolveAccount(ctx context.Context,
	vctx *validationContext) (*state.Account, error) {

	accountHash := deploy.NewAccountHash(vctx.deploy.Header.Account)

	value, err := a.cfg.StateReader.Query(
		ctx, state.AccountKey(accountHash), nil,
	)
	switch {
	case errors.Is(err, state.ErrValueNotFound):
		if vctx.source.IsClient() {
			return nil, rejectf(FailureNonexistentAccount,
				"account %v", accountHash)
		}

		// The relaying peer verified the deploy against its own view
		// of the ledger; re-deriving the account here would only
		// duplicate that work.
		return nil, nil

	case err != nil:
		return nil, fmt.Errorf("unable to resolve account %v: %w",
			accountHash, err)
	}

	account, ok := value.(*state.Account)
	if !ok {
		return nil, fmt.Errorf("account key %v resolved to %T",
			accountHash, value)
	}

	return account, nil
}

// verifyAuthorization checks the deploy's approvals against the account's
// multi-signature policy: every signer must be an associated key, and the
// combined weight of the distinct signers must reach the deployment
// threshold.
func (a *DeployAcceptor) verifyAuthorization(vctx *validationContext,
	account *state.Account) error {

	// Weight is granted per distinct signing key. A deploy may carry the
	// same approval more than once and still pass integrity checks, so the
	// signers are collected as a set before any weight is summed.
	signers := make(map[deploy.AccountHash]struct{})
	for i := range vctx.deploy.Approvals {
		signer := deploy.NewAccountHash(vctx.deploy.Approvals[i].Signer)

		if _, ok := account.AssociatedKeys[signer]; !ok {
			return rejectf(FailureInvalidAssociatedKeys,
				"signer %v is not associated with account %v",
				signer, account.AccountHash)
		}
		signers[signer] = struct{}{}
	}

	var totalWeight int
	for signer := range signers {
		totalWeight += int(account.AssociatedKeys[signer])
	}

	threshold := int(account.ActionThresholds.Deployment)
	if totalWeight < threshold {
		return rejectf(FailureInsufficientDeploySignatureWeight,
			"signed weight %d below deployment threshold %d",
			totalWeight, threshold)
	}

	return nil
}

// verifyBalance checks that the account's main purse can cover the maximum
// payment amount. The boundary is inclusive: a balance exactly equal to the
// limit passes.
//
// Peer-relayed deploys must never reach this stage; their balance was
// checked by the origin node, and re-checking would multiply state query
// load across the network. Reaching it anyway is a pipeline bug, so it
// fails loudly rather than being folded into the rejection taxonomy.
func (a *DeployAcceptor) verifyBalance(ctx context.Context,
	vctx *validationContext, account *state.Account) error {

	if !vctx.source.IsClient() {
		panic(fmt.Sprintf("balance check for deploy %v relayed by %v",
			vctx.deploy.Hash, vctx.source))
	}

	balance, err := a.cfg.StateReader.AccountBalance(
		ctx, account.MainPurse,
	)
	switch {
	case errors.Is(err, state.ErrRootNotFound):
		return rejectf(FailureUnknownBalance,
			"no state root for purse of account %v",
			account.AccountHash)

	case err != nil:
		return fmt.Errorf("unable to query balance of account %v: %w",
			account.AccountHash, err)
	}

	required := a.cfg.Chainspec.Deploys.MaxPaymentAmount
	if balance < required {
		return rejectf(FailureInsufficientBalance,
			"balance %d below required %d", balance, required)
	}

	return nil
}

// resolveExecutables resolves the stored contract and package references of
// the payment and session items independently. Inline module bytes and
// native transfers need no lookups.
func (a *DeployAcceptor) resolveExecutables(ctx context.Context,
	vctx *validationContext) error {

	accountHash := deploy.NewAccountHash(vctx.deploy.Header.Account)

	err := a.resolveItem(ctx, accountHash, vctx.deploy.Payment, "payment")
	if err != nil {
		return err
	}

	return a.resolveItem(ctx, accountHash, vctx.deploy.Session, "session")
}

// resolveItem validates one executable item's stored reference. The side
// string names the item's position so a failure distinguishes payment from
// session resolution.
func (a *DeployAcceptor) resolveItem(ctx context.Context,
	accountHash deploy.AccountHash, item deploy.ExecutableItem,
	side string) error {

	switch i := item.(type) {
	case *deploy.ModuleBytes, *deploy.Transfer:
		return nil

	case *deploy.StoredContractByHash:
		contract, err := a.queryContract(
			ctx, state.HashKey(i.Contract), nil,
			FailureNonexistentContractAtHash,
			fmt.Sprintf("%s contract %v", side, i.Contract),
		)
		if err != nil {
			return err
		}

		return checkEntryPoint(contract, i.EntryPoint, side)

	case *deploy.StoredContractByName:
		contract, err := a.queryContract(
			ctx, state.AccountKey(accountHash), []string{i.Name},
			FailureNonexistentContractAtName,
			fmt.Sprintf("%s contract %q", side, i.Name),
		)
		if err != nil {
			return err
		}

		return checkEntryPoint(contract, i.EntryPoint, side)

	case *deploy.StoredPackageByHash:
		pkg, err := a.queryPackage(
			ctx, state.HashKey(i.Package), nil,
			FailureNonexistentContractPackageAtHash,
			fmt.Sprintf("%s package %v", side, i.Package),
		)
		if err != nil {
			return err
		}

		if pkg.LookupVersion(i.Version).IsNone() {
			return rejectf(FailureInvalidContractAtVersion,
				"%s package %v has no enabled version %s",
				side, i.Package, versionString(i.Version))
		}

		return nil

	case *deploy.StoredPackageByName:
		pkg, err := a.queryPackage(
			ctx, state.AccountKey(accountHash), []string{i.Name},
			FailureNonexistentContractPackageAtName,
			fmt.Sprintf("%s package %q", side, i.Name),
		)
		if err != nil {
			return err
		}

		if pkg.LookupVersion(i.Version).IsNone() {
			return rejectf(FailureInvalidContractAtVersion,
				"%s package %q has no enabled version %s",
				side, i.Name, versionString(i.Version))
		}

		return nil

	default:
		return fmt.Errorf("unknown executable item type %T", item)
	}
}

// queryContract resolves a global-state reference expected to hold a
// contract, mapping a missing or mistyped value to the given rejection
// kind.
func (a *DeployAcceptor) queryContract(ctx context.Context, key state.Key,
	path []string, missingKind FailureKind,
	what string) (*state.Contract, error) {

	value, err := a.cfg.StateReader.Query(ctx, key, path)
	switch {
	case errors.Is(err, state.ErrValueNotFound):
		return nil, rejectf(missingKind, "%s", what)

	case err != nil:
		return nil, fmt.Errorf("unable to resolve %s: %w", what, err)
	}

	contract, ok := value.(*state.Contract)
	if !ok {
		return nil, rejectf(missingKind, "%s resolved to %T", what,
			value)
	}

	return contract, nil
}

// queryPackage resolves a global-state reference expected to hold a
// contract package, mapping a missing or mistyped value to the given
// rejection kind.
func (a *DeployAcceptor) queryPackage(ctx context.Context, key state.Key,
	path []string, missingKind FailureKind,
	what string) (*state.ContractPackage, error) {

	value, err := a.cfg.StateReader.Query(ctx, key, path)
	switch {
	case errors.Is(err, state.ErrValueNotFound):
		return nil, rejectf(missingKind, "%s", what)

	case err != nil:
		return nil, fmt.Errorf("unable to resolve %s: %w", what, err)
	}

	pkg, ok := value.(*state.ContractPackage)
	if !ok {
		return nil, rejectf(missingKind, "%s resolved to %T", what,
			value)
	}

	return pkg, nil
}

// versionString renders an optional package version for failure details.
func versionString(version fn.Option[uint32]) string {
	return fn.ElimOption(version,
		func() string { return "latest" },
		func(v uint32) string { return fmt.Sprintf("%d", v) },
	)
}

// checkEntryPoint rejects a resolved contract that does not export the
// referenced entry point.
func checkEntryPoint(contract *state.Contract, entryPoint,
	side string) error {

	if !contract.HasEntryPoint(entryPoint) {
		return rejectf(FailureNonexistentContractEntryPoint,
			"%s entry point %q does not exist", side, entryPoint)
	}

	return nil
}
