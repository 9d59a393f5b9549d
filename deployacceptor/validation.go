package deployacceptor

import (
	"errors"
	"fmt"
	"time"

	"github.com/drfurkann/casper-node/deploy"
)

// validateStructure runs every check that needs no I/O: hash integrity,
// approval signatures, size and time bounds, and the shape of the payment
// and session items. It is deterministic and never suspends; a deploy
// failing here is rejected before any global-state query is issued.
func (a *DeployAcceptor) validateStructure(vctx *validationContext) error {
	dep := vctx.deploy
	limits := a.cfg.Chainspec.Deploys

	if err := dep.VerifyIntegrity(); err != nil {
		if errors.Is(err, deploy.ErrInvalidApproval) {
			return rejectf(FailureInvalidApproval, "%v", err)
		}
		return rejectf(FailureInvalidDeployHash, "%v", err)
	}

	size, err := dep.SerializedSize()
	if err != nil {
		return fmt.Errorf("unable to measure deploy %v: %w", dep.Hash,
			err)
	}
	if size > limits.MaxDeploySize {
		return rejectf(FailureExcessiveSize,
			"%d bytes exceeds limit of %d", size,
			limits.MaxDeploySize)
	}

	now := a.cfg.Clock.Now()
	switch {
	case dep.Header.TTL > time.Duration(limits.MaxTTL):
		return rejectf(FailureExcessiveTimeToLive,
			"ttl %v exceeds limit of %v", dep.Header.TTL,
			limits.MaxTTL)

	case dep.Header.Timestamp.After(
		now.Add(time.Duration(limits.MaxTimestampLeap))):

		return rejectf(FailureTimestampInFuture,
			"timestamp %v is ahead of %v", dep.Header.Timestamp,
			now)

	case now.After(dep.Header.Timestamp.Add(dep.Header.TTL)):
		return rejectf(FailureExpired, "deploy expired at %v",
			dep.Header.Timestamp.Add(dep.Header.TTL))
	}

	if dep.Header.ChainName != a.cfg.Chainspec.Name {
		return rejectf(FailureInvalidChainName,
			"expected %q, deploy is for %q", a.cfg.Chainspec.Name,
			dep.Header.ChainName)
	}

	if len(dep.Header.Dependencies) > int(limits.MaxDependencies) {
		return rejectf(FailureExcessiveDependencies,
			"%d dependencies exceeds limit of %d",
			len(dep.Header.Dependencies), limits.MaxDependencies)
	}

	if _, ok := dep.Payment.(*deploy.Transfer); ok {
		return rejectf(FailureInvalidPaymentVariant,
			"payment logic must not be a native transfer")
	}

	// Empty session module bytes are invalid regardless of source; the
	// rule is structural and runs before any source-dependent branching.
	if moduleBytes, ok := dep.Session.(*deploy.ModuleBytes); ok {
		if len(moduleBytes.Module) == 0 {
			return rejectf(FailureMissingModuleBytes,
				"session module bytes are empty")
		}
	}

	return nil
}
