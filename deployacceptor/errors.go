package deployacceptor

import "fmt"

// FailureKind enumerates every reason the admission pipeline can reject a
// deploy. The set is closed; a rejection always carries exactly one kind.
type FailureKind uint8

const (
	// FailureInvalidDeployHash indicates the deploy's claimed identity
	// does not match its contents.
	FailureInvalidDeployHash FailureKind = iota

	// FailureInvalidApproval indicates an approval signature failed
	// verification.
	FailureInvalidApproval

	// FailureExcessiveSize indicates the serialized deploy exceeds the
	// configured size ceiling.
	FailureExcessiveSize

	// FailureExcessiveTimeToLive indicates the deploy's TTL exceeds the
	// configured bound.
	FailureExcessiveTimeToLive

	// FailureTimestampInFuture indicates the deploy's timestamp lies
	// further ahead of the node's clock than the configured leap.
	FailureTimestampInFuture

	// FailureExpired indicates the deploy's timestamp plus TTL has
	// already passed.
	FailureExpired

	// FailureInvalidChainName indicates the deploy is addressed to a
	// different network.
	FailureInvalidChainName

	// FailureExcessiveDependencies indicates the deploy declares more
	// dependencies than the configured bound.
	FailureExcessiveDependencies

	// FailureInvalidPaymentVariant indicates the payment item is a
	// native transfer, which is not a valid payment shape.
	FailureInvalidPaymentVariant

	// FailureMissingModuleBytes indicates the session item is module
	// bytes with an empty module.
	FailureMissingModuleBytes

	// FailureNonexistentAccount indicates the paying account does not
	// exist in global state.
	FailureNonexistentAccount

	// FailureInvalidAssociatedKeys indicates an approval signer is not
	// among the account's associated keys.
	FailureInvalidAssociatedKeys

	// FailureInsufficientDeploySignatureWeight indicates the combined
	// weight of the approval signers is below the account's deployment
	// threshold.
	FailureInsufficientDeploySignatureWeight

	// FailureInsufficientBalance indicates the account's main purse
	// holds less than the maximum payment amount.
	FailureInsufficientBalance

	// FailureUnknownBalance indicates the balance could not be read
	// because the backing state root is unknown.
	FailureUnknownBalance

	// FailureNonexistentContractAtHash indicates a referenced contract
	// hash resolves to nothing.
	FailureNonexistentContractAtHash

	// FailureNonexistentContractAtName indicates a referenced contract
	// name resolves to nothing.
	FailureNonexistentContractAtName

	// FailureNonexistentContractEntryPoint indicates a resolved contract
	// does not export the referenced entry point.
	FailureNonexistentContractEntryPoint

	// FailureNonexistentContractPackageAtHash indicates a referenced
	// package hash resolves to nothing.
	FailureNonexistentContractPackageAtHash

	// FailureNonexistentContractPackageAtName indicates a referenced
	// package name resolves to nothing.
	FailureNonexistentContractPackageAtName

	// FailureInvalidContractAtVersion indicates the referenced package
	// version is absent or disabled.
	FailureInvalidContractAtVersion
)

// String returns a human readable identifier for the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureInvalidDeployHash:
		return "invalid deploy hash"
	case FailureInvalidApproval:
		return "invalid approval"
	case FailureExcessiveSize:
		return "excessive deploy size"
	case FailureExcessiveTimeToLive:
		return "excessive time to live"
	case FailureTimestampInFuture:
		return "timestamp in the future"
	case FailureExpired:
		return "deploy expired"
	case FailureInvalidChainName:
		return "invalid chain name"
	case FailureExcessiveDependencies:
		return "excessive dependencies"
	case FailureInvalidPaymentVariant:
		return "invalid payment variant"
	case FailureMissingModuleBytes:
		return "missing session module bytes"
	case FailureNonexistentAccount:
		return "nonexistent account"
	case FailureInvalidAssociatedKeys:
		return "invalid associated keys"
	case FailureInsufficientDeploySignatureWeight:
		return "insufficient deploy signature weight"
	case FailureInsufficientBalance:
		return "insufficient balance"
	case FailureUnknownBalance:
		return "unknown balance"
	case FailureNonexistentContractAtHash:
		return "nonexistent contract at hash"
	case FailureNonexistentContractAtName:
		return "nonexistent contract at name"
	case FailureNonexistentContractEntryPoint:
		return "nonexistent contract entry point"
	case FailureNonexistentContractPackageAtHash:
		return "nonexistent contract package at hash"
	case FailureNonexistentContractPackageAtName:
		return "nonexistent contract package at name"
	case FailureInvalidContractAtVersion:
		return "invalid contract version"
	default:
		return fmt.Sprintf("unknown failure kind %d", uint8(k))
	}
}

// RejectionError is the terminal outcome of a failed admission. It is
// surfaced both to the submitting caller and, via the notifier, to the rest
// of the node. Rejections are never retried internally.
type RejectionError struct {
	// Kind classifies the failure.
	Kind FailureKind

	// Detail carries failure specifics, including whether a resolution
	// failure concerned the payment or the session item.
	Detail string
}

// Error returns a human readable rendering of the rejection.
func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("deploy rejected: %v", e.Kind)
	}

	return fmt.Sprintf("deploy rejected: %v: %s", e.Kind, e.Detail)
}

// rejectf builds a RejectionError with a formatted detail string.
func rejectf(kind FailureKind, format string,
	args ...interface{}) *RejectionError {

	return &RejectionError{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	}
}
