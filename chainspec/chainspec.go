// Package chainspec holds the protocol-level limits a node loads once at
// startup and treats as read-only for its lifetime.
package chainspec

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/drfurkann/casper-node/state"
)

var (
	// ErrMissingChainName is returned when a chainspec does not name the
	// network it describes.
	ErrMissingChainName = errors.New("chainspec is missing a chain name")

	// ErrInvalidDeployLimits is returned when a chainspec carries
	// unusable deploy limits.
	ErrInvalidDeployLimits = errors.New("chainspec deploy limits invalid")
)

// Duration wraps time.Duration so that chainspec files can spell durations
// as strings like "18h" or "30m".
type Duration time.Duration

// UnmarshalText parses a duration from its textual chainspec form.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = Duration(parsed)
	return nil
}

// String returns the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// DeployConfig bounds the deploys a node will admit.
type DeployConfig struct {
	// MaxPaymentAmount is the balance an account must hold for its
	// deploys to be admissible. The boundary is inclusive.
	MaxPaymentAmount state.Motes `toml:"max_payment_amount"`

	// MaxDeploySize caps the serialized size of a deploy in bytes.
	MaxDeploySize uint32 `toml:"max_deploy_size"`

	// MaxTTL caps a deploy's declared time to live.
	MaxTTL Duration `toml:"max_ttl"`

	// MaxTimestampLeap is how far into the future a deploy's timestamp
	// may lie relative to the node's clock.
	MaxTimestampLeap Duration `toml:"max_timestamp_leap"`

	// MaxDependencies caps the number of dependency hashes a deploy may
	// declare.
	MaxDependencies uint8 `toml:"max_dependencies"`
}

// Chainspec is the immutable protocol configuration for one network.
type Chainspec struct {
	// Name is the network name deploys must be addressed to.
	Name string `toml:"name"`

	// Deploys bounds admissible deploys.
	Deploys DeployConfig `toml:"deploys"`
}

// Local returns the chainspec used for local single-node networks and
// tests.
func Local() *Chainspec {
	return &Chainspec{
		Name: "casper-local",
		Deploys: DeployConfig{
			MaxPaymentAmount: 2_500_000_000,
			MaxDeploySize:    1_048_576,
			MaxTTL:           Duration(18 * time.Hour),
			MaxTimestampLeap: Duration(5 * time.Minute),
			MaxDependencies:  10,
		},
	}
}

// LoadFromFile reads and validates a chainspec from a TOML file.
func LoadFromFile(path string) (*Chainspec, error) {
	var spec Chainspec
	if _, err := toml.DecodeFile(path, &spec); err != nil {
		return nil, fmt.Errorf("unable to decode chainspec %s: %w",
			path, err)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// Validate checks the chainspec for values the admission pipeline cannot
// operate with.
func (c *Chainspec) Validate() error {
	if c.Name == "" {
		return ErrMissingChainName
	}

	if c.Deploys.MaxPaymentAmount == 0 {
		return fmt.Errorf("%w: max payment amount is zero",
			ErrInvalidDeployLimits)
	}
	if c.Deploys.MaxDeploySize == 0 {
		return fmt.Errorf("%w: max deploy size is zero",
			ErrInvalidDeployLimits)
	}
	if c.Deploys.MaxTTL <= 0 {
		return fmt.Errorf("%w: max ttl %v", ErrInvalidDeployLimits,
			c.Deploys.MaxTTL)
	}

	// A non-positive leap rejects every freshly timestamped deploy as
	// being in the future.
	if c.Deploys.MaxTimestampLeap <= 0 {
		return fmt.Errorf("%w: max timestamp leap %v",
			ErrInvalidDeployLimits, c.Deploys.MaxTimestampLeap)
	}

	return nil
}
