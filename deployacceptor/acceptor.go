// Package deployacceptor implements the node's admission control for
// deploys: before a submitted deploy enters the durable deploy pool and is
// announced to the rest of the node, it passes a pipeline of structural,
// account, balance and contract-resolution checks. Cheap synchronous checks
// run first; state-dependent checks query the execution-state service and
// suspend only the submitting goroutine, so any number of deploys can be in
// flight concurrently.
package deployacceptor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drfurkann/casper-node/chainspec"
	"github.com/drfurkann/casper-node/deploy"
	"github.com/drfurkann/casper-node/state"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// Store is the slice of the deploy pool the pipeline needs: an idempotent,
// content-addressed put reporting whether the insertion was novel.
type Store interface {
	// PutDeploy persists the deploy, returning true if it was not
	// already stored.
	PutDeploy(dep *deploy.Deploy) (bool, error)
}

// Notifier receives the pipeline's terminal announcements.
type Notifier interface {
	// NotifyAcceptedDeploy announces a newly stored valid deploy.
	NotifyAcceptedDeploy(dep *deploy.Deploy, source deploy.Source)

	// NotifyInvalidDeploy announces a rejection with its reason.
	NotifyInvalidDeploy(dep *deploy.Deploy, source deploy.Source,
		reason error)

	// NotifyStoredDeploy announces a store outcome that produced no
	// acceptance announcement.
	NotifyStoredDeploy(hash deploy.Hash, isNew bool)
}

// Config provides the acceptor with its collaborators and policy. All
// fields except MetricsRegistry must be populated.
type Config struct {
	// Chainspec supplies the protocol limits deploys are checked
	// against. It is read-only for the acceptor's lifetime.
	Chainspec *chainspec.Chainspec

	// Store is the durable deploy pool.
	Store Store

	// StateReader answers global-state queries.
	StateReader state.Reader

	// Notifier receives terminal announcements.
	Notifier Notifier

	// Clock supplies the current time for TTL checks and latency
	// measurement.
	Clock clock.Clock

	// VerifyAccounts enables the account, authorization and balance
	// stages. When disabled, only structural checks and contract
	// resolution run.
	VerifyAccounts bool

	// MetricsRegistry optionally registers the acceptor's collectors.
	MetricsRegistry prometheus.Registerer
}

// DeployAcceptor decides whether submitted deploys are admissible.
type DeployAcceptor struct {
	cfg     *Config
	metrics *acceptorMetrics
}

// validationContext bundles the state threaded through every stage of one
// deploy's pipeline run. It lives only for the run and is owned exclusively
// by the goroutine processing the deploy.
type validationContext struct {
	deploy *deploy.Deploy
	source deploy.Source

	// start is when the run began, for the latency metric.
	start time.Time
}

// New creates a deploy acceptor from its config.
func New(cfg *Config) (*DeployAcceptor, error) {
	switch {
	case cfg.Chainspec == nil:
		return nil, errors.New("deploy acceptor requires a chainspec")
	case cfg.Store == nil:
		return nil, errors.New("deploy acceptor requires a store")
	case cfg.StateReader == nil:
		return nil, errors.New("deploy acceptor requires a state " +
			"reader")
	case cfg.Notifier == nil:
		return nil, errors.New("deploy acceptor requires a notifier")
	case cfg.Clock == nil:
		return nil, errors.New("deploy acceptor requires a clock")
	}

	metrics, err := newAcceptorMetrics(cfg.MetricsRegistry)
	if err != nil {
		return nil, fmt.Errorf("unable to register deploy acceptor "+
			"metrics: %w", err)
	}

	return &DeployAcceptor{
		cfg:     cfg,
		metrics: metrics,
	}, nil
}

// AcceptDeploy runs the full admission pipeline for one deploy, blocking
// the calling goroutine until a terminal outcome. A nil return means the
// deploy is admissible and stored; a *RejectionError describes why it was
// not. Failure of a collaborator (storage, state service) is returned as a
// plain error and produces no announcement.
func (a *DeployAcceptor) AcceptDeploy(ctx context.Context,
	dep *deploy.Deploy, source deploy.Source) error {

	vctx := &validationContext{
		deploy: dep,
		source: source,
		start:  a.cfg.Clock.Now(),
	}

	log.Debugf("Validating deploy %v from %v", dep.Hash, source)

	err := a.process(ctx, vctx)
	if err == nil {
		return nil
	}

	var rejection *RejectionError
	if errors.As(err, &rejection) {
		log.Debugf("Rejecting deploy %v from %v: %v", dep.Hash,
			source, err)

		a.metrics.invalidTotal.Inc()
		a.cfg.Notifier.NotifyInvalidDeploy(dep, source, err)
	} else {
		log.Errorf("Unable to process deploy %v from %v: %v",
			dep.Hash, source, err)
	}

	return err
}

// SubmitDeploy runs the pipeline asynchronously. The terminal outcome is
// delivered on resultChan if one is supplied; fire-and-forget submissions
// pass nil. The context bounds the run; a caller wanting a timeout wraps
// the context before submitting.
func (a *DeployAcceptor) SubmitDeploy(ctx context.Context,
	dep *deploy.Deploy, source deploy.Source, resultChan chan<- error) {

	go func() {
		err := a.AcceptDeploy(ctx, dep, source)
		if resultChan == nil {
			return
		}

		select {
		case resultChan <- err:
		case <-ctx.Done():
		}
	}()
}

// process advances the deploy through the validation stages in order,
// short-circuiting at the first failure.
func (a *DeployAcceptor) process(ctx context.Context,
	vctx *validationContext) error {

	if err := a.validateStructure(vctx); err != nil {
		return err
	}

	if a.cfg.VerifyAccounts {
		account, err := a.resolveAccount(ctx, vctx)
		if err != nil {
			return err
		}

		// Economic checks only apply to deploys authored by clients
		// this node serves; a relaying peer has already performed
		// them at origin.
		if vctx.source.IsClient() {
			err := a.verifyAuthorization(vctx, account)
			if err != nil {
				return err
			}
			err = a.verifyBalance(ctx, vctx, account)
			if err != nil {
				return err
			}
		}
	}

	if err := a.resolveExecutables(ctx, vctx); err != nil {
		return err
	}

	return a.finalize(vctx)
}

// finalize stores the deploy and emits the terminal announcement: an
// acceptance for a novel insert, a stored-duplicate event otherwise.
func (a *DeployAcceptor) finalize(vctx *validationContext) error {
	isNew, err := a.cfg.Store.PutDeploy(vctx.deploy)
	if err != nil {
		return fmt.Errorf("unable to store deploy %v: %w",
			vctx.deploy.Hash, err)
	}

	elapsed := a.cfg.Clock.Now().Sub(vctx.start)
	a.metrics.validationDuration.Observe(elapsed.Seconds())

	if !isNew {
		log.Debugf("Deploy %v from %v was already stored",
			vctx.deploy.Hash, vctx.source)

		a.cfg.Notifier.NotifyStoredDeploy(vctx.deploy.Hash, false)
		return nil
	}

	log.Infof("Accepted new deploy %v from %v in %v", vctx.deploy.Hash,
		vctx.source, elapsed)

	a.metrics.acceptedTotal.Inc()
	a.cfg.Notifier.NotifyAcceptedDeploy(vctx.deploy, vctx.source)

	return nil
}
