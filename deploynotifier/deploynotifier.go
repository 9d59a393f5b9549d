// Package deploynotifier is the subsystem through which all deploy
// admission outcomes pipe. The storage, gossip and metrics subsystems
// subscribe to it and receive every acceptance, rejection and
// duplicate-store event the admission pipeline produces.
package deploynotifier

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/drfurkann/casper-node/deploy"
	"github.com/lightningnetwork/lnd/queue"
)

// ErrNotifierShuttingDown is returned when an event or subscription cannot
// be processed because the notifier is shutting down.
var ErrNotifierShuttingDown = errors.New("deploy notifier shutting down")

// AcceptedDeployEvent is emitted exactly once per deploy: when a valid
// deploy is stored for the first time.
type AcceptedDeployEvent struct {
	// Deploy is the newly admitted deploy.
	Deploy *deploy.Deploy

	// Source is where the deploy entered the node from.
	Source deploy.Source
}

// InvalidDeployEvent is emitted when a deploy is rejected at any stage of
// the admission pipeline.
type InvalidDeployEvent struct {
	// Deploy is the rejected deploy.
	Deploy *deploy.Deploy

	// Source is where the deploy entered the node from.
	Source deploy.Source

	// Reason is the rejection returned to the submitter.
	Reason error
}

// StoredDeployEvent is emitted when a valid deploy turned out to be a
// duplicate of an already stored one. No acceptance announcement accompanies
// it.
type StoredDeployEvent struct {
	// DeployHash identifies the stored deploy.
	DeployHash deploy.Hash

	// IsNew reports whether the store insertion was novel.
	IsNew bool
}

// Subscription delivers deploy events to a single subscriber. Events are
// buffered per subscriber so a slow consumer cannot stall the pipeline.
type Subscription struct {
	cancel func()

	updates *queue.ConcurrentQueue
	quit    chan struct{}
}

// Updates returns a read-only channel on which the subscribed events are
// delivered.
func (s *Subscription) Updates() <-chan interface{} {
	return s.updates.ChanOut()
}

// Quit is closed once the notifier stops delivering events to this
// subscriber.
func (s *Subscription) Quit() <-chan struct{} {
	return s.quit
}

// Cancel withdraws the subscription.
func (s *Subscription) Cancel() {
	s.cancel()
}

// subscriberUpdate registers or cancels a subscriber inside the event
// handler goroutine.
type subscriberUpdate struct {
	cancel       bool
	subscriberID uint64
	subscription *Subscription
}

// DeployNotifier fans deploy admission events out to all active
// subscribers.
type DeployNotifier struct {
	started uint32 // To be used atomically.
	stopped uint32 // To be used atomically.

	subscriberCounter uint64 // To be used atomically.

	subscribers       map[uint64]*Subscription
	subscriberUpdates chan *subscriberUpdate

	events chan interface{}

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a deploy notifier. It must be started before events can be
// dispatched.
func New() *DeployNotifier {
	return &DeployNotifier{
		subscribers:       make(map[uint64]*Subscription),
		subscriberUpdates: make(chan *subscriberUpdate),
		events:            make(chan interface{}),
		quit:              make(chan struct{}),
	}
}

// Start launches the event handler goroutine.
func (n *DeployNotifier) Start() error {
	if !atomic.CompareAndSwapUint32(&n.started, 0, 1) {
		return nil
	}

	n.wg.Add(1)
	go n.eventHandler()

	return nil
}

// Stop signals the notifier for a graceful shutdown and waits for the
// event handler to exit.
func (n *DeployNotifier) Stop() error {
	if !atomic.CompareAndSwapUint32(&n.stopped, 0, 1) {
		return nil
	}

	close(n.quit)
	n.wg.Wait()

	return nil
}

// SubscribeDeployEvents returns a Subscription delivering every event the
// notifier dispatches from this point on.
func (n *DeployNotifier) SubscribeDeployEvents() (*Subscription, error) {
	subscriberID := atomic.AddUint64(&n.subscriberCounter, 1)

	sub := &Subscription{
		updates: queue.NewConcurrentQueue(20),
		quit:    make(chan struct{}),
		cancel: func() {
			select {
			case n.subscriberUpdates <- &subscriberUpdate{
				cancel:       true,
				subscriberID: subscriberID,
			}:
			case <-n.quit:
			}
		},
	}

	select {
	case n.subscriberUpdates <- &subscriberUpdate{
		subscriberID: subscriberID,
		subscription: sub,
	}:
	case <-n.quit:
		return nil, ErrNotifierShuttingDown
	}

	return sub, nil
}

// NotifyAcceptedDeploy announces that a new valid deploy was admitted and
// stored.
func (n *DeployNotifier) NotifyAcceptedDeploy(dep *deploy.Deploy,
	source deploy.Source) {

	event := AcceptedDeployEvent{Deploy: dep, Source: source}
	if err := n.sendEvent(event); err != nil {
		log.Warnf("Unable to send accepted deploy event for %v: %v",
			dep.Hash, err)
	}
}

// NotifyInvalidDeploy announces that a deploy was rejected, carrying the
// origin and the rejection reason.
func (n *DeployNotifier) NotifyInvalidDeploy(dep *deploy.Deploy,
	source deploy.Source, reason error) {

	event := InvalidDeployEvent{Deploy: dep, Source: source, Reason: reason}
	if err := n.sendEvent(event); err != nil {
		log.Warnf("Unable to send invalid deploy event for %v: %v",
			dep.Hash, err)
	}
}

// NotifyStoredDeploy announces the outcome of a deploy store operation that
// produced no acceptance announcement.
func (n *DeployNotifier) NotifyStoredDeploy(hash deploy.Hash, isNew bool) {
	event := StoredDeployEvent{DeployHash: hash, IsNew: isNew}
	if err := n.sendEvent(event); err != nil {
		log.Warnf("Unable to send stored deploy event for %v: %v",
			hash, err)
	}
}

// sendEvent hands the event to the event handler for fan-out.
func (n *DeployNotifier) sendEvent(event interface{}) error {
	select {
	case n.events <- event:
		return nil
	case <-n.quit:
		return ErrNotifierShuttingDown
	}
}

// eventHandler is the main loop of the notifier. It handles subscriber
// registration and cancellation, and forwards incoming events to every
// active subscriber.
//
// NOTE: MUST be run as a goroutine.
func (n *DeployNotifier) eventHandler() {
	defer n.wg.Done()

	for {
		select {
		case update := <-n.subscriberUpdates:
			subscriberID := update.subscriberID

			if update.cancel {
				sub, ok := n.subscribers[subscriberID]
				if ok {
					sub.updates.Stop()
					close(sub.quit)
					delete(n.subscribers, subscriberID)
				}

				continue
			}

			update.subscription.updates.Start()
			n.subscribers[subscriberID] = update.subscription

		case event := <-n.events:
			for _, sub := range n.subscribers {
				select {
				case sub.updates.ChanIn() <- event:
				case <-sub.quit:
				case <-n.quit:
					return
				}
			}

		case <-n.quit:
			for _, sub := range n.subscribers {
				sub.updates.Stop()
				close(sub.quit)
			}
			return
		}
	}
}
