package deploynotifier

import (
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/drfurkann/casper-node/deploy"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

func newTestDeploy(t *testing.T) *deploy.Deploy {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	dep, err := deploy.New(
		priv.PubKey(), time.Now(), time.Minute, 1, nil, "casper-local",
		&deploy.ModuleBytes{}, &deploy.Transfer{},
	)
	require.NoError(t, err)
	dep.Sign(priv)

	return dep
}

func receiveEvent(t *testing.T, sub *Subscription) interface{} {
	t.Helper()

	select {
	case event := <-sub.Updates():
		return event
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for deploy event")
		return nil
	}
}

// TestNotifySubscribers asserts that every event type reaches an active
// subscriber with its payload intact.
func TestNotifySubscribers(t *testing.T) {
	t.Parallel()

	notifier := New()
	require.NoError(t, notifier.Start())
	defer func() {
		require.NoError(t, notifier.Stop())
	}()

	sub, err := notifier.SubscribeDeployEvents()
	require.NoError(t, err)

	dep := newTestDeploy(t)
	source := deploy.FromPeer(deploy.NodeID{0x01})
	reason := errors.New("no such account")

	notifier.NotifyAcceptedDeploy(dep, source)
	accepted, ok := receiveEvent(t, sub).(AcceptedDeployEvent)
	require.True(t, ok)
	require.Equal(t, dep.Hash, accepted.Deploy.Hash)
	require.False(t, accepted.Source.IsClient())

	notifier.NotifyInvalidDeploy(dep, deploy.FromClient(), reason)
	invalid, ok := receiveEvent(t, sub).(InvalidDeployEvent)
	require.True(t, ok)
	require.True(t, invalid.Source.IsClient())
	require.ErrorIs(t, invalid.Reason, reason)

	notifier.NotifyStoredDeploy(dep.Hash, false)
	stored, ok := receiveEvent(t, sub).(StoredDeployEvent)
	require.True(t, ok)
	require.Equal(t, dep.Hash, stored.DeployHash)
	require.False(t, stored.IsNew)
}

// TestCancelledSubscriberReceivesNothing asserts that cancelling a
// subscription closes its quit channel and stops delivery, while other
// subscribers keep receiving events.
func TestCancelledSubscriberReceivesNothing(t *testing.T) {
	t.Parallel()

	notifier := New()
	require.NoError(t, notifier.Start())
	defer func() {
		require.NoError(t, notifier.Stop())
	}()

	cancelled, err := notifier.SubscribeDeployEvents()
	require.NoError(t, err)
	remaining, err := notifier.SubscribeDeployEvents()
	require.NoError(t, err)

	cancelled.Cancel()
	select {
	case <-cancelled.Quit():
	case <-time.After(testTimeout):
		t.Fatal("cancelled subscription was not torn down")
	}

	notifier.NotifyStoredDeploy(deploy.Hash{0x0a}, true)
	event, ok := receiveEvent(t, remaining).(StoredDeployEvent)
	require.True(t, ok)
	require.True(t, event.IsNew)
}

// TestStoppedNotifierRejectsSubscriptions asserts the shutdown error is
// surfaced to late subscribers.
func TestStoppedNotifierRejectsSubscriptions(t *testing.T) {
	t.Parallel()

	notifier := New()
	require.NoError(t, notifier.Start())
	require.NoError(t, notifier.Stop())

	_, err := notifier.SubscribeDeployEvents()
	require.ErrorIs(t, err, ErrNotifierShuttingDown)
}
