package deploydb

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/drfurkann/casper-node/deploy"
	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	backend, cleanup, err := kvdb.GetTestBackend(t.TempDir(), "deploydb")
	require.NoError(t, err)
	t.Cleanup(cleanup)

	db, err := Open(backend)
	require.NoError(t, err)

	return db
}

func newTestDeploy(t *testing.T, chainName string) *deploy.Deploy {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	dep, err := deploy.New(
		priv.PubKey(), time.Now(), 30*time.Minute, 1, nil, chainName,
		&deploy.ModuleBytes{}, &deploy.Transfer{},
	)
	require.NoError(t, err)
	dep.Sign(priv)

	return dep
}

// TestPutAndGetDeploy asserts that a stored deploy is retrievable by its
// content hash and survives the storage codec intact.
func TestPutAndGetDeploy(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	dep := newTestDeploy(t, "casper-local")

	isNew, err := db.PutDeploy(dep)
	require.NoError(t, err)
	require.True(t, isNew)

	got, err := db.GetDeploy(dep.Hash)
	require.NoError(t, err)
	require.Equal(t, dep.Hash, got.Hash)
	require.NoError(t, got.VerifyIntegrity())
}

// TestPutDeployIsIdempotent asserts that resubmitting an identical deploy
// reports a duplicate rather than an error, and leaves the stored copy in
// place.
func TestPutDeployIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	dep := newTestDeploy(t, "casper-local")

	isNew, err := db.PutDeploy(dep)
	require.NoError(t, err)
	require.True(t, isNew)

	isNew, err = db.PutDeploy(dep)
	require.NoError(t, err)
	require.False(t, isNew)

	_, err = db.GetDeploy(dep.Hash)
	require.NoError(t, err)
}

// TestGetMissingDeploy asserts the not-found error for unknown hashes.
func TestGetMissingDeploy(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	_, err := db.GetDeploy(deploy.Hash{0x01})
	require.ErrorIs(t, err, ErrDeployNotFound)
}
