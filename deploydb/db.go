// Package deploydb implements the node's durable deploy pool: a
// content-addressed store of admitted deploys on top of a kvdb backend.
// Storage is idempotent per content hash; at most one copy of a deploy is
// ever persisted regardless of how many times it is submitted.
package deploydb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/drfurkann/casper-node/deploy"
	"github.com/lightningnetwork/lnd/kvdb"
)

var (
	// deployBucket is the top-level bucket storing serialized deploys
	// keyed by their content hash.
	deployBucket = []byte("deploys")

	// ErrDeployNotFound is returned when no deploy is stored under the
	// requested hash.
	ErrDeployNotFound = errors.New("deploy not found in deploy db")

	// errNoBucket is returned when the top-level deploy bucket is
	// missing, which indicates the database was not opened through Open.
	errNoBucket = errors.New("deploy bucket does not exist")
)

// DB is the durable deploy store.
type DB struct {
	backend kvdb.Backend
}

// Open initialises the deploy store on the given backend, creating its
// bucket structure if needed. The backend's lifetime is owned by the
// caller.
func Open(backend kvdb.Backend) (*DB, error) {
	err := kvdb.Update(backend, func(tx kvdb.RwTx) error {
		_, err := tx.CreateTopLevelBucket(deployBucket)
		return err
	}, func() {})
	if err != nil {
		return nil, fmt.Errorf("unable to initialise deploy db: %w",
			err)
	}

	log.Debugf("Deploy db initialised")

	return &DB{backend: backend}, nil
}

// PutDeploy persists the deploy under its content hash. The returned flag
// is true if this insertion was novel, and false if an identical deploy was
// already stored. Resubmission is not an error.
func (d *DB) PutDeploy(dep *deploy.Deploy) (bool, error) {
	var isNew bool
	err := kvdb.Update(d.backend, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(deployBucket)
		if bucket == nil {
			return errNoBucket
		}

		if bucket.Get(dep.Hash[:]) != nil {
			return nil
		}

		var b bytes.Buffer
		if err := deploy.Serialize(&b, dep); err != nil {
			return err
		}
		if err := bucket.Put(dep.Hash[:], b.Bytes()); err != nil {
			return err
		}

		isNew = true
		return nil
	}, func() {
		isNew = false
	})
	if err != nil {
		return false, fmt.Errorf("unable to store deploy %v: %w",
			dep.Hash, err)
	}

	return isNew, nil
}

// GetDeploy fetches the deploy stored under the given hash, returning
// ErrDeployNotFound if the pool does not contain it.
func (d *DB) GetDeploy(hash deploy.Hash) (*deploy.Deploy, error) {
	var dep *deploy.Deploy
	err := kvdb.View(d.backend, func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(deployBucket)
		if bucket == nil {
			return errNoBucket
		}

		raw := bucket.Get(hash[:])
		if raw == nil {
			return ErrDeployNotFound
		}

		var err error
		dep, err = deploy.Deserialize(bytes.NewReader(raw))
		return err
	}, func() {
		dep = nil
	})
	if err != nil {
		return nil, err
	}

	return dep, nil
}
