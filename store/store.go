// Package store implements the certificate archive: a bbolt-backed,
// single-file key-value store that persists issued certificates keyed by
// their target (quantized) model hash, so a later verification run can look
// one up without re-deriving it. Adapted from node/store/db.go's bbolt
// wiring; the block/UTXO/undo bucket layout has no analogue here, so the
// archive keeps a single bucket keyed by model hash.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cqcert/cqcert/certificate"

	bolt "go.etcd.io/bbolt"
)

var bucketCertificates = []byte("certificates_by_target_hash")

// Archive is an open certificate archive.
type Archive struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt-backed archive file at
// filepath.Join(dir, "cqcert.db"). Grounded on store.Open's directory
// handling and bolt.Options timeout convention.
func Open(dir string) (*Archive, error) {
	if dir == "" {
		return nil, fmt.Errorf("store: dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
	}

	path := filepath.Join(dir, "cqcert.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}

	a := &Archive{db: bdb}
	if err := a.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCertificates)
		return err
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}
	return a, nil
}

// Close closes the underlying bbolt file.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Put stores cert, keyed by its target model hash. A later Put for the same
// hash overwrites the previous certificate, matching how re-running the
// pipeline on an unchanged target model should simply replace its record.
func (a *Archive) Put(cert *certificate.Certificate) error {
	key := cert.TargetModelHash()
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCertificates).Put(key[:], cert.Serialize())
	})
}

// Get looks up the certificate issued for the given target model hash. The
// returned bool is false (with a nil error) if no certificate is archived
// under that hash.
func (a *Archive) Get(targetModelHash [32]byte) (*certificate.Certificate, bool, error) {
	var raw []byte
	err := a.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCertificates).Get(targetModelHash[:])
		if v == nil {
			return nil
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	cert, err := certificate.Deserialize(raw)
	if err != nil {
		return nil, false, fmt.Errorf("store: archived certificate failed to deserialize: %w", err)
	}
	return cert, true, nil
}

// Delete removes any certificate archived under the given target model hash.
// Deleting an absent key is not an error.
func (a *Archive) Delete(targetModelHash [32]byte) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCertificates).Delete(targetModelHash[:])
	})
}

// Count returns the number of certificates currently archived.
func (a *Archive) Count() (int, error) {
	n := 0
	err := a.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCertificates).ForEach(func(_, _ []byte) error {
			n++
			return nil
		})
	})
	return n, err
}
