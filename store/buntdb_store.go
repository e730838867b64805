package store

import (
	"context"
	"errors"

	"github.com/tidwall/buntdb"
)

// BuntKV stores values in an embedded buntdb file.
type BuntKV struct {
	db *buntdb.DB
}

func NewBuntKV(db *buntdb.DB) *BuntKV {
	return &BuntKV{db: db}
}

func (b *BuntKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value string
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

// SetMany writes all values in one transaction.
func (b *BuntKV) SetMany(_ context.Context, values map[string][]byte) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		for k, v := range values {
			if _, _, err := tx.Set(k, string(v), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BuntKV) Delete(_ context.Context, keys ...string) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}
