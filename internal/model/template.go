package model

import (
	"errors"
	"time"
)

// ErrIncompleteTemplate is returned when a fetched template cannot be mined on.
var ErrIncompleteTemplate = errors.New("incomplete block template")

// BlockTemplate is the current mining job shared between worker processes.
type BlockTemplate struct {
	Version        uint64
	Height         uint64
	Difficulty     uint64
	SeedHash       string
	NextSeedHash   string
	PrevHash       string
	HashingBlob    []byte
	BlockBlob      []byte
	ReservedOffset uint32
	TxCount        uint64
	FetchedAt      time.Time
}

// Validate checks that the template carries everything a worker needs.
func (t *BlockTemplate) Validate() error {
	switch {
	case t == nil:
		return ErrIncompleteTemplate
	case t.Height == 0:
		return errors.Join(ErrIncompleteTemplate, errors.New("zero height"))
	case len(t.HashingBlob) == 0:
		return errors.Join(ErrIncompleteTemplate, errors.New("empty hashing blob"))
	case len(t.BlockBlob) == 0:
		return errors.Join(ErrIncompleteTemplate, errors.New("empty block blob"))
	}
	return nil
}

// Clone returns a deep copy so callers never share blob backing arrays.
func (t *BlockTemplate) Clone() *BlockTemplate {
	if t == nil {
		return nil
	}
	out := *t
	out.HashingBlob = append([]byte(nil), t.HashingBlob...)
	out.BlockBlob = append([]byte(nil), t.BlockBlob...)
	return &out
}
