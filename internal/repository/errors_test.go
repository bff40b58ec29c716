package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"active transaction", &pq.Error{Code: "23505", Constraint: uniqueActiveTransaction}, ErrDuplicateActiveTransaction},
		{"open dispute", &pq.Error{Code: "23505", Constraint: uniqueOpenDispute}, ErrDisputeAlreadyOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapConstraintError(tt.err), tt.want)
		})
	}

	other := &pq.Error{Code: "23505", Constraint: "users_email_key"}
	assert.Same(t, other, mapConstraintError(other))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapConstraintError(plain))
}

func TestWrapStoreError_KeepsSentinels(t *testing.T) {
	assert.Equal(t, ErrStaleState, wrapStoreError("settle", ErrStaleState))
	assert.Equal(t, ErrTransactionNotFound, wrapStoreError("settle", ErrTransactionNotFound))

	wrapped := wrapStoreError("settle", errors.New("boom"))
	assert.Contains(t, wrapped.Error(), "transaction repository: settle")
}
