package db

import "errors"

// ErrBusy reports that the storage engine could not acquire the resources
// for a transaction in time. Callers may safely retry: settlement is
// guarded by conditional status transitions.
var ErrBusy = errors.New("storage busy")
