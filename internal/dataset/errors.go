package dataset

import "errors"

var (
	// ErrDuplicateName indicates a dataset with the same name is already registered.
	ErrDuplicateName = errors.New("dataset name already registered")

	// ErrNotFound indicates the named dataset is not registered.
	ErrNotFound = errors.New("dataset not found")

	// ErrEmptyName indicates an empty dataset name.
	ErrEmptyName = errors.New("dataset name is empty")

	// ErrNilTable indicates a nil table was passed to the registry.
	ErrNilTable = errors.New("table is nil")

	// ErrEmptyCSV indicates the CSV input has no header row.
	ErrEmptyCSV = errors.New("csv input is empty")
)
