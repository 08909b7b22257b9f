package catalog

import "fmt"

// NotFoundError is returned when a requested file matches neither exactly
// nor case-insensitively.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Name)
}

// CatalogError wraps a filesystem failure while listing the card root.
type CatalogError struct {
	Root string
	Err  error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("unable to get file list of %s: %v", e.Root, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}
