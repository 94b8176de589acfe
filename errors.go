package groundwork

import "errors"

// ErrDataPathRequired is returned when no knowledge repository, data path
// or in-memory store is configured.
var ErrDataPathRequired = errors.New("data path required")
