// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned when the backing store cannot supply a page
// of the requested size. A fail-fast call site (MustAlloc) turns it into
// a panic that aborts the current unit of work.
var ErrOutOfMemory = errors.New("arena: out of memory")

// ErrInjectedFault is returned when an active fault-injection policy
// fails the pre-allocation probe. It wraps ErrOutOfMemory so callers can
// treat both conditions identically via errors.Is.
var ErrInjectedFault = fmt.Errorf("injected allocation fault: %w", ErrOutOfMemory)
