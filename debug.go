// SPDX-License-Identifier: Apache-2.0

package arena

import "fmt"

// FaultPolicy is a diagnostic hook probed before every allocation. A
// non-nil probe error fails the allocation with ErrInjectedFault even
// though the arena itself has room; this deliberately stresses callers'
// out-of-memory paths. Policies are plain values selected at arena
// construction, so they are testable in any build.
type FaultPolicy interface {
	Probe() error
}

// FaultPolicyFunc adapts a function to a FaultPolicy.
type FaultPolicyFunc func() error

func (f FaultPolicyFunc) Probe() error { return f() }

// NewProbeFaultPolicy returns a policy that performs a one-byte
// allocate/free round trip against the given backing store, surfacing
// any fault injection active underneath it. This mirrors the behavior
// installed by the inject_faults configuration toggle.
func NewProbeFaultPolicy(b Backing) FaultPolicy {
	return FaultPolicyFunc(func() error {
		buf, err := b.Allocate(1)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInjectedFault, err)
		}
		b.Free(buf)
		return nil
	})
}

// NewCountdownFaultPolicy returns a policy that lets n probes succeed
// and fails every probe after that.
func NewCountdownFaultPolicy(n int) FaultPolicy {
	remaining := n
	return FaultPolicyFunc(func() error {
		if remaining > 0 {
			remaining--
			return nil
		}
		return ErrInjectedFault
	})
}

// UninitializedByte is the sentinel written over freshly returned blocks
// by StampUninitialized, making reads of not-yet-written memory stand
// out from zeroed or stale data.
const UninitializedByte byte = 0xDD

// StampPolicy post-processes every block returned by Alloc. The usual
// implementation overwrites it with a recognizable garbage pattern.
type StampPolicy interface {
	Stamp(block []byte)
}

// PatternStampPolicy fills blocks with a fixed byte.
type PatternStampPolicy byte

func (p PatternStampPolicy) Stamp(block []byte) {
	for i := range block {
		block[i] = byte(p)
	}
}

// StampUninitialized stamps blocks with UninitializedByte.
var StampUninitialized StampPolicy = PatternStampPolicy(UninitializedByte)
