package lease

import "time"

// Clock returns the current wall time. Tests substitute a fixed clock.
type Clock func() time.Time

// CurrentTime returns seconds since the Unix epoch as carried in
// leasestart. A nil clock means time.Now.
func CurrentTime(clock Clock) uint32 {
	if clock == nil {
		clock = time.Now
	}
	return uint32(clock().Unix())
}
