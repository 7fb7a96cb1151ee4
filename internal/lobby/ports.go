package lobby

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// ErrNoPortsAvailable means the whole game-server port range is in use.
var ErrNoPortsAvailable = errors.New("no available ports")

// PortAllocator hands out game-server ports from a rolling cursor over an
// inclusive range. Availability is probed with a transient bind; there is
// no reservation table — the spawn that follows consumes the port, and the
// early-crash check recycles rooms that lose the bind/spawn race.
type PortAllocator struct {
	mu     sync.Mutex
	min    int
	max    int
	cursor int
}

// NewPortAllocator creates an allocator over [min, max].
func NewPortAllocator(min, max int) *PortAllocator {
	return &PortAllocator{min: min, max: max, cursor: min}
}

// Allocate probes ports from the cursor to the top of the range and returns
// the first bindable one. On exhaustion the cursor resets to the bottom so
// the next call rescans the full range.
func (a *PortAllocator) Allocate() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for port := a.cursor; port <= a.max; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		a.cursor = port + 1
		return port, nil
	}

	a.cursor = a.min
	return 0, fmt.Errorf("%w in range %d-%d", ErrNoPortsAvailable, a.min, a.max)
}
