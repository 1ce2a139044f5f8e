package ldapclient

import (
	"fmt"
	"sync"

	"github.com/go-ldap/ldap/v3"
)

// connPool keeps idle user connections for reuse. It never blocks: an empty
// pool dials, a full pool closes the returned connection.
type connPool struct {
	mu     sync.Mutex
	idle   chan *ldap.Conn
	closed bool
}

func newConnPool(size int) *connPool {
	if size < 1 {
		size = 1
	}

	return &connPool{idle: make(chan *ldap.Conn, size)}
}

// get returns an idle connection or dials a new one.
func (p *connPool) get(dial func() (*ldap.Conn, error)) (*ldap.Conn, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return nil, ErrNoConnection
	}

	select {
	case l, ok := <-p.idle:
		if ok && l != nil {
			return l, nil
		}
	default:
	}

	l, err := dial()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConnection, err)
	}

	return l, nil
}

// put hands a connection back. A connection used by a failed operation is
// closed instead; the next get dials on demand.
func (p *connPool) put(l *ldap.Conn, opErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if opErr != nil || p.closed {
		l.Close()

		return
	}

	select {
	case p.idle <- l:
	default:
		l.Close()
	}
}

// size reports the number of idle connections.
func (p *connPool) size() int { return len(p.idle) }

// close closes every idle connection. Connections handed back later are
// closed by put.
func (p *connPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.idle)

	for l := range p.idle {
		l.Close()
	}
}
