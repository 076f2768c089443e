package p2p

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/ledgerline/node/log"
)

// ErrLinkClosed is returned by SendExpectResponse when the link is closed
// before a reply arrives. Send reports the underlying write error instead.
var ErrLinkClosed = errors.New("p2p: link closed")

// Handler processes one inbound message that isn't claimed as a reply to
// an outstanding request/response exchange.
type Handler func(msg Message)

// Link is one framed, newline-delimited-JSON connection to a peer. A
// Link owns its net.Conn; closing it (or the peer closing its half)
// terminates the read loop and releases any waiters.
type Link struct {
	PeerAddress string

	conn    net.Conn
	writeMu sync.Mutex
	scanner *bufio.Scanner

	waitersMu sync.Mutex
	waiters   map[string]chan Message

	closeOnce sync.Once
	closed    chan struct{}
}

// NewLink wraps conn as a peer link. Call Serve to start dispatching
// inbound frames once the caller has finished wiring up anything (such
// as a closure capturing the returned *Link) that the handler needs.
func NewLink(peerAddress string, conn net.Conn) *Link {
	l := &Link{
		PeerAddress: peerAddress,
		conn:        conn,
		scanner:     bufio.NewScanner(conn),
		waiters:     make(map[string]chan Message),
		closed:      make(chan struct{}),
	}
	l.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return l
}

// Serve starts the link's read loop, dispatching every frame that
// doesn't match an outstanding correlation id to onMessage. Must be
// called exactly once.
func (l *Link) Serve(onMessage Handler) {
	go l.readLoop(onMessage)
}

func (l *Link) readLoop(onMessage Handler) {
	defer l.Close()
	for l.scanner.Scan() {
		line := l.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Warn("p2p: dropping malformed frame", "peer", l.PeerAddress, "error", err)
			continue
		}
		if msg.CorrelationID != "" && l.deliverToWaiter(msg) {
			continue
		}
		onMessage(msg)
	}
}

func (l *Link) deliverToWaiter(msg Message) bool {
	l.waitersMu.Lock()
	ch, ok := l.waiters[msg.CorrelationID]
	if ok {
		delete(l.waiters, msg.CorrelationID)
	}
	l.waitersMu.Unlock()
	if !ok {
		return false
	}
	ch <- msg
	return true
}

// Send writes msg as a single JSON line and flushes. Safe for concurrent
// callers.
func (l *Link) Send(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("p2p: marshal message: %w", err)
	}
	payload = append(payload, '\n')
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if _, err := l.conn.Write(payload); err != nil {
		log.Warn("p2p: write failed, dropping peer", "peer", l.PeerAddress, "error", err)
		l.Close()
		return err
	}
	return nil
}

// SendExpectResponse sends msg (tagging it with a fresh correlation id)
// and blocks until a reply carrying the same correlation id arrives, the
// context is done, or the link closes. This implements the bounded
// timeout for a request/response exchange over the link.
func (l *Link) SendExpectResponse(ctx context.Context, msg Message) (Message, error) {
	msg.CorrelationID = uuid.NewString()
	ch := make(chan Message, 1)
	l.waitersMu.Lock()
	l.waiters[msg.CorrelationID] = ch
	l.waitersMu.Unlock()

	if err := l.Send(msg); err != nil {
		l.waitersMu.Lock()
		delete(l.waiters, msg.CorrelationID)
		l.waitersMu.Unlock()
		return Message{}, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-l.closed:
		return Message{}, ErrLinkClosed
	case <-ctx.Done():
		l.waitersMu.Lock()
		delete(l.waiters, msg.CorrelationID)
		l.waitersMu.Unlock()
		return Message{}, ctx.Err()
	}
}

// Reply sends msg preserving the correlation id of an inbound request,
// so the requester's SendExpectResponse waiter can match it.
func (l *Link) Reply(to Message, reply Message) error {
	reply.CorrelationID = to.CorrelationID
	return l.Send(reply)
}

// Close closes the underlying connection exactly once and releases any
// pending waiters with ErrLinkClosed.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.conn.Close()
	})
	return err
}
