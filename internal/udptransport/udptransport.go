// Package udptransport is the reference transport.Transport used by
// gsdemo: one UDP socket, an arbitrary peer address book keyed by author
// id, and a read loop that hands each datagram to a manager's
// OnMessageReceived.
package udptransport

import (
	"fmt"
	"net"
	"sync"

	"github.com/relaysync/gamesync/transport"
)

const maxDatagram = 2048

// Transport is a UDP-backed transport.Transport. It is not itself
// reliable or ordered, matching the contract transport.Transport
// documents.
type Transport struct {
	conn    *net.UDPConn
	localID uint32

	mu    sync.RWMutex
	peers map[uint32]*net.UDPAddr

	stopCh chan struct{}
}

// Listen binds addr and returns a Transport stamping localID on every
// frame it sends.
func Listen(addr string, localID uint32) (*Transport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udptransport: resolve %s: %w", addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("udptransport: listen %s: %w", addr, err)
	}

	return &Transport{
		conn:    conn,
		localID: localID,
		peers:   make(map[uint32]*net.UDPAddr),
		stopCh:  make(chan struct{}),
	}, nil
}

// AddPeer registers the UDP address frames authored by this transport
// should be sent to when addressed to peerID. Without a registered peer,
// Send is a no-op: there is nowhere to deliver the frame.
func (t *Transport) AddPeer(peerID uint32, addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("udptransport: resolve peer %s: %w", addr, err)
	}
	t.mu.Lock()
	t.peers[peerID] = udpAddr
	t.mu.Unlock()
	return nil
}

// Send implements transport.Transport by broadcasting msg to every
// registered peer. The manager's outbound frames carry no destination of
// their own; fan-out to the full peer set is this reference
// implementation's policy, not part of the transport contract.
func (t *Transport) Send(msg transport.EncodedMessage) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var firstErr error
	for _, addr := range t.peers {
		if _, err := t.conn.WriteToUDP(msg.Bytes, addr); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("udptransport: write to %s: %w", addr, err)
		}
	}
	return firstErr
}

// LocalIdentifier implements transport.Transport.
func (t *Transport) LocalIdentifier() uint32 { return t.localID }

// Serve reads datagrams until the transport is closed, handing each one
// to handler. It blocks; call it from its own goroutine.
func (t *Transport) Serve(handler transport.ArrivalHandler) error {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.stopCh:
				return nil
			default:
				return fmt.Errorf("udptransport: read: %w", err)
			}
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])
		handler(transport.EncodedMessage{Bytes: frame, Author: t.authorOf(from)})
	}
}

// authorOf resolves a UDP source address back to the peer id it was
// registered under, or 0 if the sender is not a known peer.
func (t *Transport) authorOf(from *net.UDPAddr) uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id, addr := range t.peers {
		if addr.IP.Equal(from.IP) && addr.Port == from.Port {
			return id
		}
	}
	return 0
}

// Close stops Serve and releases the socket.
func (t *Transport) Close() error {
	close(t.stopCh)
	return t.conn.Close()
}
