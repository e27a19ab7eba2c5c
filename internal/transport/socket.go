// Package transport manages the single UDP socket each daemon instance uses
// to send and receive control-plane packets. There is only one socket per
// process; all Hello, LSA, and control messages travel through it.
package transport

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/lgonzales/lsrouted/internal/observer"
)

// Datagram is a raw UDP payload paired with the address it arrived from.
type Datagram struct {
	Addr *net.UDPAddr
	Data []byte
}

// Socket is the control-plane transport. Implementations must support
// sending to broadcast addresses.
type Socket interface {
	// LocalAddr returns the local address of the UDP socket.
	// It errors if the socket is not open.
	LocalAddr() (netip.AddrPort, error)

	// SendTo sends a byte slice to addr. Open must be called first.
	SendTo(addr *net.UDPAddr, data []byte) error

	// Open opens a UDP socket bound to ip:port with broadcast enabled.
	Open(ip net.IP, port int) (*net.UDPAddr, error)

	// Close closes the socket. Subscribers are not cleared; they will
	// receive datagrams from any future socket re-opened on the same value.
	Close() error

	// Subscribe registers a channel that receives every datagram read by
	// the socket's receive loop.
	Subscribe() chan *Datagram
}

type udpSocket struct {
	conn         *net.UDPConn
	observable   *observer.Observable[*Datagram]
	readBufBytes int
}

// NewUDPSocket constructs a Socket. readBufBytes bounds the size of each
// read from the kernel socket buffer (the control plane's max datagram
// size after decryption is 2048 bytes per the wire protocol, so this is
// sized generously above that to tolerate encryption overhead).
func NewUDPSocket(readBufBytes int) *udpSocket {
	return &udpSocket{
		observable:   observer.NewObservable[*Datagram](),
		readBufBytes: readBufBytes,
	}
}

func (s *udpSocket) LocalAddr() (netip.AddrPort, error) {
	if s.conn == nil {
		return netip.AddrPort{}, errors.New("transport: socket is not open")
	}
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort(), nil
}

func (s *udpSocket) Subscribe() chan *Datagram {
	return s.observable.Subscribe()
}

func (s *udpSocket) Open(ip net.IP, port int) (*net.UDPAddr, error) {
	if s.conn != nil {
		return nil, errors.New("transport: socket is already open, call Close first")
	}

	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", (&net.UDPAddr{IP: ip, Port: port}).String())
	if err != nil {
		return nil, err
	}

	conn := pc.(*net.UDPConn)
	s.conn = conn

	go s.readLoop()

	return conn.LocalAddr().(*net.UDPAddr), nil
}

func (s *udpSocket) readLoop() {
	for {
		buf := make([]byte, s.readBufBytes)
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		s.observable.NotifyObservers(&Datagram{Addr: addr, Data: buf[:n]})
	}
}

func (s *udpSocket) SendTo(addr *net.UDPAddr, data []byte) error {
	if s.conn == nil {
		return errors.New("transport: socket is not open")
	}

	_, err := s.conn.WriteToUDP(data, addr)
	return err
}

func (s *udpSocket) Close() error {
	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil
	return err
}
