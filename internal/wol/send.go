package wol

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
)

// Sender transmits magic packets over UDP. Nothing is awaited after the write.
type Sender struct {
	log zerolog.Logger
}

// NewSender returns a Sender logging to log.
func NewSender(log zerolog.Logger) *Sender {
	return &Sender{log: log}
}

// Send writes packet to address:port from an unbound datagram socket with
// SO_BROADCAST requested. Failing to set SO_BROADCAST is logged and the
// send goes ahead.
func (s *Sender) Send(ctx context.Context, address string, port int, packet []byte) error {
	target := net.JoinHostPort(address, strconv.Itoa(port))
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", target, err)
	}

	network, local := "udp4", "0.0.0.0:0"
	if addr.IP.To4() == nil {
		network, local = "udp6", "[::]:0"
	}

	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			if err := enableBroadcast(c); err != nil {
				s.log.Warn().Err(err).Str("target", target).Msg("Failed to enable broadcast")
			}
			return nil
		},
	}
	conn, err := lc.ListenPacket(ctx, network, local)
	if err != nil {
		return fmt.Errorf("opening UDP socket: %w", err)
	}
	defer conn.Close()

	n, err := conn.WriteTo(packet, addr)
	if err != nil {
		return fmt.Errorf("writing packet to %s: %w", addr, err)
	}
	if n != len(packet) {
		return fmt.Errorf("short write to %s: %d of %d bytes", addr, n, len(packet))
	}

	s.log.Debug().
		Str("target", addr.String()).
		Int("bytes", n).
		Msg("Magic packet sent")
	return nil
}
