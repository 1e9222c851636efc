// Package wol builds and sends Wake-on-LAN magic packets.
package wol

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
)

// PacketSize is the length of a magic packet: 6 sync bytes and 16 MACs.
const PacketSize = 6 + 16*6

// ErrInvalidMAC is returned for a MAC address that is not 6 hex-encoded bytes.
var ErrInvalidMAC = errors.New("invalid MAC address")

// ParseMAC strips ':' and '-' separators from s and decodes the remaining
// 12 hex characters.
func ParseMAC(s string) (net.HardwareAddr, error) {
	raw := strings.NewReplacer(":", "", "-", "").Replace(s)
	if len(raw) != 12 {
		return nil, fmt.Errorf("%w %q: want 12 hex digits, got %d", ErrInvalidMAC, s, len(raw))
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidMAC, s, err)
	}
	return net.HardwareAddr(b), nil
}

// NewPacket returns the magic packet for mac.
func NewPacket(mac net.HardwareAddr) []byte {
	b := make([]byte, 0, PacketSize)
	b = append(b, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	for i := 0; i < 16; i++ {
		b = append(b, mac...)
	}
	return b
}
