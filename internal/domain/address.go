package domain

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

var (
	ErrInvalidMAC = errors.New("invalid MAC address")
	ErrInvalidIP  = errors.New("invalid IPv4 address")
)

// six colon-separated hex octets
var macPattern = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`)

// NormalizeMAC uppercases a MAC address. It does not validate.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

// ValidateMAC checks for colon-separated hex octet form
func ValidateMAC(mac string) error {
	if !macPattern.MatchString(mac) {
		return fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	return nil
}

// ValidateIP checks for a dotted-quad IPv4 address
func ValidateIP(ip string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	return nil
}

// FirstOctet returns the first two characters of an uppercase MAC
func FirstOctet(mac string) string {
	if len(mac) < 2 {
		return mac
	}
	return mac[:2]
}
