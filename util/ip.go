package util

import (
	"fmt"
	"net"
)

const (
	IP_PROTOCOL_ICMP = 1
	IP_PROTOCOL_TCP  = 6
	IP_PROTOCOL_UDP  = 17
)

// IsValidIPPacket checks if the data is a valid IPv4 packet
func IsValidIPPacket(data []byte) bool {
	ok, _ := ValidateIPPacket(data)
	return ok
}

// ValidateIPPacket checks if the data is a valid IPv4 packet with detailed error reporting
func ValidateIPPacket(data []byte) (bool, string) {
	if len(data) < 20 {
		return false, "packet too short"
	}

	if version := data[0] >> 4; version != 4 {
		return false, "not IPv4"
	}

	if ihl := data[0] & 0x0F; ihl < 5 {
		return false, "invalid header length"
	}

	totalLength := int(data[2])<<8 | int(data[3])
	if totalLength < 20 || totalLength > len(data) {
		return false, "invalid total length"
	}

	return true, ""
}

// DescribeIPPacket renders src, dst and protocol of a validated IPv4 packet for trace logs.
func DescribeIPPacket(data []byte) string {
	if !IsValidIPPacket(data) {
		return "invalid"
	}

	proto := "proto " + fmt.Sprint(data[9])
	switch data[9] {
	case IP_PROTOCOL_ICMP:
		proto = "ICMP"
	case IP_PROTOCOL_TCP:
		proto = "TCP"
	case IP_PROTOCOL_UDP:
		proto = "UDP"
	}

	return fmt.Sprintf("%s %s -> %s (%d bytes)", proto, net.IP(data[12:16]).String(), net.IP(data[16:20]).String(), int(data[2])<<8|int(data[3]))
}
