package ftn

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is a FidoNet 4D address (Zone:Net/Node.Point).
type Address struct {
	Zone  int
	Net   int
	Node  int
	Point int
}

// ParseAddress parses "Z:N/N", "Z:N/N.P" or the same with an "@domain" suffix.
func ParseAddress(addr string) (Address, error) {
	addr = strings.TrimSpace(addr)
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		addr = addr[:at]
	}

	zonePart, rest, ok := strings.Cut(addr, ":")
	if !ok {
		return Address{}, fmt.Errorf("ftn: invalid address format: %q", addr)
	}
	zone, err := strconv.Atoi(zonePart)
	if err != nil {
		return Address{}, fmt.Errorf("ftn: invalid zone: %q", zonePart)
	}

	netPart, nodePoint, ok := strings.Cut(rest, "/")
	if !ok {
		return Address{}, fmt.Errorf("ftn: invalid net/node: %q", rest)
	}
	net, err := strconv.Atoi(netPart)
	if err != nil {
		return Address{}, fmt.Errorf("ftn: invalid net: %q", netPart)
	}

	nodePart, pointPart, hasPoint := strings.Cut(nodePoint, ".")
	node, err := strconv.Atoi(nodePart)
	if err != nil {
		return Address{}, fmt.Errorf("ftn: invalid node: %q", nodePart)
	}

	point := 0
	if hasPoint {
		point, err = strconv.Atoi(pointPart)
		if err != nil {
			return Address{}, fmt.Errorf("ftn: invalid point: %q", pointPart)
		}
	}

	return Address{Zone: zone, Net: net, Node: node, Point: point}, nil
}

// String returns the full 4D address. Point is omitted if zero.
func (a Address) String() string {
	if a.Point == 0 {
		return fmt.Sprintf("%d:%d/%d", a.Zone, a.Net, a.Node)
	}
	return fmt.Sprintf("%d:%d/%d.%d", a.Zone, a.Net, a.Node, a.Point)
}

// IsZero reports whether no component of the address is set.
func (a Address) IsZero() bool {
	return a == Address{}
}
