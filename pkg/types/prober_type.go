package types

import (
	"fmt"
	"strings"
)

var AllProbers = []ProberType{}

func init() {
	for i := 0; i <= int(NDP); i++ {
		AllProbers = append(AllProbers, ProberType(i))
	}
}

// ProberType represents the liveness probing technique used for a discovery pass
type ProberType int

const (
	ICMP ProberType = iota
	TCP
	ARP
	NDP
)

func (t ProberType) String() string {
	switch t {
	case ICMP:
		return "icmp"
	case TCP:
		return "tcp"
	case ARP:
		return "arp"
	case NDP:
		return "ndp"
	default:
		return "unknown"
	}
}

// ParseProberType returns the prober type matching name (case-insensitive)
func ParseProberType(name string) (ProberType, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, t := range AllProbers {
		if t.String() == normalized {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown prober type: %q", name)
}
