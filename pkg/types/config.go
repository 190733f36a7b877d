package types

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	fileutil "github.com/projectdiscovery/utils/file"
	"github.com/tidwall/gjson"
)

// ErrInvalidConfiguration is returned when a scan configuration cannot be loaded or validated
var ErrInvalidConfiguration = errors.New("invalid scan configuration")

// InvalidRangePolicy decides what happens to a malformed entry of the subnet scan list
type InvalidRangePolicy string

const (
	// InvalidRangeAbort fails the whole resolution on the first malformed entry
	InvalidRangeAbort InvalidRangePolicy = "abort"
	// InvalidRangeSkip drops the malformed entry with a warning and keeps resolving
	InvalidRangeSkip InvalidRangePolicy = "skip"
)

// InaccessibleSubnetGroup is an ordered list of subnets the scanning host cannot
// reach from one another. When a local address sits in one member, the other
// members become scan targets.
type InaccessibleSubnetGroup []string

// ScanConfiguration holds the scan parameters consumed by the range resolver.
// It is never mutated by the discovery core.
type ScanConfiguration struct {
	SubnetScanList           []string                  `yaml:"subnet_scan_list" json:"subnet_scan_list"`
	LocalNetworkScan         bool                      `yaml:"local_network_scan" json:"local_network_scan"`
	InaccessibleSubnetGroups []InaccessibleSubnetGroup `yaml:"inaccessible_subnet_groups" json:"inaccessible_subnet_groups"`
	BlockedIPs               []string                  `yaml:"blocked_ips" json:"blocked_ips"`
	OnInvalidRange           InvalidRangePolicy        `yaml:"on_invalid_range" json:"on_invalid_range"`
}

// Policy returns the effective invalid range policy (abort when unset)
func (c *ScanConfiguration) Policy() InvalidRangePolicy {
	if c.OnInvalidRange == "" {
		return InvalidRangeAbort
	}
	return c.OnInvalidRange
}

// Validate checks the configuration for values the resolver cannot act on
func (c *ScanConfiguration) Validate() error {
	switch c.Policy() {
	case InvalidRangeAbort, InvalidRangeSkip:
	default:
		return fmt.Errorf("%w: unknown on_invalid_range policy %q", ErrInvalidConfiguration, c.OnInvalidRange)
	}
	for i, group := range c.InaccessibleSubnetGroups {
		for _, member := range group {
			if strings.TrimSpace(member) == "" {
				return fmt.Errorf("%w: inaccessible subnet group %d has an empty member", ErrInvalidConfiguration, i)
			}
		}
	}
	return nil
}

// LoadScanConfiguration reads a scan configuration from a YAML or JSON file.
// JSON files use the agent configuration keys at the top level.
func LoadScanConfiguration(location string) (*ScanConfiguration, error) {
	if !fileutil.FileExists(location) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidConfiguration, location)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	// an empty file is an empty configuration in either format
	if len(bytes.TrimSpace(data)) == 0 {
		return &ScanConfiguration{}, nil
	}

	var cfg *ScanConfiguration
	switch strings.ToLower(filepath.Ext(location)) {
	case ".json":
		cfg, err = ParseJSONConfiguration(data)
		if err != nil {
			return nil, err
		}
	default:
		cfg = &ScanConfiguration{}
		// a document holding only comments decodes to io.EOF
		if err := fileutil.UnmarshalFromReader(fileutil.YAML, bytes.NewReader(data), cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseJSONConfiguration extracts the scan keys from a JSON agent configuration
func ParseJSONConfiguration(data []byte) (*ScanConfiguration, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidConfiguration)
	}

	result := gjson.ParseBytes(data)
	cfg := &ScanConfiguration{
		LocalNetworkScan: result.Get("local_network_scan").Bool(),
		OnInvalidRange:   InvalidRangePolicy(result.Get("on_invalid_range").String()),
	}

	result.Get("subnet_scan_list").ForEach(func(_, value gjson.Result) bool {
		cfg.SubnetScanList = append(cfg.SubnetScanList, value.String())
		return true
	})
	result.Get("blocked_ips").ForEach(func(_, value gjson.Result) bool {
		cfg.BlockedIPs = append(cfg.BlockedIPs, value.String())
		return true
	})
	result.Get("inaccessible_subnet_groups").ForEach(func(_, group gjson.Result) bool {
		var members InaccessibleSubnetGroup
		group.ForEach(func(_, member gjson.Result) bool {
			members = append(members, member.String())
			return true
		})
		cfg.InaccessibleSubnetGroups = append(cfg.InaccessibleSubnetGroups, members)
		return true
	})

	return cfg, nil
}
