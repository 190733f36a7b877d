package runner

import (
	"bytes"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/projectdiscovery/hostsweep/pkg/discovery"
	"github.com/projectdiscovery/hostsweep/pkg/netrange"
	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/tcpconnect"
	"github.com/projectdiscovery/hostsweep/pkg/scanlog"
	"github.com/projectdiscovery/hostsweep/pkg/types"
	"github.com/tidwall/gjson"
)

type fakeTopology struct {
	addrs []netip.Addr
}

func (f fakeTopology) LocalAddresses(context.Context) ([]netip.Addr, error) {
	return f.addrs, nil
}

func (f fakeTopology) InterfacePrefixes(context.Context) ([]netip.Prefix, error) {
	return nil, nil
}

// evenHosts reports every address with an even last byte as alive
var evenHosts = discovery.ProberFunc(func(_ context.Context, addr netip.Addr) bool {
	return addr.As4()[3]%2 == 0
})

func newTestRunner(options *Options, local []string, probers ...namedProber) *Runner {
	var addrs []netip.Addr
	for _, s := range local {
		addrs = append(addrs, netip.MustParseAddr(s))
	}
	return &Runner{
		options:  options,
		scanner:  discovery.NewNetworkScanner(fakeTopology{addrs: addrs}, &netrange.Parser{}),
		probers:  probers,
		reported: discovery.NewReportedSet(discovery.DefaultReportedSize, options.CacheTTL),
		onHit:    func(netip.Addr) {},
	}
}

func addrStrings(addrs []netip.Addr) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.String())
	}
	return out
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		options *Options
		probers []namedProber
		want    []string
	}{
		{
			name:    "capped pass",
			options: &Options{Subnets: []string{"10.0.0.0/29"}, MaxResults: 2, Rounds: 1, Concurrency: 1},
			probers: []namedProber{{name: "even", prober: evenHosts}},
			want:    []string{"10.0.0.2", "10.0.0.4"},
		},
		{
			name:    "repeated rounds report each host once",
			options: &Options{Subnets: []string{"10.0.0.0/29"}, MaxResults: 10, Rounds: 3, Concurrency: 1},
			probers: []namedProber{{name: "even", prober: evenHosts}, {name: "again", prober: evenHosts}},
			want:    []string{"10.0.0.2", "10.0.0.4", "10.0.0.6"},
		},
		{
			name:    "later rounds find hosts past the cap",
			options: &Options{Subnets: []string{"10.0.0.0/29"}, MaxResults: 1, Rounds: 3, Concurrency: 1},
			probers: []namedProber{{name: "even", prober: evenHosts}},
			want:    []string{"10.0.0.2", "10.0.0.4", "10.0.0.6"},
		},
		{
			name:    "blocked addresses are never reported",
			options: &Options{Subnets: []string{"10.0.0.0/29"}, BlockedIPs: []string{"10.0.0.4"}, MaxResults: 10, Rounds: 1, Concurrency: 1},
			probers: []namedProber{{name: "even", prober: evenHosts}},
			want:    []string{"10.0.0.2", "10.0.0.6"},
		},
		{
			name:    "self address is never reported",
			options: &Options{Subnets: []string{"10.0.0.0/29"}, MaxResults: 10, Rounds: 1, Concurrency: 1},
			probers: []namedProber{{name: "all", prober: discovery.ProberFunc(func(context.Context, netip.Addr) bool { return true })}},
			want:    []string{"10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunner(tt.options, []string{"10.0.0.1"}, tt.probers...)
			defer r.Close()

			var printed []netip.Addr
			r.onHit = func(addr netip.Addr) { printed = append(printed, addr) }

			if err := r.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := addrStrings(r.Live()); !slices.Equal(got, tt.want) {
				t.Errorf("Live() = %v, want %v", got, tt.want)
			}
			if len(printed) != len(tt.want) {
				t.Errorf("printed %d addresses, want %d", len(printed), len(tt.want))
			}
		})
	}
}

func TestRunReportsAgainAfterExpiry(t *testing.T) {
	slowEven := discovery.ProberFunc(func(ctx context.Context, addr netip.Addr) bool {
		time.Sleep(5 * time.Millisecond)
		return evenHosts(ctx, addr)
	})
	r := newTestRunner(&Options{Subnets: []string{"10.0.0.0/29"}, MaxResults: 10, Rounds: 2, Concurrency: 1, CacheTTL: time.Millisecond},
		[]string{"10.0.0.1"}, namedProber{name: "even", prober: slowEven})
	defer r.Close()

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"10.0.0.2", "10.0.0.4", "10.0.0.6", "10.0.0.2", "10.0.0.4", "10.0.0.6"}
	if got := addrStrings(r.Live()); !slices.Equal(got, want) {
		t.Errorf("Live() = %v, want %v", got, want)
	}
}

func TestRunCancelled(t *testing.T) {
	probed := 0
	prober := discovery.ProberFunc(func(context.Context, netip.Addr) bool {
		probed++
		return true
	})
	r := newTestRunner(&Options{Subnets: []string{"10.0.0.0/24"}, MaxResults: 10, Rounds: 1, Concurrency: 1},
		[]string{"10.0.0.1"}, namedProber{name: "all", prober: prober})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if probed != 0 || len(r.Live()) != 0 {
		t.Errorf("expected no probes after cancellation, probed %d", probed)
	}
}

func TestRunInitializationErrors(t *testing.T) {
	t.Run("no local address", func(t *testing.T) {
		r := newTestRunner(&Options{Subnets: []string{"10.0.0.0/30"}, MaxResults: 1, Rounds: 1}, nil,
			namedProber{name: "even", prober: evenHosts})
		if err := r.Run(context.Background()); err == nil {
			t.Fatal("expected an initialization error")
		}
	})

	t.Run("invalid range aborts", func(t *testing.T) {
		r := newTestRunner(&Options{Subnets: []string{"10.0.0.0/33"}, MaxResults: 1, Rounds: 1}, []string{"10.0.0.1"},
			namedProber{name: "even", prober: evenHosts})
		if err := r.Run(context.Background()); err == nil {
			t.Fatal("expected an invalid range error")
		}
	})

	t.Run("invalid range skipped", func(t *testing.T) {
		options := &Options{Subnets: []string{"10.0.0.0/33", "10.0.0.0/30"}, OnInvalidRange: "skip", MaxResults: 5, Rounds: 1}
		r := newTestRunner(options, []string{"10.0.0.1"}, namedProber{name: "even", prober: evenHosts})
		if err := r.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if got := addrStrings(r.Live()); !slices.Equal(got, []string{"10.0.0.2"}) {
			t.Errorf("Live() = %v", got)
		}
	})
}

func TestRunRecordsEvents(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&Options{Subnets: []string{"10.0.0.0/30"}, MaxResults: 1, Rounds: 1, Concurrency: 1},
		[]string{"10.0.0.1"}, namedProber{name: "even", prober: evenHosts})
	r.recorder = scanlog.NewRecorder(&out, scanlog.NewScanContext(""))

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	r.Close()

	var kinds []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if got := gjson.Get(line, "prober").String(); got != "even" {
			t.Errorf("prober = %q in %s", got, line)
		}
		kinds = append(kinds, gjson.Get(line, "event").String())
	}
	want := []string{
		string(types.EventRangeStart),
		string(types.EventSkipSelf),
		string(types.EventProbe),
		string(types.EventAlive),
		string(types.EventCapReached),
	}
	if !slices.Equal(kinds, want) {
		t.Errorf("events = %v, want %v", kinds, want)
	}
}

func TestScanConfiguration(t *testing.T) {
	dir := t.TempDir()
	location := filepath.Join(dir, "scan.yaml")
	config := `subnet_scan_list:
  - 10.0.0.0/24
blocked_ips:
  - 10.0.0.9
inaccessible_subnet_groups:
  - [10.0.0.0/24, 10.1.0.0/24]
`
	if err := os.WriteFile(location, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}

	options := &Options{
		ConfigFile:       location,
		Subnets:          []string{"192.168.1.0/24"},
		BlockedIPs:       []string{"192.168.1.1"},
		LocalNetworkScan: true,
		OnInvalidRange:   "SKIP",
	}
	cfg, err := options.scanConfiguration()
	if err != nil {
		t.Fatalf("scanConfiguration() error = %v", err)
	}
	if !slices.Equal(cfg.SubnetScanList, []string{"10.0.0.0/24", "192.168.1.0/24"}) {
		t.Errorf("SubnetScanList = %v", cfg.SubnetScanList)
	}
	if !slices.Equal(cfg.BlockedIPs, []string{"10.0.0.9", "192.168.1.1"}) {
		t.Errorf("BlockedIPs = %v", cfg.BlockedIPs)
	}
	if !cfg.LocalNetworkScan {
		t.Error("LocalNetworkScan should be enabled from the command line")
	}
	if cfg.Policy() != types.InvalidRangeSkip {
		t.Errorf("Policy() = %s, want skip", cfg.Policy())
	}
	if len(cfg.InaccessibleSubnetGroups) != 1 || len(cfg.InaccessibleSubnetGroups[0]) != 2 {
		t.Errorf("InaccessibleSubnetGroups = %v", cfg.InaccessibleSubnetGroups)
	}

	options.ConfigFile = filepath.Join(dir, "missing.yaml")
	if _, err := options.scanConfiguration(); err == nil {
		t.Error("expected an error for a missing configuration file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		options Options
		wantErr bool
	}{
		{name: "defaults", options: Options{Probers: []string{"icmp"}}},
		{name: "all probers", options: Options{Probers: []string{"icmp", "TCP", "arp", "ndp"}, Ports: []string{"22", "8000-8010"}}},
		{name: "unknown prober", options: Options{Probers: []string{"smoke-signal"}}, wantErr: true},
		{name: "no prober", options: Options{Probers: []string{" "}}, wantErr: true},
		{name: "bad port", options: Options{Probers: []string{"tcp"}, Ports: []string{"70000"}}, wantErr: true},
		{name: "negative delay", options: Options{Probers: []string{"icmp"}, Delay: -time.Second}, wantErr: true},
		{name: "prescan above 100", options: Options{Probers: []string{"icmp"}, PrescanPercent: 101}, wantErr: true},
		{name: "unknown policy", options: Options{Probers: []string{"icmp"}, OnInvalidRange: "retry"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.options.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (tt.options.Concurrency < 1 || tt.options.Rounds < 1) {
				t.Error("validate() should raise concurrency and rounds to at least one")
			}
		})
	}
}

func TestProberTypes(t *testing.T) {
	options := &Options{Probers: []string{"tcp", "icmp", "TCP", ""}}
	got, err := options.proberTypes()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []types.ProberType{types.TCP, types.ICMP}) {
		t.Errorf("proberTypes() = %v", got)
	}
}

func TestDiscoveryOptions(t *testing.T) {
	options := &Options{MaxResults: 7, Delay: time.Millisecond, Concurrency: 4, PrescanPercent: 25}
	opts := options.discoveryOptions(nil)
	if opts.MaxResults != 7 || opts.Delay != time.Millisecond || opts.Concurrency != 4 {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.PrescanRatio != 0.25 {
		t.Errorf("PrescanRatio = %v, want 0.25", opts.PrescanRatio)
	}
}

func TestBuildProbers(t *testing.T) {
	probers, err := buildProbers(&Options{Probers: []string{"tcp", "ndp"}, Ports: []string{"22"}})
	if err != nil {
		t.Fatal(err)
	}
	defer closeProbers(probers)

	if len(probers) != 2 || probers[0].name != "tcp" || probers[1].name != "ndp" {
		t.Fatalf("unexpected probers %+v", probers)
	}
	tcp, ok := probers[0].prober.(*tcpconnect.Prober)
	if !ok {
		t.Fatalf("tcp prober has type %T", probers[0].prober)
	}
	if !slices.Equal(tcp.Ports, []int{22}) {
		t.Errorf("Ports = %v", tcp.Ports)
	}

	if _, err := buildProbers(&Options{Probers: []string{"bogus"}}); err == nil {
		t.Error("expected an error for an unknown prober")
	}
}
