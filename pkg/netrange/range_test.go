package netrange

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/miekg/dns"
)

type staticResolver map[string][]netip.Addr

func (s staticResolver) LookupHost(_ context.Context, host string) ([]netip.Addr, error) {
	addrs, ok := s[host]
	if !ok {
		return nil, errors.New("not found")
	}
	return addrs, nil
}

func collect(r Range) []string {
	var out []string
	it := r.Iterator()
	for {
		addr, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, addr.String())
	}
}

func TestParse(t *testing.T) {
	parser := &Parser{Resolver: staticResolver{
		"fileserver.corp": {netip.MustParseAddr("10.1.1.7")},
	}}

	tests := []struct {
		name    string
		spec    string
		want    []string
		wantStr string
		wantErr bool
	}{
		{
			name:    "/30 skips network and broadcast",
			spec:    "10.0.0.0/30",
			want:    []string{"10.0.0.1", "10.0.0.2"},
			wantStr: "10.0.0.0/30",
		},
		{
			name:    "/31 keeps both addresses",
			spec:    "10.0.0.0/31",
			want:    []string{"10.0.0.0", "10.0.0.1"},
			wantStr: "10.0.0.0/31",
		},
		{
			name:    "/32 is a single host",
			spec:    "10.0.0.9/32",
			want:    []string{"10.0.0.9"},
			wantStr: "10.0.0.9/32",
		},
		{
			name:    "unmasked prefix is masked",
			spec:    "192.168.1.77/30",
			want:    []string{"192.168.1.77", "192.168.1.78"},
			wantStr: "192.168.1.76/30",
		},
		{
			name:    "single address",
			spec:    " 172.16.0.4 ",
			want:    []string{"172.16.0.4"},
			wantStr: "172.16.0.4",
		},
		{
			name:    "interval",
			spec:    "10.0.0.254-10.0.1.1",
			want:    []string{"10.0.0.254", "10.0.0.255", "10.0.1.0", "10.0.1.1"},
			wantStr: "10.0.0.254-10.0.1.1",
		},
		{
			name:    "wildcard",
			spec:    "10.9.8.*",
			wantStr: "10.9.8.0/24",
		},
		{
			name:    "ipv6 prefix",
			spec:    "fd00::/126",
			want:    []string{"fd00::", "fd00::1", "fd00::2", "fd00::3"},
			wantStr: "fd00::/126",
		},
		{
			name:    "ipv4-mapped prefix",
			spec:    "::ffff:10.0.0.0/126",
			want:    []string{"10.0.0.1", "10.0.0.2"},
			wantStr: "10.0.0.0/30",
		},
		{
			name:    "hostname",
			spec:    "fileserver.corp",
			want:    []string{"10.1.1.7"},
			wantStr: "fileserver.corp (10.1.1.7)",
		},
		{name: "empty", spec: "  ", wantErr: true},
		{name: "bad prefix length", spec: "10.0.0.0/33", wantErr: true},
		{name: "ipv4-mapped prefix shorter than /96", spec: "::ffff:10.0.0.0/90", wantErr: true},
		{name: "reversed interval", spec: "10.0.0.9-10.0.0.1", wantErr: true},
		{name: "mixed family interval", spec: "10.0.0.1-fd00::1", wantErr: true},
		{name: "inner wildcard", spec: "10.*.0.1", wantErr: true},
		{name: "all wildcard", spec: "*.*.*.*", wantErr: true},
		{name: "octet out of range", spec: "10.0.0.256", wantErr: true},
		{name: "unknown hostname", spec: "nowhere.corp", wantErr: true},
		{name: "garbage", spec: "10.0.0.0/24,10.0.1.0/24", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parser.Parse(context.Background(), tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRangeSpec) {
					t.Errorf("Parse(%q) error = %v, want ErrInvalidRangeSpec", tt.spec, err)
				}
				return
			}
			if r.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", r.String(), tt.wantStr)
			}
			if tt.want == nil {
				return
			}
			got := collect(r)
			if len(got) != len(tt.want) {
				t.Fatalf("iterated %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("address[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseHostnameWithoutResolver(t *testing.T) {
	parser := &Parser{}
	if _, err := parser.Parse(context.Background(), "fileserver.corp"); !errors.Is(err, ErrInvalidRangeSpec) {
		t.Fatalf("expected ErrInvalidRangeSpec, got %v", err)
	}
}

func TestWildcardWalk(t *testing.T) {
	r, err := (&Parser{}).Parse(context.Background(), "10.9.8.*")
	if err != nil {
		t.Fatal(err)
	}
	got := collect(r)
	if len(got) != 254 {
		t.Fatalf("expected 254 usable addresses, got %d", len(got))
	}
	if got[0] != "10.9.8.1" || got[len(got)-1] != "10.9.8.254" {
		t.Errorf("unexpected bounds %s..%s", got[0], got[len(got)-1])
	}
}

func TestContains(t *testing.T) {
	parser := &Parser{}
	tests := []struct {
		spec string
		addr string
		want bool
	}{
		{"10.0.0.0/24", "10.0.0.0", true},
		{"10.0.0.0/24", "10.0.0.200", true},
		{"10.0.0.0/24", "10.0.1.1", false},
		{"10.0.0.0/24", "::ffff:10.0.0.5", true},
		{"10.0.0.5-10.0.0.9", "10.0.0.9", true},
		{"10.0.0.5-10.0.0.9", "10.0.0.10", false},
		{"10.0.0.5", "10.0.0.5", true},
		{"10.0.0.5", "10.0.0.6", false},
	}
	for _, tt := range tests {
		r, err := parser.Parse(context.Background(), tt.spec)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.spec, err)
		}
		if got := r.Contains(netip.MustParseAddr(tt.addr)); got != tt.want {
			t.Errorf("%s.Contains(%s) = %v, want %v", tt.spec, tt.addr, got, tt.want)
		}
	}
}

func TestIteratorsAreIndependent(t *testing.T) {
	r := NewCIDR(netip.MustParsePrefix("10.0.0.0/30"))
	first := r.Iterator()
	first.Next()
	if got := collect(r); len(got) != 2 || got[0] != "10.0.0.1" {
		t.Errorf("fresh iterator should restart, got %v", got)
	}
}

func TestCIDRSize(t *testing.T) {
	r := NewCIDR(netip.MustParsePrefix("192.168.0.0/24"))
	if size := r.Size(); size != 256 {
		t.Errorf("Size() = %d, want 256", size)
	}
}

func TestList(t *testing.T) {
	addrs := []netip.Addr{netip.MustParseAddr("10.0.0.9"), netip.MustParseAddr("10.0.0.1")}
	l := NewList("prioritized", addrs)
	got := collect(l)
	if len(got) != 2 || got[0] != "10.0.0.9" || got[1] != "10.0.0.1" {
		t.Errorf("list order not preserved: %v", got)
	}
	if !l.Contains(netip.MustParseAddr("10.0.0.1")) || l.Contains(netip.MustParseAddr("10.0.0.2")) {
		t.Error("unexpected membership result")
	}
}

func TestAnswerAddrs(t *testing.T) {
	resp := new(dns.Msg)
	resp.Answer = []dns.RR{
		&dns.CNAME{Hdr: dns.RR_Header{Name: "www.corp.", Rrtype: dns.TypeCNAME}, Target: "web.corp."},
		&dns.A{Hdr: dns.RR_Header{Name: "web.corp.", Rrtype: dns.TypeA}, A: net.ParseIP("10.2.0.4")},
		&dns.AAAA{Hdr: dns.RR_Header{Name: "web.corp.", Rrtype: dns.TypeAAAA}, AAAA: net.ParseIP("fd00::4")},
	}
	got := answerAddrs(resp)
	if len(got) != 2 {
		t.Fatalf("expected 2 addresses, got %v", got)
	}
	if got[0] != netip.MustParseAddr("10.2.0.4") || got[1] != netip.MustParseAddr("fd00::4") {
		t.Errorf("unexpected addresses %v", got)
	}
}

func writeHostsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	data := `# static entries
127.0.0.1	localhost
::1		localhost ip6-localhost
10.1.1.7	FileServer fileserver.corp	# build box

not-an-address	broken
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLookupHostsFile(t *testing.T) {
	path := writeHostsFile(t)
	tests := []struct {
		host string
		want []string
	}{
		{"localhost", []string{"127.0.0.1", "::1"}},
		{"fileserver", []string{"10.1.1.7"}},
		{"fileserver.corp.", []string{"10.1.1.7"}},
		{"ip6-localhost", []string{"::1"}},
		{"broken", nil},
		{"nowhere", nil},
	}
	for _, tt := range tests {
		var got []string
		for _, addr := range lookupHostsFile(path, tt.host) {
			got = append(got, addr.String())
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("lookupHostsFile(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
	if got := lookupHostsFile(filepath.Join(t.TempDir(), "missing"), "localhost"); got != nil {
		t.Errorf("missing hosts file returned %v", got)
	}
}

func TestDNSResolverHostsFile(t *testing.T) {
	r := NewDNSResolver("127.0.0.1:1")
	r.Timeout = 100 * time.Millisecond
	r.HostsFile = writeHostsFile(t)

	addrs, err := r.LookupHost(context.Background(), "localhost")
	if err != nil {
		t.Fatalf("LookupHost(localhost): %v", err)
	}
	if len(addrs) == 0 || addrs[0] != netip.MustParseAddr("127.0.0.1") {
		t.Errorf("unexpected addresses %v", addrs)
	}

	parser := &Parser{Resolver: r}
	rng, err := parser.Parse(context.Background(), "FileServer")
	if err != nil {
		t.Fatalf("Parse(FileServer): %v", err)
	}
	if got := collect(rng); len(got) != 1 || got[0] != "10.1.1.7" {
		t.Errorf("iterated %v", got)
	}

	if _, err := r.LookupHost(context.Background(), "nowhere"); err == nil {
		t.Error("expected an error for a name in neither the hosts file nor dns")
	}
}

func TestQueryNames(t *testing.T) {
	r := &DNSResolver{
		Servers: []string{"127.0.0.1:1"},
		conf:    &dns.ClientConfig{Ndots: 1, Search: []string{"corp", "lab.corp"}},
	}
	tests := []struct {
		host string
		want []string
	}{
		{"fileserver", []string{"fileserver.corp.", "fileserver.lab.corp.", "fileserver."}},
		{"build.lab", []string{"build.lab.", "build.lab.corp.", "build.lab.lab.corp."}},
		{"web.corp.", []string{"web.corp."}},
	}
	for _, tt := range tests {
		if got := r.queryNames(tt.host); !slices.Equal(got, tt.want) {
			t.Errorf("queryNames(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}
