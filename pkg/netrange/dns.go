package netrange

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	fileutil "github.com/projectdiscovery/utils/file"
	osutils "github.com/projectdiscovery/utils/os"
)

// DefaultResolvers are used when the system resolver configuration is unavailable
var DefaultResolvers = []string{"1.1.1.1:53", "8.8.8.8:53"}

const defaultDNSTimeout = 3 * time.Second

const resolvConf = "/etc/resolv.conf"

// DNSResolver resolves hostnames from the hosts file, then with plain DNS queries.
// Unqualified names are expanded with the search domains of /etc/resolv.conf.
// A records are preferred, AAAA records are tried when no A record exists.
type DNSResolver struct {
	// Servers in host:port form. Empty means the nameservers of /etc/resolv.conf.
	Servers []string
	Timeout time.Duration
	// HostsFile is read before any query. Empty means the system hosts file.
	HostsFile string

	once    sync.Once
	servers []string
	conf    *dns.ClientConfig
}

// NewDNSResolver returns a resolver querying servers, or the system nameservers when none are given
func NewDNSResolver(servers ...string) *DNSResolver {
	return &DNSResolver{Servers: servers, Timeout: defaultDNSTimeout}
}

// load reads the system resolver configuration once. A configuration set
// beforehand is kept.
func (r *DNSResolver) load() {
	r.once.Do(func() {
		if r.conf == nil {
			conf, err := dns.ClientConfigFromFile(resolvConf)
			if err != nil {
				conf = &dns.ClientConfig{Port: "53", Ndots: 1}
			}
			r.conf = conf
		}
		if len(r.Servers) > 0 {
			r.servers = r.Servers
			return
		}
		for _, server := range r.conf.Servers {
			r.servers = append(r.servers, net.JoinHostPort(server, r.conf.Port))
		}
		if len(r.servers) == 0 {
			r.servers = DefaultResolvers
		}
	})
}

// queryNames returns the names to query for host, in order
func (r *DNSResolver) queryNames(host string) []string {
	r.load()
	if names := r.conf.NameList(host); len(names) > 0 {
		return names
	}
	return []string{dns.Fqdn(host)}
}

// LookupHost returns the addresses of host
func (r *DNSResolver) LookupHost(ctx context.Context, host string) ([]netip.Addr, error) {
	if addrs := lookupHostsFile(r.hostsFile(), host); len(addrs) > 0 {
		return addrs, nil
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultDNSTimeout
	}
	client := &dns.Client{Timeout: timeout}

	var lastErr error
	for _, name := range r.queryNames(host) {
		addrs, err := r.query(ctx, client, name)
		if err != nil {
			lastErr = err
			continue
		}
		if len(addrs) > 0 {
			return addrs, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("could not resolve %s: %w", host, lastErr)
	}
	return nil, fmt.Errorf("could not resolve %s: no records", host)
}

// query asks each nameserver in turn for the A, then AAAA, records of name
func (r *DNSResolver) query(ctx context.Context, client *dns.Client, name string) ([]netip.Addr, error) {
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(name, qtype)

		for _, server := range r.servers {
			resp, _, err := client.ExchangeContext(ctx, msg, server)
			if err != nil {
				lastErr = err
				continue
			}
			if resp.Rcode != dns.RcodeSuccess {
				lastErr = fmt.Errorf("%s returned %s for %s", server, dns.RcodeToString[resp.Rcode], name)
				continue
			}

			addrs := answerAddrs(resp)
			if len(addrs) > 0 {
				return addrs, nil
			}
			break
		}
	}
	return nil, lastErr
}

func (r *DNSResolver) hostsFile() string {
	if r.HostsFile != "" {
		return r.HostsFile
	}
	if osutils.IsWindows() {
		return filepath.Join(os.Getenv("SystemRoot"), "System32", "drivers", "etc", "hosts")
	}
	return "/etc/hosts"
}

// lookupHostsFile returns the addresses listed for host in a hosts(5) file.
// Names match case-insensitively and a trailing dot is ignored.
func lookupHostsFile(path, host string) []netip.Addr {
	lines, err := fileutil.ReadFile(path)
	if err != nil {
		return nil
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	var addrs []netip.Addr
	for line := range lines {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		addr, err := netip.ParseAddr(fields[0])
		if err != nil {
			continue
		}
		for _, name := range fields[1:] {
			if strings.ToLower(strings.TrimSuffix(name, ".")) == host {
				addrs = append(addrs, addr.WithZone("").Unmap())
				break
			}
		}
	}
	return addrs
}

func answerAddrs(resp *dns.Msg) []netip.Addr {
	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		var ip net.IP
		switch record := rr.(type) {
		case *dns.A:
			ip = record.A
		case *dns.AAAA:
			ip = record.AAAA
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, addr.Unmap())
		}
	}
	return addrs
}
