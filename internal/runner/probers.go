package runner

import (
	"io"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/pkg/discovery"
	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/arp"
	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/ndp"
	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/pingsweep"
	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/tcpconnect"
	"github.com/projectdiscovery/hostsweep/pkg/types"
	errorutil "github.com/projectdiscovery/utils/errors"
)

// proberFactory builds a prober from the run options
type proberFactory func(options *Options) (discovery.Prober, error)

var proberFactories = map[types.ProberType]proberFactory{
	types.ICMP: newICMPProber,
	types.TCP:  newTCPProber,
	types.ARP:  newARPProber,
	types.NDP:  newNDPProber,
}

// namedProber is a prober ready to run, with the name events are recorded under
type namedProber struct {
	name   string
	prober discovery.Prober
}

func newICMPProber(options *Options) (discovery.Prober, error) {
	opts := pingsweep.DefaultOptions
	if options.Timeout > 0 {
		opts.Timeout = options.Timeout
	}
	prober, err := pingsweep.NewProber(opts)
	if err != nil {
		return nil, err
	}
	return prober, nil
}

func newTCPProber(options *Options) (discovery.Prober, error) {
	ports, err := tcpconnect.ParsePorts(options.Ports)
	if err != nil {
		return nil, err
	}
	return tcpconnect.NewProber(ports, options.Timeout), nil
}

func newARPProber(options *Options) (discovery.Prober, error) {
	opts := arp.DefaultOptions
	if options.Timeout > 0 {
		opts.Timeout = options.Timeout
	}
	return arp.NewProber(opts), nil
}

func newNDPProber(_ *Options) (discovery.Prober, error) {
	return ndp.NewProber(ndp.DefaultOptions), nil
}

// buildProbers creates the requested probers in order. A prober that cannot be
// created, usually for lack of privileges, is skipped with a warning.
func buildProbers(options *Options) ([]namedProber, error) {
	proberTypes, err := options.proberTypes()
	if err != nil {
		return nil, err
	}

	var probers []namedProber
	for _, proberType := range proberTypes {
		factory, ok := proberFactories[proberType]
		if !ok {
			gologger.Warning().Msgf("No implementation for prober %s, skipping", proberType)
			continue
		}
		prober, err := factory(options)
		if err != nil {
			gologger.Warning().Msgf("Could not create %s prober, skipping: %s", proberType, err)
			continue
		}
		gologger.Verbose().Msgf("Using %s prober", proberType)
		probers = append(probers, namedProber{name: proberType.String(), prober: prober})
	}

	if len(probers) == 0 {
		return nil, errorutil.New("none of the requested probers could be created")
	}
	return probers, nil
}

func closeProbers(probers []namedProber) {
	for _, p := range probers {
		closer, ok := p.prober.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			gologger.Debug().Msgf("Could not close %s prober: %s", p.name, err)
		}
	}
}
