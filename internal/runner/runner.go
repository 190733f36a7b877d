package runner

import (
	"context"
	"net/netip"
	"os"
	"sync"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/pkg/discovery"
	"github.com/projectdiscovery/hostsweep/pkg/netrange"
	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
	"github.com/projectdiscovery/hostsweep/pkg/scanlog"
	"github.com/projectdiscovery/hostsweep/pkg/types"
	errorutil "github.com/projectdiscovery/utils/errors"
)

// Runner contains the internal logic of the program
type Runner struct {
	options  *Options
	scanner  *discovery.NetworkScanner
	probers  []namedProber
	recorder *scanlog.Recorder
	output   *os.File

	// live holds every address reported so far, in discovery order
	live     []netip.Addr
	reported *discovery.ReportedSet
	onHit    func(addr netip.Addr)

	closeOnce sync.Once
}

// NewRunner instance
func NewRunner(options *Options) (*Runner, error) {
	probers, err := buildProbers(options)
	if err != nil {
		return nil, err
	}

	parser := &netrange.Parser{Resolver: netrange.NewDNSResolver(options.Resolvers...)}
	r := &Runner{
		options:  options,
		scanner:  discovery.NewNetworkScanner(common.NewTopology(), parser),
		probers:  probers,
		reported: discovery.NewReportedSet(discovery.DefaultReportedSize, options.CacheTTL),
		onHit:    printAddress,
	}

	if options.Output != "" {
		output, err := os.Create(options.Output)
		if err != nil {
			closeProbers(probers)
			return nil, errorutil.NewWithErr(err).Msgf("could not create output file %s", options.Output)
		}
		r.output = output
		r.recorder = scanlog.NewRecorder(output, scanlog.NewScanContext(""))
	}
	return r, nil
}

// Run initializes the scanner once, then runs every prober for the requested
// number of rounds. Each live address is printed the first time it is found.
// Reported addresses are skipped by later passes until their entry expires,
// so each pass can find up to MaxResults new hosts.
func (r *Runner) Run(ctx context.Context) error {
	cfg, err := r.options.scanConfiguration()
	if err != nil {
		return errorutil.NewWithErr(err).Msgf("could not load scan configuration")
	}
	if err := r.scanner.Initialize(ctx, cfg); err != nil {
		return errorutil.NewWithErr(err).Msgf("could not initialize network scanner")
	}

	ranges := r.scanner.Ranges()
	gologger.Info().Msgf("Scanning %d ranges from %d local addresses", len(ranges), len(r.scanner.LocalAddresses()))
	for _, rng := range ranges {
		gologger.Verbose().Msgf("Range: %s", rng)
	}

	for round := 1; round <= r.options.Rounds; round++ {
		if r.options.Rounds > 1 {
			gologger.Info().Msgf("Starting discovery round %d/%d", round, r.options.Rounds)
		}
		for _, p := range r.probers {
			if ctx.Err() != nil {
				gologger.Warning().Msgf("Discovery interrupted, %d live hosts found", len(r.live))
				return nil
			}
			if err := r.discover(ctx, p); err != nil {
				return err
			}
		}
	}

	gologger.Info().Msgf("Found %d live hosts", len(r.live))
	return nil
}

// discover runs a single pass of p over the resolved ranges
func (r *Runner) discover(ctx context.Context, p namedProber) error {
	var onEvent func(types.ScanEvent)
	if r.recorder != nil {
		onEvent = r.recorder.Observer(p.name)
	}

	results, err := r.scanner.Discover(ctx, r.reported.Filter(p.prober), r.options.discoveryOptions(onEvent))
	if err != nil {
		return errorutil.NewWithErr(err).Msgf("could not run %s discovery", p.name)
	}

	found := 0
	for addr := range results {
		found++
		if !r.reported.Add(addr) {
			continue
		}
		r.live = append(r.live, addr)
		r.onHit(addr)
	}
	gologger.Verbose().Msgf("%s discovery found %d live hosts", p.name, found)
	return nil
}

// Live returns the addresses found so far, in discovery order
func (r *Runner) Live() []netip.Addr {
	return r.live
}

// Close releases the probers and flushes the event log
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		closeProbers(r.probers)
		if r.recorder != nil {
			r.recorder.Close()
		}
		if r.output != nil {
			if err := r.output.Close(); err != nil {
				gologger.Error().Msgf("Could not close output file: %s", err)
			}
		}
	})
}

func printAddress(addr netip.Addr) {
	gologger.Silent().Msgf("%s", addr)
}
