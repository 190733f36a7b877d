package runner

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/projectdiscovery/hostsweep/pkg/discovery"
	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/tcpconnect"
	"github.com/projectdiscovery/hostsweep/pkg/types"
	"github.com/projectdiscovery/hostsweep/pkg/version"
	envutil "github.com/projectdiscovery/utils/env"
	errorutil "github.com/projectdiscovery/utils/errors"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

var (
	ConfigFileEnv  = envutil.GetEnvOrDefault("HOSTSWEEP_CONFIG", "")
	ProbersEnv     = envutil.GetEnvOrDefault("HOSTSWEEP_PROBERS", "icmp")
	MaxResultsEnv  = envutil.GetEnvOrDefault("HOSTSWEEP_MAX", "5")
	ConcurrencyEnv = envutil.GetEnvOrDefault("HOSTSWEEP_CONCURRENCY", "1")
	OutputEnv      = envutil.GetEnvOrDefault("HOSTSWEEP_OUTPUT", "")
)

const defaultMaxResults = 5

// Options contains the configuration options for a discovery run
type Options struct {
	ConfigFile       string
	Subnets          goflags.StringSlice
	LocalNetworkScan bool
	BlockedIPs       goflags.StringSlice
	OnInvalidRange   string
	Resolvers        goflags.StringSlice

	MaxResults     int
	Delay          time.Duration
	Concurrency    int
	PrescanPercent int
	Rounds         int

	Probers  goflags.StringSlice
	Ports    goflags.StringSlice
	Timeout  time.Duration
	CacheTTL time.Duration

	Output  string
	Silent  bool
	Verbose bool
	Debug   bool
	NoColor bool
	Version bool
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`hostsweep discovers live hosts on the networks around the machine it runs on`)

	defaultMax := defaultMaxResults
	if val, err := strconv.Atoi(MaxResultsEnv); err == nil {
		defaultMax = val
	}
	defaultConcurrency := 1
	if val, err := strconv.Atoi(ConcurrencyEnv); err == nil && val > 0 {
		defaultConcurrency = val
	}

	flagSet.CreateGroup("input", "Input",
		flagSet.StringVarP(&options.ConfigFile, "config", "cfg", ConfigFileEnv, "scan configuration file (yaml or json)"),
		flagSet.StringSliceVarP(&options.Subnets, "subnets", "s", nil, "ranges to scan (cidr, ip, interval, wildcard or hostname)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.BoolVarP(&options.LocalNetworkScan, "local", "l", false, "scan the subnets of the local interfaces"),
		flagSet.StringSliceVarP(&options.BlockedIPs, "blocked", "b", nil, "addresses or cidrs never to probe", goflags.CommaSeparatedStringSliceOptions),
		flagSet.StringVarP(&options.OnInvalidRange, "on-invalid-range", "oir", "", "what to do with a malformed range (abort, skip)"),
		flagSet.StringSliceVarP(&options.Resolvers, "resolvers", "r", nil, "dns resolvers for hostname ranges (host:port)", goflags.CommaSeparatedStringSliceOptions),
	)

	flagSet.CreateGroup("scan", "Scan",
		flagSet.IntVarP(&options.MaxResults, "max", "m", defaultMax, "maximum number of live hosts per discovery pass"),
		flagSet.DurationVarP(&options.Delay, "delay", "d", 0, "delay between probe attempts"),
		flagSet.IntVarP(&options.Concurrency, "concurrency", "c", defaultConcurrency, "number of addresses probed at a time"),
		flagSet.IntVarP(&options.PrescanPercent, "prescan", "ps", 0, "probe only the top percent of likely online addresses per block (1-100)"),
		flagSet.IntVar(&options.Rounds, "rounds", 1, "number of discovery rounds, each pass reports up to -max new hosts"),
	)

	flagSet.CreateGroup("probe", "Probe",
		flagSet.StringSliceVarP(&options.Probers, "probers", "p", strings.Split(ProbersEnv, ","), "liveness probers to run (icmp, tcp, arp, ndp)", goflags.NormalizedStringSliceOptions),
		flagSet.StringSliceVar(&options.Ports, "ports", nil, "tcp ports to connect to (e.g. 22,80,8000-8010)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.DurationVarP(&options.Timeout, "timeout", "t", 0, "timeout of a single probe request (0 uses the prober default)"),
		flagSet.DurationVarP(&options.CacheTTL, "cache-ttl", "ct", 0, "keep reported hosts out of later passes for this long (0 keeps them for the whole run)"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.StringVarP(&options.Output, "output", "o", OutputEnv, "file to write scan events to (jsonl)"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only live hosts in output"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Debug, "debug", false, "show debug output"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	options.configureOutput()

	showBanner()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if err := options.validate(); err != nil {
		gologger.Fatal().Msgf("Program exiting: %s\n", err)
	}

	return options
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.Debug {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}

func (options *Options) validate() error {
	if options.Concurrency < 1 {
		options.Concurrency = 1
	}
	if options.Rounds < 1 {
		options.Rounds = 1
	}
	if options.Delay < 0 {
		return errorutil.New("delay cannot be negative: %s", options.Delay)
	}
	if options.PrescanPercent < 0 || options.PrescanPercent > 100 {
		return errorutil.New("prescan percent must be between 0 and 100, got %d", options.PrescanPercent)
	}
	if _, err := options.proberTypes(); err != nil {
		return err
	}
	if _, err := tcpconnect.ParsePorts(options.Ports); err != nil {
		return err
	}
	policy := types.InvalidRangePolicy(strings.ToLower(options.OnInvalidRange))
	if policy != "" && policy != types.InvalidRangeAbort && policy != types.InvalidRangeSkip {
		return errorutil.New("unknown invalid range policy %q", options.OnInvalidRange)
	}
	return nil
}

// proberTypes returns the requested probers in order, without duplicates
func (options *Options) proberTypes() ([]types.ProberType, error) {
	var proberTypes []types.ProberType
	for _, name := range options.Probers {
		if strings.TrimSpace(name) == "" {
			continue
		}
		proberType, err := types.ParseProberType(name)
		if err != nil {
			return nil, err
		}
		proberTypes = append(proberTypes, proberType)
	}
	if len(proberTypes) == 0 {
		return nil, errorutil.New("no prober selected")
	}
	return sliceutil.Dedupe(proberTypes), nil
}

// scanConfiguration loads the configuration file, when given, and merges the
// command line values over it. List values are appended to the file's lists.
func (options *Options) scanConfiguration() (*types.ScanConfiguration, error) {
	cfg := &types.ScanConfiguration{}
	if options.ConfigFile != "" {
		loaded, err := types.LoadScanConfiguration(options.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.SubnetScanList = append(cfg.SubnetScanList, options.Subnets...)
	cfg.BlockedIPs = append(cfg.BlockedIPs, options.BlockedIPs...)
	if options.LocalNetworkScan {
		cfg.LocalNetworkScan = true
	}
	if options.OnInvalidRange != "" {
		cfg.OnInvalidRange = types.InvalidRangePolicy(strings.ToLower(options.OnInvalidRange))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.SubnetScanList) == 0 && !cfg.LocalNetworkScan && len(cfg.InaccessibleSubnetGroups) == 0 {
		gologger.Warning().Msgf("No subnets configured and local network scan disabled, nothing to scan")
	}
	return cfg, nil
}

// discoveryOptions returns the walk settings of one discovery pass
func (options *Options) discoveryOptions(onEvent func(types.ScanEvent)) discovery.Options {
	return discovery.Options{
		MaxResults:   options.MaxResults,
		Delay:        options.Delay,
		Concurrency:  options.Concurrency,
		PrescanRatio: float64(options.PrescanPercent) / 100,
		OnEvent:      onEvent,
	}
}
