// Package discovery finds live hosts to act on.
//
// Discovery happens in two steps:
//   - Initialize resolves the ranges to scan once, from the explicit subnet list,
//     the local interface subnets and the inaccessible subnet groups, and records
//     the machine's own addresses
//   - Discover walks the resolved ranges with a liveness Prober and yields live
//     addresses lazily, up to a cap, until the context is cancelled
//
// Example usage:
//
//	scanner := discovery.NewNetworkScanner(common.NewTopology(), nil)
//	if err := scanner.Initialize(ctx, cfg); err != nil {
//		return err
//	}
//	seq, err := scanner.Discover(ctx, prober, discovery.Options{MaxResults: 5})
//	if err != nil {
//		return err
//	}
//	for addr := range seq {
//		fmt.Println(addr)
//	}
//
// The walk is sequential and deterministic by default. With Concurrency above one,
// probes fan out over a worker pool; the cap stays exact but emission order follows
// probe completion.
package discovery
