// Package discovery finds wgdyn servers on the local network over mDNS and
// lets a server announce itself.
//
// Servers register the "_wgdynamic._tcp" service type with a "version" TXT
// record carrying the protocol version they speak.
//
// # Usage Example
//
//	// Server side
//	adv, err := discovery.Advertise("wgdyn on wg0", 970, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adv.Shutdown()
//
//	// Client side
//	endpoints, err := discovery.NewScanner().Scan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, ep := range endpoints {
//	    fmt.Println(ep)
//	}
//
// Scan waits for the scanner's Timeout; First returns as soon as any server
// answers.
package discovery
