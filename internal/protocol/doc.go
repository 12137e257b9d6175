// Package protocol implements the wgdyn lease protocol message layer.
//
// The protocol is line oriented text carried over a stream socket. A message
// is a command line, any number of attribute lines and a blank terminator:
//
//	request=1\n
//	ipv4=192.168.1.5/32\n
//	leasetime=3600\n
//	\n
//
// # Parsing
//
// Request accumulates a message from chunks of any size. A line split across
// two chunks is held back and joined with the next chunk, so feeding a message
// in one piece or in many gives the same result:
//
//	var req protocol.Request
//	status, err := req.Feed(chunk)
//	switch {
//	case err != nil:
//	    // protocol error, see protocol.CodeOf(err)
//	case status == protocol.Complete:
//	    // req.Command, req.Version and req.Attrs are populated
//	}
//
// Lines are bounded by MaxLineSize. Commands are only accepted on the first
// line and attributes only after it; the only supported version is 1.
//
// # Attributes
//
//	ipv4        dotted quad "/" prefix length, empty for none
//	ipv6        colon hex "/" prefix length, empty for none
//	leasestart  unsigned 32-bit seconds since the epoch
//	leasetime   unsigned 32-bit seconds
//	errno       unsigned 32-bit error code (see Code)
//	errmsg      text, truncated to 71 bytes
//
// # Serialization
//
// MessageBuffer appends lines to a fixed-capacity buffer and panics on
// overflow. EncodeResponse and EncodeError build complete replies.
//
// # Thread Safety
//
// A Request belongs to one connection and must not be shared. The key table
// is immutable and safe for concurrent use.
package protocol
