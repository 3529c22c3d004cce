// Package domain defines the value types shared by the lanscope classifier.
//
// This package contains the records that move between discovery, the
// classification engine and the persistent cache.
//
// # Core Types
//
// DiscoveredHost is one (IP, MAC) pair reported by a host-discovery sweep,
// optionally enriched with a hostname.
//
// CacheRecord is the persisted classification for one MAC address. Its
// confidence is always clamped to [0,100].
//
// ClassifiedHost is the per-host output of a sweep, handed to whatever
// renders or exports the results.
//
// ProbeResult is the explicit outcome of a port probe: either a set of open
// ports or the error that prevented the probe from completing.
//
// # Addresses
//
// MAC addresses are keyed in uppercase colon-separated form
// (B8:27:EB:11:22:33). IPs are dotted-quad IPv4 strings. ValidateMAC and
// ValidateIP enforce those shapes at the classifier boundary.
//
// # Design Principles
//
// - Plain value types, no persistence or network dependencies
// - Validation lives next to the types it protects
package domain
