// Package adapter implements the network capabilities lanscope consumes.
//
// The classifier never scans the network itself. It calls a Discoverer to
// learn which (IP, MAC) pairs are live in a target range and a Prober to
// learn which ports a host has open. This package provides those.
//
// # Discoverers
//
// NmapScanner runs an nmap ping scan (-sn). On a local segment nmap resolves
// hardware addresses through ARP, so each live host comes back with its MAC.
// Requires the nmap binary and, for MAC resolution, raw socket privileges.
//
// ARPDiscoverer sends ARP requests on a named interface using
// github.com/mdlayher/arp and collects replies for a fixed window. Linux only.
//
// MDNSEnricher wraps another Discoverer and fills in hostnames from a
// multicast DNS query.
//
// # Probers
//
// NmapScanner probes with nmap fast mode (-F, the top 100 ports) under a
// host timeout.
//
// TCPProber connects to a fixed port list with a bounded worker pool. It
// needs no external binary or privileges and serves as the fallback.
//
// # Failure model
//
// Probers never return errors directly: they hand back a domain.ProbeResult
// whose Err field explains what went wrong, and the classifier decides what
// a failed probe means. Discoverers return errors; the sweep orchestrator
// logs them and treats the sweep as having found nothing.
package adapter
