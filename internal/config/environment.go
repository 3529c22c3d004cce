package config

import (
	"os"
	"os/exec"
)

// Environment describes what the current process is able to do on the
// network
type Environment struct {
	NmapPath     string // empty when nmap is not on PATH
	CanRawSocket bool   // ARP and nmap MAC resolution need raw sockets
}

// DetectEnvironment probes the host for nmap and raw socket privileges
func DetectEnvironment() Environment {
	env := Environment{CanRawSocket: os.Geteuid() == 0}
	if path, err := exec.LookPath("nmap"); err == nil {
		env.NmapPath = path
	}
	return env
}

// ResolveDiscoveryMethod turns MethodAuto into a concrete choice. nmap is
// preferred; ARP needs an interface name and raw sockets; with neither, nmap
// is still returned and the sweep will report the failure.
func (c *Config) ResolveDiscoveryMethod(env Environment) Method {
	if c.Discovery.Method != MethodAuto {
		return c.Discovery.Method
	}
	if env.NmapPath != "" {
		return MethodNmap
	}
	if env.CanRawSocket && c.Discovery.Interface != "" {
		return MethodARP
	}
	return MethodNmap
}

// ResolveProbeMethod turns MethodAuto into a concrete choice. nmap is used
// when installed, the TCP connect prober otherwise.
func (c *Config) ResolveProbeMethod(env Environment) Method {
	if c.Probe.Method != MethodAuto {
		return c.Probe.Method
	}
	if env.NmapPath != "" {
		return MethodNmap
	}
	return MethodTCP
}
