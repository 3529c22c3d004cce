package domain

import "sort"

// ProbeResult is the outcome of a port probe against one host.
// A zero Err means the probe completed; Ports may still be empty.
type ProbeResult struct {
	Ports []int
	Err   error
}

// ProbeOK builds a successful result
func ProbeOK(ports ...int) ProbeResult {
	sorted := append([]int(nil), ports...)
	sort.Ints(sorted)
	return ProbeResult{Ports: sorted}
}

// ProbeFailed builds a failed result
func ProbeFailed(err error) ProbeResult {
	return ProbeResult{Err: err}
}

// OK reports whether the probe completed
func (r ProbeResult) OK() bool {
	return r.Err == nil
}

// Has reports whether port was seen open
func (r ProbeResult) Has(port int) bool {
	for _, p := range r.Ports {
		if p == port {
			return true
		}
	}
	return false
}
