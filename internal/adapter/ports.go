package adapter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FastPorts is the connect-probe port list. It covers the services that
// separate routers, dev boards and IoT gear from ordinary clients.
var FastPorts = []int{
	21, 22, 23, 53, 80, 81, 139, 443, 445, 554, 1883, 1900,
	3000, 3389, 5000, 5353, 5683, 8000, 8008, 8080, 8081, 8443, 8883, 9100,
}

// ParsePortSpec expands a port specification into a sorted, de-duplicated
// list. Supported: "80,443,8080" or "1-1000" or "22,80-443,8080".
func ParsePortSpec(spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("empty port specification")
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "-") {
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid port range: %s", part)
			}
			start, err := parsePort(rangeParts[0])
			if err != nil {
				return nil, err
			}
			end, err := parsePort(rangeParts[1])
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, fmt.Errorf("invalid port range: %s", part)
			}
			for p := start; p <= end; p++ {
				seen[p] = true
			}
			continue
		}
		port, err := parsePort(part)
		if err != nil {
			return nil, err
		}
		seen[port] = true
	}

	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port number: %s", s)
	}
	return port, nil
}
