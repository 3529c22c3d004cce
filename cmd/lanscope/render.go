package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"lanscope/internal/domain"
)

var (
	highConfidence = color.New(color.FgGreen).SprintFunc()
	midConfidence  = color.New(color.FgYellow).SprintFunc()
	lowConfidence  = color.New(color.FgRed).SprintFunc()
	dim            = color.New(color.Faint).SprintFunc()
	heading        = color.New(color.Bold).SprintFunc()
)

// confidenceColor picks a color band: 70+ green, 40+ yellow, else red
func confidenceColor(confidence int) func(a ...interface{}) string {
	switch {
	case confidence >= 70:
		return highConfidence
	case confidence >= 40:
		return midConfidence
	default:
		return lowConfidence
	}
}

func renderSweep(w io.Writer, sweep *domain.Sweep) {
	fmt.Fprintf(w, "%s %s  %s\n",
		heading("Sweep"), sweep.Target,
		dim(fmt.Sprintf("%d hosts in %v", len(sweep.Hosts), sweep.Duration().Round(time.Millisecond))))

	if len(sweep.Hosts) == 0 {
		fmt.Fprintln(w, dim("  no hosts found"))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  IP\tMAC\tCLASSIFICATION\tCONFIDENCE\tSOURCE\tHOSTNAME")
	for _, h := range sweep.Hosts {
		source := "probe"
		if h.Cached {
			source = "cache"
		}
		paint := confidenceColor(h.Confidence)
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			h.IP, h.MAC, h.Classification,
			paint(fmt.Sprintf("%3d%%", h.Confidence)),
			dim(source), h.Hostname)
	}
	tw.Flush()
}

func renderRecords(w io.Writer, records map[string]domain.CacheRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, dim("cache is empty"))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MAC\tIP\tCLASSIFICATION\tCONFIDENCE\tLAST SEEN")
	for _, mac := range sortedKeys(records) {
		rec := records[mac]
		paint := confidenceColor(rec.Confidence)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			mac, rec.IP, rec.Classification,
			paint(fmt.Sprintf("%3d%%", rec.Confidence)),
			rec.LastSeen.Local().Format(time.DateTime))
	}
	tw.Flush()
}
