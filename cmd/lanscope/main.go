package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

const usage = `lanscope discovers devices on a LAN and classifies them.

Usage:
  lanscope scan    [flags]         sweep once and print results
  lanscope watch   [flags]         sweep on an interval until interrupted
  lanscope serve   [flags]         sweep on an interval and serve the HTTP API
  lanscope cache   list|export|import [flags]
  lanscope history -mac MAC [flags]

Run "lanscope <command> -h" for command flags.
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "scan":
		err = runScan(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "cache":
		err = runCache(ctx, args)
	case "history":
		err = runHistory(ctx, args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		color.Red("lanscope: %v", err)
		os.Exit(1)
	}
}
