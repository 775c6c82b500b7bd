// Command pktindex indexes FidoNet .PKT files into SQLite and reports on
// echomail traffic.
//
// Usage:
//
//	pktindex <command> [options]
//
// Commands are index, watch, report, top, check and view. Run
// "pktindex help" for the full list.
package main

import (
	"fmt"
	"os"

	"github.com/stlalpha/pktindex/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage("")
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "--version" || cmd == "-version" || cmd == "version" {
		fmt.Println(version.String())
		return
	}
	if cmd == "--help" || cmd == "-h" || cmd == "help" {
		printUsage("")
		return
	}

	var err error
	switch cmd {
	case "index":
		err = cmdIndex(os.Args[2:])
	case "watch":
		err = cmdWatch(os.Args[2:])
	case "report":
		err = cmdReport(os.Args[2:])
	case "top":
		err = cmdTop(os.Args[2:])
	case "check":
		err = cmdCheck(os.Args[2:])
	case "view":
		err = cmdView(os.Args[2:])
	default:
		printUsage(fmt.Sprintf("Unknown command: %s", cmd))
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

const (
	clrReset   = "\033[0m"
	clrCyan    = "\033[36m"
	clrMagenta = "\033[35m"
	clrBold    = "\033[1m"
	separator  = "────────────────────────────────────────────────────────────────────────────"
)

func printHeader() {
	fmt.Fprintf(os.Stderr, "%sFTN Packet Indexer v%s%s\n", clrBold, version.Number, clrReset)
	fmt.Fprintln(os.Stderr, separator)
}

func bullet(msg string) string {
	return fmt.Sprintf("%s■%s  %s%s%s", clrMagenta, clrReset, clrCyan, msg, clrReset)
}

func usageCmd(name, desc string) string {
	return fmt.Sprintf("  %s%-10s%s - %s%s%s", clrCyan, name, clrReset, clrCyan, desc, clrReset)
}

func usageOpt(flag, desc string) string {
	return fmt.Sprintf("  %s%-18s%s %s%s%s", clrCyan, flag, clrReset, clrCyan, desc, clrReset)
}

func printUsage(errMsg string) {
	w := os.Stderr
	printHeader()
	fmt.Fprintln(w)
	if errMsg != "" {
		fmt.Fprintln(w, bullet(errMsg))
	}
	fmt.Fprintln(w, bullet("Required Format: pktindex <command> [options]"))
	fmt.Fprintln(w, bullet("Valid Commands Are As Follows..."))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %sIndexing Commands:%s\n", clrBold, clrReset)
	fmt.Fprintln(w, usageCmd("INDEX", "Parse .PKT files and bundles once and store message metadata"))
	fmt.Fprintln(w, usageCmd("WATCH", "Index on inbound changes, a poll interval or a cron schedule"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %sReport Commands:%s\n", clrBold, clrReset)
	fmt.Fprintln(w, usageCmd("REPORT", "Per-area message counts by day or season month"))
	fmt.Fprintln(w, usageCmd("TOP", "Top posters, subjects and sizes for one area"))
	fmt.Fprintln(w, usageCmd("VIEW", "Show a report or top list in a scrollable pager"))
	fmt.Fprintln(w, usageCmd("CHECK", "Inspect the database schema and sample rows"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %sGlobal Options:%s\n", clrBold, clrReset)
	fmt.Fprintln(w, usageOpt("--config FILE", "Config file, JSON or YAML (default: pktindex.json)"))
	fmt.Fprintln(w, usageOpt("--db FILE", "SQLite database (default: pkt_index.db)"))
	fmt.Fprintln(w, usageOpt("--debug", "Enable debug logging (or DEBUG=1)"))
	fmt.Fprintln(w, usageOpt("--version", "Print the version and exit"))
	fmt.Fprintln(w)
}
