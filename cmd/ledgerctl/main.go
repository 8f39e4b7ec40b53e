// ledgerctl is the operator CLI for the epistemic ledger.
//
// Usage:
//
//	ledgerctl migrate [--dir=migrations]
//	ledgerctl recompute <factId>
//	ledgerctl similar <argumentId> [--limit=10] [--min=0]
//	ledgerctl effectiveness <noteId>
//	ledgerctl version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
