// Command tkexport extracts a date-bounded, referentially closed subset of a
// timekeeping database into a table store and per-table files, and runs the
// follow-up steps (SQL transformations, CSV validation, inspection) against
// finished exports.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
