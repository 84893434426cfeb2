// Command fetch queries the quote providers once and prints the result.
//
//	fetch quotes --source chain --json
//	fetch market
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
