// Package main is the entry point for scrapectl.
// scrapectl is the terminal front end for a scrapedesk backend.
package main

import (
	"os"

	"scrapedesk/cmd/scrapectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
