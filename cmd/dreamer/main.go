// Command dreamer runs a Dreamer agent in the terminal.
//
//	dreamer chat                       # interactive session
//	dreamer chat -m "remember milk"    # one-shot message
//	dreamer memories search milk       # inspect the knowledge base
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
