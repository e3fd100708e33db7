// cqlc compiles Chess Query Language queries and prints their parse tree
// and resolved definitions.
package main

import (
	"fmt"
	"os"
)

const programVersion = "0.1.0"

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cqlc: %v\n", err)
		os.Exit(1)
	}
}
