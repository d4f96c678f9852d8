// Command ffigen writes C and C# headers for the geometry boundary,
// optionally extended with type definitions from a WIT JSON package.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
