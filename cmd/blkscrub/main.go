// Command blkscrub overwrites unallocated space on a mounted-offline
// ext2/3/4 drive image, or reports the free/used byte map without
// writing.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
