// cafehubctl talks to the café backend from a terminal: list, inspect and
// delete records, upload files and link products to sign-language videos.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
