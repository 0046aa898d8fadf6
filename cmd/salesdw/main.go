// Command salesdw loads the customer, product and sale extracts into the
// sales warehouse.
package main

import (
	"os"

	"salesdw/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
