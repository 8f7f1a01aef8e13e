// Command searchserver runs the in-memory TF-IDF search server and offers
// one-shot query tools over a YAML corpus.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/cmd/searchserver/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
