// kpipe templates and patches Kubernetes manifests for workshop clusters.
package main

import (
	"os"

	"github.com/lburgazzoli/kpipe/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
