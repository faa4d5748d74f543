// Command traject is the document workflow engine CLI. It installs workflow
// spec documents, starts instances on documents, and advances, cancels, and
// joins their courses.
package main

import (
	"os"

	"github.com/AbdelazizMoustafa10m/traject/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
