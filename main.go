package main

import (
	"os"

	"github.com/pricheal/refreshkeys/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
