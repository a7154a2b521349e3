package main

import (
	"os"

	"github.com/Doomsbay/QCKit/qckit/cmd"
)

func main() {
	cmd.Execute(os.Args[1:])
}
