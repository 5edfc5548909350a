package main

import (
	"fmt"
	"os"

	uierrs "github.com/cppforlife/go-cli-ui/errors"
)

func main() {
	cmd := NewGovgenCmd(NewGovgenOptions(os.Stdout, os.Stderr))

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "govgen: Error: %s\n", uierrs.NewMultiLineError(err))
		os.Exit(1)
	}
}
