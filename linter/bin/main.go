// Copyright 2017-2020, Square, Inc.

package main

import (
	"fmt"
	"os"

	"github.com/square/jsl/linter"
	"github.com/square/jsl/linter/app"
)

func main() {
	if err := linter.Run(app.Defaults(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
