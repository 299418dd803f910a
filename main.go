package main

import (
	"fmt"
	"os"

	_ "github.com/tanpawarit/Chative-Telecom-Assistant/pkg/logger/autoload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
