package main

import (
	"os"

	arstorecmder "github.com/ravenoak/autoresearch-sub001/cmd/arstore"
)

func main() {
	cmd := arstorecmder.NewArstoreCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
