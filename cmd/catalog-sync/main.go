// Package main is the entry point of catalog-sync.
package main

import (
	"os"

	"github.com/opendata-sync/catalog-sync/cmd/catalog-sync/app"
)

func main() {
	if err := app.Execute(app.NewRootCmd()); err != nil {
		os.Exit(1)
	}
}
