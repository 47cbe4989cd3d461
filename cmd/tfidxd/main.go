// Package main provides the entry point for the tfidxd CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jtsearch/tfidxd/cmd/tfidxd/cmd"
	"github.com/jtsearch/tfidxd/internal/apperrors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var aerr *apperrors.AppError
		if errors.As(err, &aerr) {
			fmt.Fprintf(os.Stderr, "tfidxd: [%s] %s\n", aerr.Code, aerr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "tfidxd: %s\n", err)
		}
		os.Exit(1)
	}
}
