package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"roadlens/internal/models"
)

func requireAtLeastArgs(min int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < min {
			return errors.New(message)
		}
		return nil
	}
}

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

// requireUploadFiles checks the batch size locally so an oversized batch never
// reaches the server.
func requireUploadFiles(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("at least one photo file is required")
	}
	if len(args) > models.MaxPhotosPerReport {
		return fmt.Errorf("at most %d photos can be uploaded in one batch, got %d", models.MaxPhotosPerReport, len(args))
	}
	return nil
}

func parsePositiveInt(name, raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return value, nil
}
