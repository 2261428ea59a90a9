package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// ErrorResponse is the JSON shape of a failed command
type ErrorResponse struct {
	Error string `json:"error"`
}

// outputJSON writes a value as indented JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError reports an error in the selected output mode and exits.
func exitWithError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		_ = outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(1)
}

func formatOptional(v *float64, suffix string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%s", *v, suffix)
}
