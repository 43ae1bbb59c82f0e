package cli

import (
	"fmt"
	"strconv"
)

// parseCount разбирает неотрицательное целое аргумента name.
func parseCount(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", ErrUsage, name, value)
	}
	return n, nil
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("%w: usage: flowsync %s", ErrUsage, usage)
	}
	return nil
}
