package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if err := requireArgs(args, 3, "delete <doc> <pos> <length>"); err != nil {
		return err
	}
	pos, err := parseCount("pos", args[1])
	if err != nil {
		return err
	}
	length, err := parseCount("length", args[2])
	if err != nil {
		return err
	}

	h, err := c.openDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	if err := h.Delete(pos, length); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	c.io.Printf("✓ Deleted %d character(s) at %d\n", length, pos)
	return nil
}
