package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runCat(ctx context.Context, args []string) error {
	if err := requireArgs(args, 1, "cat <doc>"); err != nil {
		return err
	}
	h, err := c.openDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	c.io.Println(h.Text())
	return nil
}

func (c *Cli) runInsert(ctx context.Context, args []string) error {
	if err := requireArgs(args, 3, "insert <doc> <pos> <text>"); err != nil {
		return err
	}
	pos, err := parseCount("pos", args[1])
	if err != nil {
		return err
	}

	h, err := c.openDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	if err := h.Insert(pos, args[2]); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	c.io.Printf("✓ Inserted %d character(s) at %d\n", len([]rune(args[2])), pos)
	return nil
}
