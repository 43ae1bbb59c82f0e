package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runDocuments(ctx context.Context) error {
	ids, err := c.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	c.io.Println("=== Local Documents ===")
	if len(ids) == 0 {
		c.io.Println("No documents found.")
		return nil
	}
	for _, id := range ids {
		pending, err := c.store.PendingUpdates(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to read pending updates of %s: %w", id, err)
		}
		if len(pending) > 0 {
			c.io.Printf("%s (%d unsynced change(s))\n", id, len(pending))
		} else {
			c.io.Printf("%s\n", id)
		}
	}
	return nil
}

func (c *Cli) runInfo(ctx context.Context, args []string) error {
	if err := requireArgs(args, 1, "info <doc>"); err != nil {
		return err
	}
	id := documentRef(args[0])

	token, err := c.authService.Token(ctx)
	if err != nil {
		return err
	}
	info, err := c.apiClient.Room(ctx, token, id)
	if err != nil {
		return err
	}

	c.io.Printf("=== %s ===\n", info.Room)
	c.io.Printf("Length: %d\n", info.TextLength)
	c.io.Printf("Loaded: %t\n", info.Loaded)
	c.io.Printf("Members: %d\n", len(info.Members))
	for _, m := range info.Members {
		name := m.Name
		if name == "" {
			name = m.Subject
		}
		c.io.Printf("  %s (%s)\n", name, m.Replica)
	}
	return nil
}
