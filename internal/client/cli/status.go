package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/flowsync/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	health, err := c.apiClient.Health(ctx)
	if err != nil {
		c.io.Printf("Server: %s (unreachable: %v)\n", c.serverURL, err)
	} else {
		c.io.Printf("Server: %s (%s, version %s, %d room(s) loaded)\n",
			c.serverURL, health.Status, health.Version, health.Rooms)
	}
	if replica, err := c.store.ReplicaID(ctx); err != nil {
		c.io.Printf("Replica: unknown (%v)\n", err)
	} else {
		c.io.Printf("Replica: %s\n", replica)
	}

	authData, err := c.authService.Current(ctx)
	if errors.Is(err, storage.ErrAuthNotFound) {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'flowsync login' to authenticate.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	c.io.Println("Status: Authenticated")
	c.io.Printf("Name: %s\n", authData.Name)
	if authData.ServerURL != "" && authData.ServerURL != c.serverURL {
		c.io.Printf("⚠️  Token was issued for %s\n", authData.ServerURL)
	}
	if authData.ExpiresAt == 0 {
		return nil
	}

	expiresAt := time.Unix(authData.ExpiresAt, 0)
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
	if remaining := time.Until(expiresAt); remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("⚠️  Token has expired. Please login again.")
	}
	return nil
}
