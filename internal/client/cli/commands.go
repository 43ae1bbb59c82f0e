package cli

import (
	"context"
	"fmt"
)

// Run выполняет команду.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.runLogin(ctx, args)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "documents":
		return c.runDocuments(ctx)
	case "info":
		return c.runInfo(ctx, args)
	case "cat":
		return c.runCat(ctx, args)
	case "insert":
		return c.runInsert(ctx, args)
	case "delete":
		return c.runDelete(ctx, args)
	case "watch":
		return c.runWatch(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, command)
	}
}
