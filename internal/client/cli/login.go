package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.io)
	tokenFlag := fs.String("token", "", "Access token (not recommended, use env var or prompt)")
	name := fs.String("name", "", "Display name shown to other participants")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	c.io.Println("=== Login ===")

	token, err := c.readToken(*tokenFlag)
	if err != nil {
		return err
	}

	c.io.Println("Verifying token...")
	authData, err := c.authService.Login(ctx, c.serverURL, token, *name)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Server: %s\n", authData.ServerURL)
	c.io.Printf("Name: %s\n", authData.Name)
	if authData.ExpiresAt > 0 {
		c.io.Printf("Token expires: %s\n", time.Unix(authData.ExpiresAt, 0).Format(time.RFC3339))
	}
	return nil
}

// readToken берет токен из флага, окружения или запрашивает без эха.
func (c *Cli) readToken(fromArgs string) (string, error) {
	if fromArgs != "" {
		return fromArgs, nil
	}
	if env := os.Getenv(EnvToken); env != "" {
		return env, nil
	}

	token, err := c.io.ReadPassword("Access token: ")
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return token, nil
}
