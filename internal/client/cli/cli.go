// Package cli команды клиента: вход по токену, просмотр и правка
// документов, наблюдение за документом в реальном времени.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/flowsync/internal/client/iocli"
	"github.com/iudanet/flowsync/internal/client/session"
	"github.com/iudanet/flowsync/internal/client/transport"
)

// EnvToken переменная окружения с токеном доступа для login.
const EnvToken = "FLOWSYNC_TOKEN"

// DefaultSyncTimeout сколько команда ждет синхронизации с сервером,
// прежде чем работать с локальной копией.
const DefaultSyncTimeout = 5 * time.Second

// ErrUsage неверные аргументы команды.
var ErrUsage = errors.New("invalid usage")

type Cli struct {
	io          iocli.IO
	authService AuthService
	apiClient   APIClient
	documents   Documents
	store       LocalStore
	serverURL   string
	syncTimeout time.Duration
}

func New(io iocli.IO, authService AuthService, apiClient APIClient, documents Documents,
	store LocalStore, serverURL string) *Cli {
	return &Cli{
		io:          io,
		authService: authService,
		apiClient:   apiClient,
		documents:   documents,
		store:       store,
		serverURL:   serverURL,
		syncTimeout: DefaultSyncTimeout,
	}
}

// SetSyncTimeout меняет время ожидания синхронизации.
func (c *Cli) SetSyncTimeout(d time.Duration) {
	c.syncTimeout = d
}

// openDocument открывает документ и ждет синхронизации не дольше syncTimeout.
// Без соединения команда продолжает с локальной копией.
func (c *Cli) openDocument(ctx context.Context, ref string) (*session.Handle, error) {
	id := documentRef(ref)
	h, err := c.documents.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", id, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.syncTimeout)
	defer cancel()
	switch err := h.WaitSynced(waitCtx); {
	case err == nil:
	case errors.Is(err, transport.ErrAuthExpired):
		c.io.Println("⚠️  Not authenticated, working with the local copy. Run 'flowsync login'.")
	case errors.Is(err, context.DeadlineExceeded):
		c.io.Println("⚠️  Server unreachable, working with the local copy.")
	default:
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

// documentRef принимает идентификатор документа или пару session/file.
func documentRef(ref string) string {
	if sessionID, fileID, ok := strings.Cut(ref, "/"); ok {
		return session.DocumentID(sessionID, fileID)
	}
	return ref
}

func PrintUsage() {
	fmt.Println("FlowSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  flowsync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version                 Show version information")
	fmt.Println("  --config PATH             Path to YAML config file")
	fmt.Println("  --server URL              Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH                 Path to local database (default: flowsync-client.db)")
	fmt.Println()
	fmt.Println("Documents are addressed by id or as <session>/<file>.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login [-token T] [-name N]      Save an access token (prompted if omitted)")
	fmt.Println("  logout                          Delete the saved token")
	fmt.Println("  status                          Show authentication and server status")
	fmt.Println("  documents                       List documents stored locally")
	fmt.Println("  info <doc>                      Show room members on the server")
	fmt.Println("  cat <doc>                       Print document text")
	fmt.Println("  insert <doc> <pos> <text>       Insert text at position")
	fmt.Println("  delete <doc> <pos> <length>     Delete characters")
	fmt.Println("  watch <doc>                     Follow text and participants until Ctrl+C")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  flowsync-server token -subject alice | flowsync login")
	fmt.Println("  export " + EnvToken + "=eyJhbGciOi...")
	fmt.Println("  flowsync login -name Alice")
	fmt.Println("  flowsync insert s1/main.go 0 'hello'")
	fmt.Println("  flowsync watch s1/main.go")
	fmt.Println()
	fmt.Println("Token source priority: -token, " + EnvToken + ", interactive prompt.")
}
