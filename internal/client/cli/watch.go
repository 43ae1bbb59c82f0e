package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/iudanet/flowsync/internal/models"
)

// runWatch печатает каждую версию текста, смену участников и состояния
// соединения до отмены ctx или закрытия сессии.
func (c *Cli) runWatch(ctx context.Context, args []string) error {
	if err := requireArgs(args, 1, "watch <doc>"); err != nil {
		return err
	}
	h, err := c.openDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	texts := h.SubscribeText()
	defer texts.Unsubscribe()
	peers := h.SubscribePeers()
	defer peers.Unsubscribe()
	statuses := h.SubscribeStatus()
	defer statuses.Unsubscribe()

	c.io.Printf("Watching %s, press Ctrl+C to stop\n", h.DocumentID())
	for {
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-texts.C:
			if !ok {
				return h.Err()
			}
			c.io.Printf("--- text (%d) ---\n%s\n", len([]rune(text)), text)
		case list, ok := <-peers.C:
			if !ok {
				return h.Err()
			}
			c.io.Printf("--- peers: %s\n", formatPeers(list))
		case st, ok := <-statuses.C:
			if !ok {
				return h.Err()
			}
			if st.Err != nil {
				c.io.Printf("--- connection: %s (%v)\n", st.State, st.Err)
			} else {
				c.io.Printf("--- connection: %s\n", st.State)
			}
		}
	}
}

func formatPeers(peers []models.Peer) string {
	if len(peers) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(peers))
	for _, p := range peers {
		name := p.Presence.Name
		if name == "" {
			name = p.Replica
		}
		if p.Local {
			name += " (you)"
		}
		if p.Presence.Cursor != nil {
			name += " @" + cursorString(p.Presence.Cursor)
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

func cursorString(c *models.Cursor) string {
	if c.Anchor == c.Head {
		return strconv.Itoa(c.Head)
	}
	return strconv.Itoa(c.Anchor) + ":" + strconv.Itoa(c.Head)
}
