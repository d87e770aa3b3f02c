package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/expirywatch/expirybot/internal/bot"
)

// console feeds stdin lines to the bot router as messages from the
// operator. It is the dry-run transport: a real deployment replaces it
// with a chat transport adapter. A trailing backslash continues a
// message onto the next line, which is how multi-line input (license
// details, bulk hostnames) is entered.
type console struct {
	bot        *bot.Bot
	operatorID int64
	in         io.Reader
	log        zerolog.Logger
}

// Run reads messages until stdin closes or the context is cancelled.
func (c *console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	var pending []string

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if trimmed := strings.TrimSuffix(line, "\\"); trimmed != line {
			pending = append(pending, trimmed)
			continue
		}
		pending = append(pending, line)
		text := strings.Join(pending, "\n")
		pending = nil

		c.bot.HandleMessage(ctx, bot.Message{
			ChatID:    c.operatorID,
			UserID:    c.operatorID,
			Username:  "console",
			FirstName: "Console",
			Text:      text,
		})
	}
	if err := scanner.Err(); err != nil {
		c.log.Error().Err(err).Msg("console input closed")
	}
}
