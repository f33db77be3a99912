package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/avvvet/companion-chat/internal/characters"
	"github.com/avvvet/companion-chat/internal/chat"
	"github.com/avvvet/companion-chat/internal/models"
)

const consoleHelp = `commands:
  /history          show the conversation
  /summary          show the rolling summary
  /clear            start the conversation over
  /characters       list characters
  /switch <id>      talk to another character
  /quit             leave`

// Console is an interactive terminal chat over the orchestrator
type Console struct {
	orch      *chat.Orchestrator
	catalogue *characters.Catalogue
	out       io.Writer
	character *characters.Character
}

func NewConsole(a *App, characterID string, out io.Writer) (*Console, error) {
	character, err := a.Catalogue.Get(characterID)
	if err != nil {
		return nil, err
	}
	return &Console{
		orch:      a.Orchestrator,
		catalogue: a.Catalogue,
		out:       out,
		character: character,
	}, nil
}

// Run reads lines from in until EOF or /quit
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	if err := c.open(ctx); err != nil {
		return err
	}

	s := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "you> ")
		if !s.Scan() {
			break
		}
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := c.command(ctx, line)
			if err != nil {
				fmt.Fprintf(c.out, "⚠️ %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		_, reply, err := c.orch.Send(ctx, c.character.ID, line)
		if err != nil {
			fmt.Fprintf(c.out, "⚠️ %v\n", err)
			continue
		}
		if reply != nil {
			c.printMessage(*reply)
		}
	}
	fmt.Fprintln(c.out)
	return s.Err()
}

func (c *Console) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(c.out, consoleHelp)
	case "/history":
		messages, err := c.orch.History(ctx, c.character.ID)
		if err != nil {
			return false, err
		}
		c.printMessages(messages)
	case "/summary":
		summary, err := c.orch.Summary(ctx, c.character.ID)
		if err != nil {
			return false, err
		}
		if summary == nil {
			fmt.Fprintln(c.out, "📝 no summary yet")
		} else {
			fmt.Fprintf(c.out, "📝 %s\n", summary.Summary)
		}
	case "/clear":
		messages, err := c.orch.Clear(ctx, c.character.ID)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, "🗑️ conversation cleared")
		c.printMessages(messages)
	case "/characters":
		for _, ch := range c.catalogue.List() {
			marker := " "
			if ch.ID == c.character.ID {
				marker = "*"
			}
			fmt.Fprintf(c.out, "%s %s (%s): %s\n", marker, ch.ID, ch.Name, ch.Description)
		}
	case "/switch":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /switch <id>")
		}
		character, err := c.catalogue.Get(fields[1])
		if err != nil {
			return false, err
		}
		c.character = character
		return false, c.open(ctx)
	default:
		return false, fmt.Errorf("unknown command %s, try /help", fields[0])
	}
	return false, nil
}

func (c *Console) open(ctx context.Context) error {
	messages, err := c.orch.Open(ctx, c.character.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "💬 chatting with %s\n", c.character.Name)
	c.printMessages(messages)
	return nil
}

func (c *Console) printMessages(messages []models.Message) {
	for _, m := range messages {
		c.printMessage(m)
	}
}

func (c *Console) printMessage(m models.Message) {
	speaker := "you"
	if m.Sender == models.SenderCharacter {
		speaker = c.character.Name
	}
	fmt.Fprintf(c.out, "%s> %s\n", speaker, m.Text)
}
