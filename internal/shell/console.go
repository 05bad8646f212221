package shell

import (
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Console prints status changes in bold and transcript lines below them.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	status *color.Color
	user   *color.Color
	bot    *color.Color
	last   string
}

func NewConsole(out io.Writer) *Console {
	return &Console{
		out:    out,
		status: color.New(color.Bold, color.FgCyan),
		user:   color.New(color.FgWhite),
		bot:    color.New(color.FgBlue),
	}
}

func (c *Console) StatusChanged(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// transitions only
	if text == c.last {
		return
	}
	c.last = text
	c.status.Fprintln(c.out, "● "+text)
}

func (c *Console) TranscriptAppended(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.HasPrefix(line, "Jarvis:") {
		c.bot.Fprintln(c.out, "  "+line)
		return
	}
	c.user.Fprintln(c.out, "  "+line)
}
