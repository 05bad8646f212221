package handlers

import (
	"context"
	"strings"
	"time"
)

type Clock struct {
	voice Voice
	now   func() time.Time
}

func NewClock(voice Voice) *Clock {
	return &Clock{voice: voice, now: time.Now}
}

func (*Clock) Name() string { return "clock" }

func (*Clock) CanHandle(cmd string) bool {
	for _, p := range []string{"what time", "the time", "the date", "today's date", "what day"} {
		if strings.Contains(cmd, p) {
			return true
		}
	}
	return false
}

func (c *Clock) Handle(ctx context.Context, cmd string) error {
	now := c.now()

	var text string
	if strings.Contains(cmd, "date") || strings.Contains(cmd, "day") {
		text = "Today is " + now.Format("Monday, January 2, 2006") + "."
	} else {
		text = "It's " + now.Format("3:04 PM") + ", sir."
	}

	return c.voice.Speak(ctx, text)
}
