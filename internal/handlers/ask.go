package handlers

import (
	"context"
	"strings"
)

// Answerer produces a short spoken answer to a free-form question.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Ask is the catch-all: any command nothing else claimed goes to a
// language model.
type Ask struct {
	voice    Voice
	answerer Answerer
}

func NewAsk(voice Voice, answerer Answerer) *Ask {
	return &Ask{voice: voice, answerer: answerer}
}

func (*Ask) Name() string { return "ask" }

func (*Ask) CanHandle(cmd string) bool { return strings.TrimSpace(cmd) != "" }

func (a *Ask) Handle(ctx context.Context, cmd string) error {
	answer, err := a.answerer.Answer(ctx, cmd)
	if err != nil {
		return err
	}
	return a.voice.Speak(ctx, answer)
}
