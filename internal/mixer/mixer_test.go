package mixer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sinkInputs = `Sink Input #42
	Driver: protocol-native.c
	Owner Module: 10
	Volume: front-left: 52429 /  80% / -5.81 dB,   front-right: 52429 /  80% / -5.81 dB
	        balance 0.00
	Properties:
		application.name = "Firefox"
		media.name = "Playback"

Sink Input #57
	Volume: front-left: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "jarvis"

Sink Input #63
	Volume: mono: 32768 /  50% / -18.06 dB
	Properties:
		application.name = "spotify"
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)

	assert.Equal(t, []stream{
		{ID: 42, Volume: 80, AppName: "Firefox"},
		{ID: 57, Volume: 100, AppName: "jarvis"},
		{ID: 63, Volume: 50, AppName: "spotify"},
	}, got)

	assert.Nil(t, parseSinkInputs(""))
}

func TestDuckTargets(t *testing.T) {
	streams := parseSinkInputs(sinkInputs)
	fades := duckTargets(streams, Options{Factor: 0.3, MinVolume: 20, SelfNames: []string{"jarvis"}})

	assert.Equal(t, []fade{
		{id: 42, from: 80, to: 24},
		{id: 63, from: 50, to: 20},
	}, fades)
}

type fakePactl struct {
	listing string
	calls   []string
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	if args[0] == "list" {
		return []byte(f.listing), nil
	}
	f.calls = append(f.calls, strings.Join(args, " "))
	return nil, nil
}

func TestDuckAndRestore(t *testing.T) {
	pa := &fakePactl{listing: sinkInputs}
	d := NewDucker(Options{Factor: 0.5, SelfNames: []string{"jarvis"}})
	d.pactl = pa.run

	require.NoError(t, d.Duck(context.Background()))
	assert.Equal(t, []string{
		"set-sink-input-volume 42 40%",
		"set-sink-input-volume 63 25%",
	}, pa.calls)

	// second duck is a no-op
	require.NoError(t, d.Duck(context.Background()))
	assert.Len(t, pa.calls, 2)

	pa.calls = nil
	pa.listing = strings.ReplaceAll(strings.ReplaceAll(sinkInputs, " 80%", " 40%"), " 50%", " 25%")
	require.NoError(t, d.Restore(context.Background()))
	assert.Equal(t, []string{
		"set-sink-input-volume 42 80%",
		"set-sink-input-volume 63 50%",
	}, pa.calls)

	pa.calls = nil
	require.NoError(t, d.Restore(context.Background()))
	assert.Empty(t, pa.calls)
}

func TestDuck_PactlMissing(t *testing.T) {
	d := NewDucker(Options{})
	d.pactl = func(context.Context, ...string) ([]byte, error) {
		return nil, errors.New(`exec: "pactl": executable file not found in $PATH`)
	}

	assert.Error(t, d.Duck(context.Background()))
	assert.NoError(t, d.Restore(context.Background()), "nothing was ducked")
}
