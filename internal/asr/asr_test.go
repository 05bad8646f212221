package asr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/speech"
)

type fakeRecorder struct {
	pcm []float32
	err error
}

func (f fakeRecorder) Record(context.Context, time.Duration, time.Duration) ([]float32, error) {
	return f.pcm, f.err
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []float32) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestWhisper_Listen(t *testing.T) {
	long := make([]float32, 16000)

	tests := []struct {
		name string
		rec  fakeRecorder
		stt  *fakeTranscriber
		want string
		err  error
	}{
		{"recognized", fakeRecorder{pcm: long}, &fakeTranscriber{text: " Play Starboy."}, " Play Starboy.", nil},
		{"silence", fakeRecorder{err: speech.ErrNoSpeech}, &fakeTranscriber{}, "", speech.ErrNoSpeech},
		{"too short", fakeRecorder{pcm: make([]float32, 100)}, &fakeTranscriber{text: "x"}, "", speech.ErrNoSpeech},
		{"blank transcript", fakeRecorder{pcm: long}, &fakeTranscriber{text: "  "}, "", speech.ErrNoSpeech},
		{"engine failure", fakeRecorder{pcm: long}, &fakeTranscriber{err: errors.New("model crashed")}, "", speech.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewWhisper(tt.rec, tt.stt).Listen(context.Background(), time.Second, time.Second)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeWAV(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           make([]int, 16000),
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01-wake.txt"), []byte("Jarvis\n"), 0o644))
	writeWAV(t, filepath.Join(dir, "02-command.wav"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "03-empty.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	stt := &fakeTranscriber{text: "play starboy"}
	r, err := NewReplay(dir, stt)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Remaining())

	ctx := context.Background()

	text, err := r.Listen(ctx, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Jarvis", text)

	text, err = r.Listen(ctx, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "play starboy", text)
	assert.Equal(t, 1, stt.calls)

	_, err = r.Listen(ctx, time.Millisecond, time.Second)
	assert.ErrorIs(t, err, speech.ErrNoSpeech)

	_, err = r.Listen(ctx, time.Millisecond, time.Second)
	assert.ErrorIs(t, err, speech.ErrNoSpeech, "exhausted replay reports silence")
	assert.Zero(t, r.Remaining())
}

func TestReplay_TextOnlyWithoutTranscriber(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("open github"), 0o644))
	writeWAV(t, filepath.Join(dir, "b.wav"))

	r, err := NewReplay(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Remaining())
}

func TestReplay_ExhaustedHonoursContext(t *testing.T) {
	r, err := NewReplay(t.TempDir(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Listen(ctx, time.Hour, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplay_MissingDir(t *testing.T) {
	_, err := NewReplay(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
