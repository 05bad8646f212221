//go:build opus

package audioconv

import (
	"errors"
	"io"

	popus "github.com/pekim/opus"
)

// decodeOpus reads an Ogg Opus stream, which always decodes at 48kHz.
func decodeOpus(r io.ReadSeeker) ([]float32, int, int, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	var (
		pcm []float32
		buf = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16SliceToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, err
		}
	}

	if len(pcm) == 0 {
		return nil, 0, 0, errors.New("empty opus stream")
	}

	return pcm, ch, 48000, nil
}
