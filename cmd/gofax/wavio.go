package main

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// blockSize matches the sample-clocked block size spec §5 assumes
// throughout ("samples[N]"); 160 samples is 20ms at 8kHz, the usual T.38/RTP
// packetisation period.
const blockSize = 160

// readWAV loads an 8kHz mono 16-bit PCM file whole, matching how the
// teacher's own atest-style harnesses slurp a fixture file rather than
// stream it.
func readWAV(path string) ([]int16, error) {
	var f, err = os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var dec = wav.NewDecoder(f)
	var buf, decErr = dec.FullPCMBuffer()
	if decErr != nil {
		return nil, decErr
	}
	var samples = make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return samples, nil
}

// wavWriter accumulates PCM samples and flushes them as an 8kHz mono
// 16-bit WAV on Close.
type wavWriter struct {
	f   *os.File
	enc *wav.Encoder
}

func newWAVWriter(path string) (*wavWriter, error) {
	var f, err = os.Create(path)
	if err != nil {
		return nil, err
	}
	var enc = wav.NewEncoder(f, 8000, 16, 1, 1)
	return &wavWriter{f: f, enc: enc}, nil
}

func (w *wavWriter) Write(samples []int16) error {
	var data = make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(v)
	}
	return w.enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           data,
		SourceBitDepth: 16,
	})
}

func (w *wavWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
