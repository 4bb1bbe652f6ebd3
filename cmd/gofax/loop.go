package main

import (
	"github.com/klehmann/gofax/fax"
)

// runPCMLoop drives session against inWAV's samples block by block, writing
// session's own generated PCM to outWAV, until the far-end fixture runs dry
// or the session reaches phase E (spec §5's sample-clocked rx/tick/tx loop).
func runPCMLoop(session *fax.Session, inWAVPath, outWAVPath string) {
	var in, err = readWAV(inWAVPath)
	if err != nil {
		logger.Fatal("reading input WAV", "err", err)
	}
	var out, werr = newWAVWriter(outWAVPath)
	if werr != nil {
		logger.Fatal("opening output WAV", "err", werr)
	}
	defer out.Close()

	session.Start()

	var outBuf = make([]int16, blockSize)
	for pos := 0; pos < len(in); pos += blockSize {
		var end = pos + blockSize
		if end > len(in) {
			end = len(in)
		}
		session.Rx(in[pos:end])
		session.Tick(end - pos)

		var n = session.Tx(outBuf)
		if err := out.Write(outBuf[:n]); err != nil {
			logger.Fatal("writing output WAV", "err", err)
		}

		if _, _, done := session.T30().Completion(); done {
			logger.Info("session reached phase E, stopping")
			return
		}
	}
	logger.Warn("input PCM exhausted before phase E")
}
