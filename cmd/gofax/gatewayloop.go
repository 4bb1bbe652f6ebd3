package main

import (
	"github.com/klehmann/gofax/t38/gateway"
)

// runGatewayPCMLoop pumps inWAV's PCM through gw block by block, writing
// gw's own PCM output to outWAV and polling the IFP side each block (spec
// §5's sample-clocked loop, applied to the gateway's two-sided bridge).
func runGatewayPCMLoop(gw *gateway.Gateway, inWAVPath, outWAVPath string) {
	var in, err = readWAV(inWAVPath)
	if err != nil {
		logger.Fatal("reading input WAV", "err", err)
	}
	var out, werr = newWAVWriter(outWAVPath)
	if werr != nil {
		logger.Fatal("opening output WAV", "err", werr)
	}
	defer out.Close()

	var outBuf = make([]int16, blockSize)
	for pos := 0; pos < len(in); pos += blockSize {
		var end = pos + blockSize
		if end > len(in) {
			end = len(in)
		}
		gw.FeedPCM(in[pos:end])
		gw.PollPackets()

		var n = gw.FillPCM(outBuf)
		if err := out.Write(outBuf[:n]); err != nil {
			logger.Fatal("writing output WAV", "err", err)
		}
	}
	logger.Info("gateway PCM fixture exhausted")
}
