package main

import (
	"github.com/spf13/cobra"

	"github.com/klehmann/gofax/fax"
	"github.com/klehmann/gofax/faximage"
	"github.com/klehmann/gofax/t30"
)

var (
	recvInWAV     string
	recvOutWAV    string
	recvPageOut   string
	recvConfigYML string
)

func init() {
	RootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().StringVar(&recvInWAV, "in", "", "WAV file carrying the far end's PCM")
	receiveCmd.Flags().StringVar(&recvOutWAV, "out", "", "WAV file to write this side's outgoing PCM")
	receiveCmd.Flags().StringVar(&recvPageOut, "page-dir", ".", "directory to write received pages into")
	receiveCmd.Flags().StringVar(&recvConfigYML, "config", "", "station config YAML (optional)")
	_ = receiveCmd.MarkFlagRequired("in")
	_ = receiveCmd.MarkFlagRequired("out")
}

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "run the answering side of a fax call against a PCM fixture",
	Run: func(cmd *cobra.Command, args []string) {
		var stCfg = defaultStationConfig()
		if recvConfigYML != "" {
			var loaded, err = loadStationConfig(recvConfigYML)
			if err != nil {
				logger.Fatal("loading station config", "err", err)
			}
			stCfg = loaded
		}

		var sink = &faximage.FileSink{Dir: recvPageOut, NamePattern: "gofax-%Y%m%d-%H%M%S"}
		var adapter = faximage.NewByteStreamAdapter(&faximage.MemorySource{}, sink)

		var session = fax.NewSession(fax.Config{T30: t30.Config{
			Role:                  t30.RoleAnswering,
			SupportedModems:       stCfg.modemMask(),
			SupportedCompressions: stCfg.compressionMask(),
			ECMAllowed:            stCfg.ECMAllowed,
			Ident:                 stCfg.Ident,
			NextPageByte:          adapter.NextPageByte,
			OnPageByte:            adapter.OnPageByte,
			NextECMFrame:          adapter.NextECMFrame,
			OnECMFrame:            adapter.OnECMFrame,
			HasMorePages:          func() bool { return false },
			OnDocumentHandler: func(_ *t30.Session, status t30.DocumentStatus) {
				if status == t30.DocumentPageDone {
					if err := adapter.FinishPage(); err != nil {
						logger.Error("writing received page", "err", err)
					}
				}
			},
			OnPhaseE: func(_ *t30.Session, code t30.CompletionCode, err error) {
				logger.Info("call finished", "completion", code, "err", err)
			},
		}})

		runPCMLoop(session, recvInWAV, recvOutWAV)
	},
}
