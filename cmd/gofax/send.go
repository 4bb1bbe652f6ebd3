package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/klehmann/gofax/fax"
	"github.com/klehmann/gofax/faximage"
	"github.com/klehmann/gofax/t30"
)

var (
	sendInFile    string
	sendInWAV     string
	sendOutWAV    string
	sendConfigYML string
)

func init() {
	RootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendInFile, "page", "", "page payload file to send (one page)")
	sendCmd.Flags().StringVar(&sendInWAV, "in", "", "WAV file carrying the far end's PCM")
	sendCmd.Flags().StringVar(&sendOutWAV, "out", "", "WAV file to write this side's outgoing PCM")
	sendCmd.Flags().StringVar(&sendConfigYML, "config", "", "station config YAML (optional)")
	_ = sendCmd.MarkFlagRequired("page")
	_ = sendCmd.MarkFlagRequired("in")
	_ = sendCmd.MarkFlagRequired("out")
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "run the calling side of a fax call against a PCM fixture",
	Run: func(cmd *cobra.Command, args []string) {
		var stCfg = defaultStationConfig()
		if sendConfigYML != "" {
			var loaded, err = loadStationConfig(sendConfigYML)
			if err != nil {
				logger.Fatal("loading station config", "err", err)
			}
			stCfg = loaded
		}

		var page, err = os.ReadFile(sendInFile)
		if err != nil {
			logger.Fatal("reading page payload", "err", err)
		}
		var adapter = faximage.NewByteStreamAdapter(
			&faximage.MemorySource{Pages: []faximage.Page{{Bytes: page}}},
			&faximage.MemorySink{},
		)

		var session = fax.NewSession(fax.Config{T30: t30.Config{
			Role:                  t30.RoleCalling,
			SupportedModems:       stCfg.modemMask(),
			SupportedCompressions: stCfg.compressionMask(),
			ECMAllowed:            stCfg.ECMAllowed,
			Ident:                 stCfg.Ident,
			NextPageByte:          adapter.NextPageByte,
			OnPageByte:            adapter.OnPageByte,
			NextECMFrame:          adapter.NextECMFrame,
			OnECMFrame:            adapter.OnECMFrame,
			HasMorePages:          adapter.HasMorePages,
			OnPhaseE: func(_ *t30.Session, code t30.CompletionCode, err error) {
				logger.Info("call finished", "completion", code, "err", err)
			},
		}})

		runPCMLoop(session, sendInWAV, sendOutWAV)
	},
}
