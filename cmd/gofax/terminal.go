package main

import (
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/klehmann/gofax/faximage"
	"github.com/klehmann/gofax/t30"
	"github.com/klehmann/gofax/t38/terminal"
	"github.com/klehmann/gofax/transport"
)

var (
	termDial      string
	termListen    string
	termRole      string
	termPage      string
	termPageDir   string
	termPaced     bool
	termConfigYML string
)

func init() {
	RootCmd.AddCommand(terminalCmd)
	terminalCmd.Flags().StringVar(&termDial, "dial", "", "WebSocket URL of the far end to connect to (client mode)")
	terminalCmd.Flags().StringVar(&termListen, "listen", "", "address to accept a WebSocket peer on (server mode)")
	terminalCmd.Flags().StringVar(&termRole, "role", "calling", "calling or answering")
	terminalCmd.Flags().StringVar(&termPage, "page", "", "page image file to send (calling role)")
	terminalCmd.Flags().StringVar(&termPageDir, "page-dir", ".", "directory to write received pages into (answering role)")
	terminalCmd.Flags().BoolVar(&termPaced, "paced", false, "use paced IFP sending (one packet per 30ms, merging queued frames)")
	terminalCmd.Flags().StringVar(&termConfigYML, "config", "", "station config YAML (optional)")
}

var terminalCmd = &cobra.Command{
	Use:   "terminal",
	Short: "run a pure T.38 terminal (T.30 over IFP, no PCM carrier simulation)",
	Run: func(cmd *cobra.Command, args []string) {
		var stCfg = defaultStationConfig()
		if termConfigYML != "" {
			var loaded, err = loadStationConfig(termConfigYML)
			if err != nil {
				logger.Fatal("loading station config", "err", err)
			}
			stCfg = loaded
		}

		var conn *transport.WSTransport
		var err error
		if termListen != "" {
			conn, err = acceptOneWS(termListen)
		} else if termDial != "" {
			conn, err = transport.DialWS(termDial, logger)
		} else {
			logger.Fatal("terminal requires either --dial or --listen")
		}
		if err != nil {
			logger.Fatal("establishing IFP transport", "err", err)
		}

		var adapter *faximage.ByteStreamAdapter
		var role t30.Role
		if termRole == "answering" {
			role = t30.RoleAnswering
			var sink = &faximage.FileSink{Dir: termPageDir, NamePattern: "gofax-%Y%m%d-%H%M%S"}
			adapter = faximage.NewByteStreamAdapter(&faximage.MemorySource{}, sink)
		} else {
			role = t30.RoleCalling
			var pages []faximage.Page
			if termPage != "" {
				var data, rerr = os.ReadFile(termPage)
				if rerr != nil {
					logger.Fatal("reading page", "err", rerr)
				}
				pages = append(pages, faximage.Page{Bytes: data})
			}
			adapter = faximage.NewByteStreamAdapter(&faximage.MemorySource{Pages: pages}, &faximage.MemorySink{})
		}

		var session = t30.NewSession(t30.Config{
			Role:                  role,
			SupportedModems:       stCfg.modemMask(),
			SupportedCompressions: stCfg.compressionMask(),
			ECMAllowed:            stCfg.ECMAllowed,
			Ident:                 stCfg.Ident,
			NextPageByte:          adapter.NextPageByte,
			OnPageByte:            adapter.OnPageByte,
			NextECMFrame:          adapter.NextECMFrame,
			OnECMFrame:            adapter.OnECMFrame,
			HasMorePages:          adapter.HasMorePages,
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
			Logger: logger,
		})

		var term = terminal.New(terminal.Config{
			Session:    session,
			Redundancy: 2,
			PacedMode:  termPaced,
			Logger:     logger,
		}, conn)

		session.Start()
		runTerminalLoop(term, session)
	},
}

// runTerminalLoop advances the timed-step engine in 20ms ticks until phase E,
// polling the transport for inbound packets each tick.
func runTerminalLoop(term *terminal.Terminal, session *t30.Session) {
	const tick = 20 * time.Millisecond
	for {
		term.PollPackets()
		term.Advance(160)
		if _, _, done := session.Completion(); done {
			logger.Info("terminal reached phase E, stopping")
			return
		}
		time.Sleep(tick)
	}
}

// acceptOneWS runs a throwaway HTTP server that upgrades the first
// connection it sees to a WebSocket and hands it back, matching the
// gateway subcommand's single-peer accept pattern.
func acceptOneWS(addr string) (*transport.WSTransport, error) {
	var accepted = make(chan *transport.WSTransport, 1)
	var errCh = make(chan error, 1)
	var mux = http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var conn, err = transport.AcceptWS(w, r, logger)
		if err != nil {
			errCh <- err
			return
		}
		accepted <- conn
	})
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			errCh <- err
		}
	}()
	select {
	case conn := <-accepted:
		return conn, nil
	case err := <-errCh:
		return nil, err
	}
}
