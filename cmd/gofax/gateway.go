package main

import (
	"github.com/spf13/cobra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"

	"github.com/klehmann/gofax/stats"
	"github.com/klehmann/gofax/t30"
	"github.com/klehmann/gofax/t38/gateway"
	"github.com/klehmann/gofax/transport"
)

var (
	gwInWAV      string
	gwOutWAV     string
	gwListenWS   string
	gwMetricsAddr string
)

func init() {
	RootCmd.AddCommand(gatewayCmd)
	gatewayCmd.Flags().StringVar(&gwInWAV, "in", "", "WAV file carrying the PCM side's incoming samples")
	gatewayCmd.Flags().StringVar(&gwOutWAV, "out", "", "WAV file to write the PCM side's outgoing samples")
	gatewayCmd.Flags().StringVar(&gwListenWS, "listen", ":4038", "address to accept the IFP-side WebSocket on")
	gatewayCmd.Flags().StringVar(&gwMetricsAddr, "metrics", "", "address to serve Prometheus metrics on (optional)")
	_ = gatewayCmd.MarkFlagRequired("in")
	_ = gatewayCmd.MarkFlagRequired("out")
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "run a T.38 gateway bridging a PCM fixture to a WebSocket IFP peer",
	Run: func(cmd *cobra.Command, args []string) {
		var reg = prometheus.NewRegistry()
		var metrics = stats.NewMetrics(reg)
		if gwMetricsAddr != "" {
			go serveMetrics(gwMetricsAddr, reg)
		}

		var ifpConn *transport.WSTransport
		var mux = http.NewServeMux()
		var accepted = make(chan struct{})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			var conn, err = transport.AcceptWS(w, r, logger)
			if err != nil {
				logger.Error("websocket upgrade failed", "err", err)
				return
			}
			ifpConn = conn
			close(accepted)
		})
		go http.ListenAndServe(gwListenWS, mux)
		logger.Info("waiting for IFP peer", "listen", gwListenWS)
		<-accepted

		metrics.SessionStarted()
		var gw = gateway.New(gateway.Config{
			SupportedModems: t30.ModemV17_7200 | t30.ModemV17_9600 | t30.ModemV17_12000 | t30.ModemV17_14400 |
				t30.ModemV29_7200 | t30.ModemV29_9600 | t30.ModemV27ter2400 | t30.ModemV27ter4800,
			ECMAllowed: true,
			Logger:     logger,
		}, ifpConn, 2)

		runGatewayPCMLoop(gw, gwInWAV, gwOutWAV)
		metrics.SessionEnded(0)
	},
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "err", err)
	}
}
