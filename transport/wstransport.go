package transport

import (
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// WSTransport carries IFP datagrams over a WebSocket connection, standing in
// for the UDP transport T.38 normally rides (spec §6 leaves the transport
// opaque). Reads happen on a background goroutine, matching the
// read-loop-feeds-a-channel shape DMRHub's websocket handlers use, since
// gorilla/websocket's ReadMessage blocks and this package's Recv must not
// (spec §5's non-blocking, sample-clocked poll model).
type WSTransport struct {
	conn *websocket.Conn
	log  *log.Logger

	incoming chan []byte
	closed   chan struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// AcceptWS upgrades an incoming HTTP request to a WebSocket and wraps it as
// a Transport (the T.38-gateway, server side of a call).
func AcceptWS(w http.ResponseWriter, r *http.Request, logger *log.Logger) (*WSTransport, error) {
	var conn, err = upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newWSTransport(conn, logger), nil
}

// DialWS opens a WebSocket to a remote T.38 peer and wraps it as a
// Transport (the calling side of a call).
func DialWS(u string, logger *log.Logger) (*WSTransport, error) {
	var parsed, err = url.Parse(u)
	if err != nil {
		return nil, err
	}
	var conn, _, dialErr = websocket.DefaultDialer.Dial(parsed.String(), nil)
	if dialErr != nil {
		return nil, dialErr
	}
	return newWSTransport(conn, logger), nil
}

func newWSTransport(conn *websocket.Conn, logger *log.Logger) *WSTransport {
	if logger == nil {
		logger = log.Default()
	}
	var t = &WSTransport{
		conn:     conn,
		log:      logger,
		incoming: make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *WSTransport) readLoop() {
	defer close(t.closed)
	for {
		var _, msg, err = t.conn.ReadMessage()
		if err != nil {
			t.log.Debug("transport: websocket read loop ending", "err", err)
			return
		}
		select {
		case t.incoming <- msg:
		default:
			t.log.Warn("transport: websocket receive buffer full, dropping IFP packet")
		}
	}
}

// Send implements t38.Transport.
func (t *WSTransport) Send(data []byte) error {
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Recv implements t38.Transport, polling the background read loop's buffer
// without blocking.
func (t *WSTransport) Recv() ([]byte, bool) {
	select {
	case data := <-t.incoming:
		return data, true
	default:
		return nil, false
	}
}

// Close shuts down the underlying WebSocket connection.
func (t *WSTransport) Close() error {
	return t.conn.Close()
}
