package websocketPkg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PaintVisualizer/internal/entity"
	"PaintVisualizer/pkg/log"
	"PaintVisualizer/pkg/roboflow"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotConnected = errors.New("detector connection not established")

type IWebsocket interface {
	Detect(ctx context.Context, model entity.DetectionModel, img *entity.NormalizedImage, confidence, overlap float64) (*entity.DetectionResult, error)
	IsConnected(endpoint string) bool
	Reconnect(endpoint string) error
	CloseConnections()
}

type detectFrame struct {
	Image      string  `json:"image"`
	Confidence float64 `json:"confidence"`
	Overlap    float64 `json:"overlap"`
}

// detectorConn serialises a full request/response roundtrip on one socket.
type detectorConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

type webSocketClient struct {
	mu           sync.Mutex
	conns        map[string]*detectorConn
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	dialer       *websocket.Dialer
}

func NewDetectorClient() IWebsocket {
	return &webSocketClient{
		conns:        make(map[string]*detectorConn),
		pingInterval: 30 * time.Second,
		readTimeout:  15 * time.Second,
		writeTimeout: 5 * time.Second,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Warm dials the given endpoints in the background so the first request does
// not pay the handshake.
func Warm(client IWebsocket, endpoints ...string) {
	for _, endpoint := range endpoints {
		go func(endpoint string) {
			if err := client.Reconnect(endpoint); err != nil {
				log.Warn(log.Fields{
					"endpoint": endpoint,
					"error":    err.Error(),
				}, "[websocket] initial detector connection failed, will retry on demand")
				return
			}
			log.Info(log.Fields{"endpoint": endpoint}, "[websocket] detector connected")
		}(endpoint)
	}
}

func (c *webSocketClient) IsConnected(endpoint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	dc, ok := c.conns[endpoint]
	if !ok {
		return false
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.conn != nil
}

func (c *webSocketClient) Reconnect(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("detector endpoint not configured")
	}

	dc := c.slot(endpoint)

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.conn != nil {
		dc.conn.Close()
		dc.conn = nil
	}

	conn, _, err := c.dialer.Dial(endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Warn(log.Fields{"endpoint": endpoint, "error": err.Error()}, "[websocket] error sending pong")
		}
		return nil
	})

	dc.conn = conn
	go c.keepAlive(endpoint, dc, conn)

	return nil
}

func (c *webSocketClient) CloseConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for endpoint, dc := range c.conns {
		dc.mu.Lock()
		if dc.conn != nil {
			dc.conn.Close()
			dc.conn = nil
		}
		dc.mu.Unlock()
		delete(c.conns, endpoint)
	}
}

func (c *webSocketClient) Detect(
	ctx context.Context,
	model entity.DetectionModel,
	img *entity.NormalizedImage,
	confidence, overlap float64,
) (*entity.DetectionResult, error) {
	if !c.IsConnected(model.Endpoint) {
		if err := c.Reconnect(model.Endpoint); err != nil {
			return nil, fmt.Errorf("cannot connect to detector %s: %w", model.ID, err)
		}
	}

	payload, err := json.Marshal(detectFrame{
		Image:      img.Base64,
		Confidence: confidence,
		Overlap:    overlap,
	})
	if err != nil {
		return nil, fmt.Errorf("encode detect frame: %w", err)
	}

	message, err := c.roundtrip(ctx, model.Endpoint, payload)
	if err != nil {
		return nil, err
	}

	result, err := roboflow.ParseDetection(message)
	if err != nil {
		return nil, err
	}

	result.ModelID = model.ID
	result.Confidence = confidence
	return result, nil
}

func (c *webSocketClient) roundtrip(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	dc := c.slot(endpoint)

	dc.mu.Lock()
	defer dc.mu.Unlock()

	conn := dc.conn
	if conn == nil {
		return nil, ErrNotConnected
	}

	writeDeadline := time.Now().Add(c.writeTimeout)
	readDeadline := time.Now().Add(c.readTimeout)
	if deadline, ok := ctx.Deadline(); ok {
		if deadline.Before(writeDeadline) {
			writeDeadline = deadline
		}
		if deadline.Before(readDeadline) {
			readDeadline = deadline
		}
	}

	_ = conn.SetWriteDeadline(writeDeadline)
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		dc.conn = nil
		conn.Close()
		return nil, fmt.Errorf("error sending detect frame: %w", err)
	}

	_ = conn.SetReadDeadline(readDeadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		dc.conn = nil
		conn.Close()
		return nil, fmt.Errorf("error reading detect response: %w", err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	return message, nil
}

func (c *webSocketClient) slot(endpoint string) *detectorConn {
	c.mu.Lock()
	defer c.mu.Unlock()

	dc, ok := c.conns[endpoint]
	if !ok {
		dc = &detectorConn{}
		c.conns[endpoint] = dc
	}
	return dc
}

func (c *webSocketClient) keepAlive(endpoint string, dc *detectorConn, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		dc.mu.Lock()
		if dc.conn != conn {
			dc.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Warn(log.Fields{
				"endpoint": endpoint,
				"error":    err.Error(),
			}, "[websocket] ping failed, marking connection as dead")
			dc.conn = nil
			conn.Close()
			dc.mu.Unlock()
			return
		}

		dc.mu.Unlock()
	}
}
