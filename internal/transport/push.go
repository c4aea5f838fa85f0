package transport

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/motion_collector/internal/imu"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a control frame.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong from the phone.
	pingPeriod     = (pongWait * 9) / 10 // Must be less than pongWait.
	maxMessageSize = 1024
)

// Push events sent by the phone.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventAccel      = "accel"
	EventGyro       = "gyro"
	EventMagnet     = "magnet"
)

// PushMessage is one named event on the websocket: {"event":"accel","data":[x,y,z]}.
type PushMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlePush upgrades the connection and feeds its events to the session
// until the phone disconnects. Closing the socket counts as a disconnect.
func (h *Handler) HandlePush(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}
	log.Printf("ws: a phone connected from %s", conn.RemoteAddr())

	stop := make(chan struct{})
	go pingLoop(conn, stop)

	defer func() {
		close(stop)
		conn.Close()
		log.Printf("ws: phone disconnected (%s)", conn.RemoteAddr())
		h.ing.Disconnect()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg PushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("ws: bad message: %v", err)
			h.ing.Reject()
			continue
		}
		if !h.dispatchPush(msg) {
			return
		}
	}
}

// dispatchPush handles one event and reports whether to keep reading.
func (h *Handler) dispatchPush(msg PushMessage) bool {
	switch msg.Event {
	case EventAccel, EventGyro:
		t, _ := imu.ParseSensorType(msg.Event)
		if _, err := h.ing.HandleRaw(t, msg.Data); err != nil {
			log.Printf("ws: dropped %s reading: %v", msg.Event, err)
		}
	case EventMagnet, EventConnect:
	case EventDisconnect:
		return false
	default:
		log.Printf("ws: unknown event %q", msg.Event)
	}
	return true
}

func pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
