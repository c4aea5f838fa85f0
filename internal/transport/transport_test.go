package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/motion_collector/internal/imu"
	"github.com/relabs-tech/motion_collector/internal/session"
)

type fakeIngestor struct {
	mu          sync.Mutex
	events      []imu.ReadingEvent
	disconnects int
	rejected    int
}

func (f *fakeIngestor) HandleRaw(t imu.SensorType, payload []byte) (session.Outcome, error) {
	tr, err := imu.ParseTriple(payload)
	if err != nil {
		return f.Reject(), err
	}
	return f.HandleEvent(imu.ReadingEvent{Type: t, Payload: tr})
}

func (f *fakeIngestor) HandleEvent(ev imu.ReadingEvent) (session.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return session.OutcomeBuffered, nil
}

func (f *fakeIngestor) Reject() session.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected++
	return session.OutcomeRejected
}

func (f *fakeIngestor) rejections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rejected
}

func (f *fakeIngestor) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeIngestor) Status() session.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return session.Status{ID: "test", State: "active", Events: uint64(len(f.events))}
}

func (f *fakeIngestor) snapshot() ([]imu.ReadingEvent, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]imu.ReadingEvent(nil), f.events...), f.disconnects
}

func TestHTTPReadingFromHeader(t *testing.T) {
	ing := &fakeIngestor{}
	srv := httptest.NewServer(NewRouter(NewHandler(ing)))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/accel", nil)
	require.NoError(t, err)
	req.Header.Set("accel", "[0.1,0.2,0.3]")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Received accel data.", string(body))

	events, _ := ing.snapshot()
	require.Len(t, events, 1)
	require.Equal(t, imu.SensorAccel, events[0].Type)
	require.Equal(t, imu.AxisTriple{X: 0.1, Y: 0.2, Z: 0.3}, events[0].Payload)
}

func TestHTTPReadingFromBody(t *testing.T) {
	ing := &fakeIngestor{}
	srv := httptest.NewServer(NewRouter(NewHandler(ing)))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/gyro", "application/json", strings.NewReader(`{"x":1,"y":2,"z":3}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events, _ := ing.snapshot()
	require.Len(t, events, 1)
	require.Equal(t, imu.SensorGyro, events[0].Type)
}

func TestHTTPMalformedReading(t *testing.T) {
	ing := &fakeIngestor{}
	srv := httptest.NewServer(NewRouter(NewHandler(ing)))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/gyro", nil)
	req.Header.Set("gyro", "[1,2]")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	events, _ := ing.snapshot()
	require.Empty(t, events)
}

func TestHTTPMagnetIgnored(t *testing.T) {
	ing := &fakeIngestor{}
	srv := httptest.NewServer(NewRouter(NewHandler(ing)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/magnet")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	require.Equal(t, "Received magnet data.", string(body))
	events, _ := ing.snapshot()
	require.Empty(t, events)
}

func TestStatusEndpoint(t *testing.T) {
	ing := &fakeIngestor{}
	srv := httptest.NewServer(NewRouter(NewHandler(ing)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var st session.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.Equal(t, "test", st.ID)
	require.Equal(t, "active", st.State)
}

func TestPushEvents(t *testing.T) {
	ing := &fakeIngestor{}
	srv := httptest.NewServer(NewRouter(NewHandler(ing)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, m := range []string{
		`{"event":"connect"}`,
		`{"event":"accel","data":[1,2,3]}`,
		`{"event":"magnet","data":[7,7,7]}`,
		`{"event":"gyro","data":[4,5]}`,
		`not json`,
		`{"event":"gyro","data":[4,5,6]}`,
		`{"event":"disconnect"}`,
	} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(m)))
	}

	require.Eventually(t, func() bool {
		_, d := ing.snapshot()
		return d == 1
	}, 5*time.Second, 10*time.Millisecond)

	events, disconnects := ing.snapshot()
	require.Equal(t, 1, disconnects)
	require.Len(t, events, 2)
	require.Equal(t, imu.SensorAccel, events[0].Type)
	require.Equal(t, imu.SensorGyro, events[1].Type)
	require.Equal(t, imu.AxisTriple{X: 4, Y: 5, Z: 6}, events[1].Payload)
	require.Equal(t, 2, ing.rejections())
}

func TestPushSocketCloseIsDisconnect(t *testing.T) {
	ing := &fakeIngestor{}
	srv := httptest.NewServer(NewRouter(NewHandler(ing)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"accel","data":[1,1,1]}`)))
	conn.Close()

	require.Eventually(t, func() bool {
		_, d := ing.snapshot()
		return d == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, cs)
}

func TestParseLine(t *testing.T) {
	p := NewSentenceParser()

	ev, err := ParseLine(p, sentence("PMACC,0.01,-0.02,9.81"), time.Time{})
	require.NoError(t, err)
	require.Equal(t, imu.SensorAccel, ev.Type)
	require.Equal(t, imu.AxisTriple{X: 0.01, Y: -0.02, Z: 9.81}, ev.Payload)

	ev, err = ParseLine(p, sentence("PMGYR,1,2,3"), time.Time{})
	require.NoError(t, err)
	require.Equal(t, imu.SensorGyro, ev.Type)

	for _, bad := range []string{
		sentence("PMACC,1,2"),
		sentence("PMACC,1,,3"),
		sentence("PMACC,1,x,3"),
		"$PMACC,1,2,3*00",
		"$PMACC,1,2,3",
	} {
		_, err := ParseLine(p, bad, time.Time{})
		require.ErrorIs(t, err, imu.ErrInvalidPayload, "line %q", bad)
	}
}

func TestSerialSourceFeedsSession(t *testing.T) {
	input := strings.Join([]string{
		"garbage",
		sentence("PMACC,1,2,3"),
		sentence("PMMAG,5,5,5"),
		"$PMGYR,4,5,6*FF",
		sentence("PMGYR,4,5,6"),
		"",
	}, "\r\n")

	ing := &fakeIngestor{}
	src := NewSerialSource(io.NopCloser(strings.NewReader(input)), ing)
	require.NoError(t, src.Run(context.Background()))

	events, disconnects := ing.snapshot()
	require.Len(t, events, 3)
	require.Equal(t, imu.SensorAccel, events[0].Type)
	require.Equal(t, imu.SensorMagnet, events[1].Type)
	require.Equal(t, imu.SensorGyro, events[2].Type)
	require.Equal(t, 1, disconnects)
	// the bad checksum line; "garbage" is not a sentence
	require.Equal(t, 1, ing.rejections())
}
