package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cstopics/cstopics/sim/scenario"
)

func newTestServer() *Server {
	return NewServer("127.0.0.1:0", 42)
}

func TestKindsEndpoint(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/kinds", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var kinds []scenario.KindInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&kinds))
	assert.Len(t, kinds, len(scenario.Kinds()))

	req = httptest.NewRequest(http.MethodPost, "/api/kinds", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestExampleEndpoint(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/example/crc", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var run scenario.RunSpec
	require.NoError(t, json.NewDecoder(w.Body).Decode(&run))
	assert.Equal(t, scenario.KindCRC, run.Kind)
	require.NotNil(t, run.CRC)

	req = httptest.NewRequest(http.MethodGet, "/api/example/warp", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchemaEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, json.Valid(w.Body.Bytes()))
}

func postRun(t *testing.T, s *Server, path, body string) (*httptest.ResponseRecorder, scenario.Outcome) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var out scenario.Outcome
	if w.Code != http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestRunEndpoint(t *testing.T) {
	s := newTestServer()

	// GIVEN a valid CRC run
	w, out := postRun(t, s, "/api/run", `{"name":"c","kind":"crc","crc":{"data":"110101","generator":"1011"}}`)

	// THEN the envelope carries the result and steps
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, out.OK())
	assert.NotEmpty(t, out.RunID)
	assert.NotEmpty(t, out.Steps)
	result, ok := out.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "111", result["remainder"])
}

func TestRunEndpoint_Errors(t *testing.T) {
	s := newTestServer()

	w, _ := postRun(t, s, "/api/run", `{"name":"c","kind":"crc","crc":{"data":"1101"},"bogus":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")

	w, _ = postRun(t, s, "/api/run?seed=abc", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out := postRun(t, s, "/api/run", `{"name":"c","kind":"crc"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "schema violation")
	assert.NotEmpty(t, out.Error)

	w, out = postRun(t, s, "/api/run", `{"name":"k","kind":"rsa","rsa":{"p":60,"q":53}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "computation failure")
	assert.Contains(t, out.Error, "prime")
}

func TestRunEndpoint_SeedQuery(t *testing.T) {
	s := newTestServer()
	body := `{"name":"m","kind":"csmacd","csmacd":{"stations":4,"frames_per_station":3}}`
	_, a := postRun(t, s, "/api/run?seed=5", body)
	_, b := postRun(t, s, "/api/run?seed=5", body)
	require.True(t, a.OK(), a.Error)
	assert.Equal(t, a.Result, b.Result)
	assert.Equal(t, a.Steps, b.Steps)
}

func dialPlay(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/play"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPlay_StreamsTimeline(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()
	conn := dialPlay(t, srv)

	// GIVEN a Stop-and-Wait run requested for playback
	run, _ := scenario.Example(scenario.KindARQ)
	run.ARQ.Protocol = "stop-and-wait"
	require.NoError(t, conn.WriteJSON(PlayRequest{Run: run}))

	// WHEN every message is read
	var events []PlayMessage
	var done PlayMessage
	for {
		var msg PlayMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == MessageDone {
			done = msg
			break
		}
		require.Equal(t, MessageEvent, msg.Type, msg.Error)
		events = append(events, msg)
	}

	// THEN events arrive in order and the done message closes the stream
	require.NotEmpty(t, events)
	for i, e := range events {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, done.Total, e.Total)
	}
	assert.Equal(t, len(events), done.Total)
	require.NotNil(t, done.Outcome)
	assert.Equal(t, done.Total, done.Outcome.Summary.TotalEvents)
	assert.Equal(t, "COMPLETE", events[len(events)-1].Event.(map[string]any)["type"])
}

func TestPlay_ComputationSendsResult(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()
	conn := dialPlay(t, srv)

	run, _ := scenario.Example(scenario.KindHamming)
	require.NoError(t, conn.WriteJSON(PlayRequest{Run: run}))

	var msg PlayMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageResult, msg.Type)
	require.NotNil(t, msg.Outcome)
	assert.True(t, msg.Outcome.OK())
}

func TestPlay_InvalidRun(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()
	conn := dialPlay(t, srv)

	require.NoError(t, conn.WriteJSON(PlayRequest{Run: scenario.RunSpec{Name: "x", Kind: "teleport"}}))
	var msg PlayMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageError, msg.Type)
	assert.NotEmpty(t, msg.Error)
}

func TestPlayRequest_IntervalIsCapped(t *testing.T) {
	assert.Equal(t, MaxInterval, PlayRequest{IntervalMS: 60000}.interval())
	assert.Zero(t, PlayRequest{IntervalMS: -5}.interval())
}

func TestPlay_FirstEventCarriesIndexZero(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()
	conn := dialPlay(t, srv)

	run, _ := scenario.Example(scenario.KindARQ)
	require.NoError(t, conn.WriteJSON(PlayRequest{Run: run}))

	// WHEN the first message is read off the wire
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	// THEN index 0 is sent explicitly
	assert.Equal(t, MessageEvent, raw["type"])
	index, ok := raw["index"]
	require.True(t, ok, "index missing from %s", data)
	assert.Equal(t, float64(0), index)
}

func TestPlay_UnknownRunKeyRejected(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()
	conn := dialPlay(t, srv)

	// GIVEN a play request with a misspelled run key
	req := `{"run": {"name": "c", "kind": "crc", "crc": {"data": "110101", "generator": "1011"}, "colour": "red"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(req)))

	// THEN it is refused, as POST /api/run refuses it
	var msg PlayMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageError, msg.Type)
	assert.Contains(t, msg.Error, "colour")
}
