package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cstopics/cstopics/api"
	"github.com/cstopics/cstopics/sim/arq"
	"github.com/cstopics/cstopics/sim/scenario"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(api.NewServer("", scenario.DefaultSeed).Handler())
	t.Cleanup(server.Close)
	return server
}

func crcRun() scenario.RunSpec {
	return scenario.RunSpec{Name: "crc", Kind: scenario.KindCRC,
		CRC: &scenario.CRCParams{Data: "110101", Generator: "1011"}}
}

func TestClient_Run_ReturnsOutcome(t *testing.T) {
	server := newTestServer(t)

	client := NewClient(server.URL + "/")
	out, err := client.Run(context.Background(), crcRun(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !out.OK() {
		t.Fatalf("unexpected run error: %s", out.Error)
	}
	if out.RunID == "" {
		t.Error("run id not assigned")
	}
	result, ok := out.Result.(map[string]any)
	if !ok {
		t.Fatalf("result is %T, want a JSON object", out.Result)
	}
	if result["remainder"] != "111" {
		t.Errorf("remainder = %v, want 111", result["remainder"])
	}
	if len(out.Steps) == 0 {
		t.Error("steps not returned")
	}
}

func TestClient_Run_InvalidRunComesBackAsOutcome(t *testing.T) {
	server := newTestServer(t)

	run := crcRun()
	run.CRC.Generator = "0"
	out, err := NewClient(server.URL).Run(context.Background(), run, 1)
	if err != nil {
		t.Fatal(err)
	}
	if out.OK() {
		t.Error("expected the outcome to carry an error")
	}
	if out.Kind != scenario.KindCRC {
		t.Errorf("kind = %q, want crc", out.Kind)
	}
}

func TestClient_Run_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprint(w, "internal server error")
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Run(context.Background(), crcRun(), 1)
	if err == nil {
		t.Fatal("expected an error for HTTP 500")
	}
}

func TestClient_Play_StreamsEveryEvent(t *testing.T) {
	server := newTestServer(t)

	run := scenario.RunSpec{Name: "saw", Kind: scenario.KindARQ,
		ARQ: &scenario.ARQParams{Protocol: arq.ProtocolStopAndWait, Config: arq.Config{Frames: 2}}}
	var events []api.PlayMessage
	out, err := NewClient(server.URL).Play(context.Background(), run, 1, 0, func(m api.PlayMessage) {
		events = append(events, m)
	})
	if err != nil {
		t.Fatal(err)
	}
	if !out.OK() {
		t.Fatalf("unexpected run error: %s", out.Error)
	}
	if len(events) == 0 {
		t.Fatal("no events streamed")
	}
	if events[0].Total != len(events) {
		t.Errorf("streamed %d events, server announced %d", len(events), events[0].Total)
	}
	if out.Summary == nil || out.Summary.TotalEvents != len(events) {
		t.Errorf("summary does not match the streamed events: %+v", out.Summary)
	}
	if got := describeEvent(events[len(events)-1].Event); got == "" {
		t.Error("event description empty")
	}
}

func TestClient_Play_ComputationSendsResult(t *testing.T) {
	server := newTestServer(t)

	called := false
	out, err := NewClient(server.URL).Play(context.Background(), crcRun(), 1, 0, func(api.PlayMessage) { called = true })
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("a computation has no timeline to stream")
	}
	if !out.OK() || out.Kind != scenario.KindCRC {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := &Collector{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.Record(id, scenario.Outcome{Name: fmt.Sprintf("run-%d", id)})
		}(i)
	}
	wg.Wait()

	outcomes := c.Outcomes(10)
	if len(outcomes) != 10 {
		t.Fatalf("recorded %d, want 10", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Name != fmt.Sprintf("run-%d", i) {
			t.Errorf("outcome %d is %q, want input order", i, o.Name)
		}
	}
}
