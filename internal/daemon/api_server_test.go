package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"conveyor/internal/api"
	"conveyor/internal/config"
	"conveyor/internal/configstore"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

func newTestServer(t *testing.T) (*httptest.Server, *Daemon) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.APIBind = "127.0.0.1:0"

	configs, err := configstore.Open(cfg)
	if err != nil {
		t.Fatalf("open config store: %v", err)
	}
	d, err := New(cfg, configs, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	server := httptest.NewServer(d.api.router())
	t.Cleanup(server.Close)
	return server, d
}

func postJSON(t *testing.T, url string, body, out any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encode body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func createConfiguration(t *testing.T, server *httptest.Server) pipeline.Configuration {
	t.Helper()
	draft := api.ConfigurationDraft{
		Name:  "demo",
		Steps: pipeline.NewDefaultConfiguration("demo").Steps,
	}
	var created api.ConfigurationResponse
	resp := postJSON(t, server.URL+api.RouteConfigurations, draft, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create configuration returned %d", resp.StatusCode)
	}
	return created.Configuration
}

func startExecution(t *testing.T, server *httptest.Server, configID string) string {
	t.Helper()
	var started api.ExecuteResponse
	resp := postJSON(t, server.URL+api.RouteExecute, api.ExecuteRequest{ConfigurationID: configID}, &started)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("execute returned %d", resp.StatusCode)
	}
	if started.ExecutionID == "" {
		t.Fatal("missing execution id")
	}
	return started.ExecutionID
}

func TestHandlerServesWithoutBindAddress(t *testing.T) {
	cfg := &config.Config{}
	cfg.Paths.DataDir = t.TempDir()

	configs, err := configstore.Open(cfg)
	if err != nil {
		t.Fatalf("open config store: %v", err)
	}
	d, err := New(cfg, configs, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	// No bind address means no listener, but embedding still works.
	server := httptest.NewServer(d.Handler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + api.RouteStatus)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status endpoint returned %d", resp.StatusCode)
	}
}

func TestConfigurationEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	created := createConfiguration(t, server)

	resp, err := http.Get(server.URL + api.RouteConfigurations)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var list api.ConfigurationListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Configurations) != 1 || list.Configurations[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", list)
	}

	single, err := http.Get(server.URL + api.ConfigurationPath(created.ID))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer single.Body.Close()
	var got api.ConfigurationResponse
	if err := json.NewDecoder(single.Body).Decode(&got); err != nil {
		t.Fatalf("decode single: %v", err)
	}
	if got.Configuration.Name != "demo" || len(got.Configuration.Steps) != len(pipeline.DefaultStepIDs) {
		t.Fatalf("unexpected configuration: %+v", got.Configuration)
	}

	missing, err := http.Get(server.URL + api.ConfigurationPath("nope"))
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown configuration, got %d", missing.StatusCode)
	}
}

func TestCreateConfigurationValidation(t *testing.T) {
	server, _ := newTestServer(t)
	resp := postJSON(t, server.URL+api.RouteConfigurations, api.ConfigurationDraft{Name: ""}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid draft, got %d", resp.StatusCode)
	}
}

func TestPayloadUpdateEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	created := createConfiguration(t, server)

	body, _ := json.Marshal(api.PayloadUpdateRequest{Payload: pipeline.Payload{"inputPath": "/src"}})
	req, err := http.NewRequest(http.MethodPut,
		server.URL+api.StepPayloadPath(created.ID, "extraction"), bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put payload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("payload update returned %d", resp.StatusCode)
	}

	single, err := http.Get(server.URL + api.ConfigurationPath(created.ID))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer single.Body.Close()
	var got api.ConfigurationResponse
	if err := json.NewDecoder(single.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	i := got.Configuration.StepIndex("extraction")
	if got.Configuration.Steps[i].Payload["inputPath"] != "/src" {
		t.Fatalf("payload not persisted: %v", got.Configuration.Steps[i].Payload)
	}
	if got.Configuration.Version != created.Version+1 {
		t.Fatalf("version not bumped: %d", got.Configuration.Version)
	}
}

func TestExecutionLifecycleEndpoints(t *testing.T) {
	server, d := newTestServer(t)
	created := createConfiguration(t, server)
	executionID := startExecution(t, server, created.ID)

	for _, action := range []string{"pause", "resume", "stop"} {
		resp := postJSON(t, server.URL+api.ExecutionActionPath(executionID, action), nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s returned %d", action, resp.StatusCode)
		}
	}
	snap, ok := d.executions.Get(executionID)
	if !ok || snap.Status != pipeline.RunIdle {
		t.Fatalf("expected stopped execution, got %+v", snap)
	}

	resp := postJSON(t, server.URL+api.ExecutionActionPath("nope", "pause"), nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown execution, got %d", resp.StatusCode)
	}
}

func TestGetExecutionEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	created := createConfiguration(t, server)
	executionID := startExecution(t, server, created.ID)

	resp, err := http.Get(server.URL + api.ExecutionPath(executionID))
	if err != nil {
		t.Fatalf("get execution: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get execution returned %d", resp.StatusCode)
	}

	var state api.ExecutionState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode execution: %v", err)
	}
	if state.ID != executionID || state.ConfigurationID != created.ID {
		t.Fatalf("unexpected identity %+v", state)
	}
	if state.Status != pipeline.RunRunning || state.CurrentStepIndex != 0 {
		t.Fatalf("expected fresh running execution, got %+v", state)
	}
	if len(state.Steps) != len(created.Steps) {
		t.Fatalf("expected %d step summaries, got %d", len(created.Steps), len(state.Steps))
	}

	missing, err := http.Get(server.URL + api.ExecutionPath("nope"))
	if err != nil {
		t.Fatalf("get missing execution: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestExecuteUnknownConfiguration(t *testing.T) {
	server, _ := newTestServer(t)
	resp := postJSON(t, server.URL+api.RouteExecute, api.ExecuteRequest{ConfigurationID: "nope"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestIngestAndStreamRoundTrip(t *testing.T) {
	server, _ := newTestServer(t)
	created := createConfiguration(t, server)
	executionID := startExecution(t, server, created.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		server.URL+api.UpdatesPath(executionID), nil)
	if err != nil {
		t.Fatalf("build stream request: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Body.Close()
	if got := stream.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}

	update := pipeline.StepUpdate{Status: pipeline.StepInProgress, Progress: 42}
	resp := postJSON(t, server.URL+api.StepUpdatePath(executionID, "extraction"), update, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(stream.Body)
	var payload string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if payload == "" {
		t.Fatalf("no data event received: %v", scanner.Err())
	}
	var received pipeline.StepUpdate
	if err := json.Unmarshal([]byte(payload), &received); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if received.StepID != "extraction" || received.Progress != 42 || received.Sequence == 0 {
		t.Fatalf("unexpected event: %+v", received)
	}
}

func TestStreamReplaysSince(t *testing.T) {
	server, _ := newTestServer(t)
	created := createConfiguration(t, server)
	executionID := startExecution(t, server, created.ID)

	for i := 1; i <= 3; i++ {
		update := pipeline.StepUpdate{Status: pipeline.StepInProgress, Progress: float64(i * 10)}
		resp := postJSON(t, server.URL+api.StepUpdatePath(executionID, "extraction"), update, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("ingest %d returned %d", i, resp.StatusCode)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := fmt.Sprintf("%s%s?since=1", server.URL, api.UpdatesPath(executionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build stream request: %v", err)
	}
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Body.Close()

	scanner := bufio.NewScanner(stream.Body)
	var sequences []uint64
	for scanner.Scan() && len(sequences) < 2 {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			var update pipeline.StepUpdate
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			sequences = append(sequences, update.Sequence)
		}
	}
	if len(sequences) != 2 || sequences[0] != 2 || sequences[1] != 3 {
		t.Fatalf("replay from cursor lost events: %v", sequences)
	}
}

func TestStreamDeliversFullBacklog(t *testing.T) {
	server, d := newTestServer(t)
	created := createConfiguration(t, server)
	executionID := startExecution(t, server, created.ID)

	hub, ok := d.executions.Hub(executionID)
	if !ok {
		t.Fatal("missing hub")
	}
	for i := 1; i <= 100; i++ {
		hub.Publish(pipeline.StepUpdate{StepID: "extraction", Status: pipeline.StepInProgress, Progress: float64(i)})
	}
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+api.UpdatesPath(executionID), nil)
	if err != nil {
		t.Fatalf("build stream request: %v", err)
	}
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Body.Close()

	var sequences []uint64
	scanner := bufio.NewScanner(stream.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var update pipeline.StepUpdate
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		sequences = append(sequences, update.Sequence)
	}
	if len(sequences) != 100 {
		t.Fatalf("stream delivered %d of 100 buffered updates", len(sequences))
	}
	for i, seq := range sequences {
		if seq != uint64(i+1) {
			t.Fatalf("out-of-order delivery at index %d: sequence %d", i, seq)
		}
	}
}

func TestStreamResumesFromLastEventID(t *testing.T) {
	server, _ := newTestServer(t)
	created := createConfiguration(t, server)
	executionID := startExecution(t, server, created.ID)

	for i := 1; i <= 3; i++ {
		update := pipeline.StepUpdate{Status: pipeline.StepInProgress, Progress: float64(i * 10)}
		if resp := postJSON(t, server.URL+api.StepUpdatePath(executionID, "extraction"), update, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("ingest %d returned %d", i, resp.StatusCode)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+api.UpdatesPath(executionID), nil)
	if err != nil {
		t.Fatalf("build stream request: %v", err)
	}
	req.Header.Set("Last-Event-ID", "2")
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Body.Close()

	scanner := bufio.NewScanner(stream.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var update pipeline.StepUpdate
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if update.Sequence != 3 {
			t.Fatalf("expected resume after sequence 2, got %d", update.Sequence)
		}
		return
	}
	t.Fatal("no event received after Last-Event-ID resume")
}

func TestIngestUnknownStep(t *testing.T) {
	server, _ := newTestServer(t)
	created := createConfiguration(t, server)
	executionID := startExecution(t, server, created.ID)

	update := pipeline.StepUpdate{Status: pipeline.StepInProgress}
	resp := postJSON(t, server.URL+api.StepUpdatePath(executionID, "no-such-step"), update, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown step, got %d", resp.StatusCode)
	}
}

func TestRunFromEndpoint(t *testing.T) {
	server, d := newTestServer(t)
	created := createConfiguration(t, server)
	executionID := startExecution(t, server, created.ID)

	for _, stepID := range []string{"extraction", "detection"} {
		update := pipeline.StepUpdate{Status: pipeline.StepSuccess}
		if resp := postJSON(t, server.URL+api.StepUpdatePath(executionID, stepID), update, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("ingest %s returned %d", stepID, resp.StatusCode)
		}
	}

	resp := postJSON(t, server.URL+api.StepRunFromPath(executionID, "detection"), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run-from returned %d", resp.StatusCode)
	}
	snap, _ := d.executions.Get(executionID)
	if snap.Steps[1].Status != pipeline.StepPending {
		t.Fatalf("run-from should reset the step: %+v", snap.Steps[1])
	}
	if snap.Steps[0].Status != pipeline.StepSuccess {
		t.Fatal("earlier steps must keep their state")
	}
}

func TestStatusEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	createConfiguration(t, server)

	resp, err := http.Get(server.URL + api.RouteStatus)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Configurations != 1 || status.PID == 0 || status.DBPath == "" {
		t.Fatalf("unexpected status: %+v", status)
	}
}
