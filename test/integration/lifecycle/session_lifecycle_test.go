//go:build integration

package lifecycle_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/sessionfsd/pkg/api"
	"github.com/marmos91/sessionfsd/pkg/fileio"
	"github.com/marmos91/sessionfsd/pkg/observer"
	"github.com/marmos91/sessionfsd/pkg/pathgate"
	"github.com/marmos91/sessionfsd/pkg/session"
)

// newTestServer wires the real OS-backed File I/O capability, path gate, and
// session manager behind the HTTP router, the way cmd/sessionfsd/commands
// does at startup, rooted at a scratch directory for the duration of the
// test.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	root := t.TempDir()
	io := fileio.NewOS()
	gate, err := pathgate.New(io, root)
	if err != nil {
		t.Fatalf("pathgate.New: %v", err)
	}

	manager := session.NewManager(session.Config{
		IO:        io,
		Gate:      gate,
		Tree:      observer.NewTree(nil),
		ChunkSize: 512,
	})

	router := api.NewRouter(manager, false, time.Now())
	return httptest.NewServer(router), root
}

type apiEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func TestFullOpenWriteCloseRoundTrip(t *testing.T) {
	server, root := newTestServer(t)
	defer server.Close()

	filePath := filepath.Join(root, "report.txt")
	if err := os.WriteFile(filePath, []byte("original content"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	openPayload, _ := json.Marshal(map[string]any{
		"original_path": filePath,
		"owner_id":      1001,
	})
	openResp, err := http.Post(server.URL+"/sessions/open", "application/json", bytes.NewReader(openPayload))
	if err != nil {
		t.Fatalf("open request: %v", err)
	}
	defer openResp.Body.Close()

	if openResp.StatusCode != http.StatusOK {
		t.Fatalf("open status = %d", openResp.StatusCode)
	}

	var openEnvelope apiEnvelope
	if err := json.NewDecoder(openResp.Body).Decode(&openEnvelope); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	var openData struct {
		HandleID uint32 `json:"handle_id"`
	}
	if err := json.Unmarshal(openEnvelope.Data, &openData); err != nil {
		t.Fatalf("decode open data: %v", err)
	}
	if openData.HandleID == 0 {
		t.Fatal("expected non-zero handle_id")
	}

	listResp, err := http.Get(server.URL + "/sessions")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer listResp.Body.Close()
	var listEnvelope apiEnvelope
	_ = json.NewDecoder(listResp.Body).Decode(&listEnvelope)
	var sessions []map[string]any
	_ = json.Unmarshal(listEnvelope.Data, &sessions)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 published session, got %d", len(sessions))
	}

	closePayload, _ := json.Marshal(map[string]any{
		"handle_id": openData.HandleID,
		"owner_id":  1001,
	})
	closeResp, err := http.Post(server.URL+"/sessions/close", "application/json", bytes.NewReader(closePayload))
	if err != nil {
		t.Fatalf("close request: %v", err)
	}
	defer closeResp.Body.Close()
	if closeResp.StatusCode != http.StatusOK {
		t.Fatalf("close status = %d", closeResp.StatusCode)
	}

	listResp2, err := http.Get(server.URL + "/sessions")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer listResp2.Body.Close()
	var listEnvelope2 apiEnvelope
	_ = json.NewDecoder(listResp2.Body).Decode(&listEnvelope2)
	var sessionsAfter []map[string]any
	_ = json.Unmarshal(listEnvelope2.Data, &sessionsAfter)
	if len(sessionsAfter) != 0 {
		t.Fatalf("expected session to be detached after close, got %d", len(sessionsAfter))
	}
}

func TestShutdownKeepsLiveIncarnations(t *testing.T) {
	server, root := newTestServer(t)
	defer server.Close()

	filePath := filepath.Join(root, "data.bin")
	if err := os.WriteFile(filePath, []byte("payload"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	openPayload, _ := json.Marshal(map[string]any{
		"original_path": filePath,
		"owner_id":      os.Getpid(),
	})
	openResp, err := http.Post(server.URL+"/sessions/open", "application/json", bytes.NewReader(openPayload))
	if err != nil {
		t.Fatalf("open request: %v", err)
	}
	defer openResp.Body.Close()
	if openResp.StatusCode != http.StatusOK {
		t.Fatalf("open status = %d", openResp.StatusCode)
	}

	shutdownResp, err := http.Post(server.URL+"/shutdown", "application/json", nil)
	if err != nil {
		t.Fatalf("shutdown request: %v", err)
	}
	defer shutdownResp.Body.Close()
	if shutdownResp.StatusCode != http.StatusOK {
		t.Fatalf("shutdown status = %d", shutdownResp.StatusCode)
	}

	var shutdownEnvelope apiEnvelope
	if err := json.NewDecoder(shutdownResp.Body).Decode(&shutdownEnvelope); err != nil {
		t.Fatalf("decode shutdown response: %v", err)
	}
	var shutdownData struct {
		LiveSessionsNum int `json:"live_sessions_num"`
	}
	_ = json.Unmarshal(shutdownEnvelope.Data, &shutdownData)

	// Our own PID is alive, so the incarnation opened above survives the reap.
	if shutdownData.LiveSessionsNum != 1 {
		t.Errorf("live_sessions_num = %d, want 1", shutdownData.LiveSessionsNum)
	}

	openAfterShutdown, _ := json.Marshal(map[string]any{
		"original_path": filePath,
		"owner_id":      os.Getpid(),
	})
	resp, err := http.Post(server.URL+"/sessions/open", "application/json", bytes.NewReader(openAfterShutdown))
	if err != nil {
		t.Fatalf("post-shutdown open request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("post-shutdown open status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}
