package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/docflow-server/internal/auth"
	"github.com/vovakirdan/docflow-server/internal/config"
	"github.com/vovakirdan/docflow-server/internal/core"
	"github.com/vovakirdan/docflow-server/internal/notify"
	"github.com/vovakirdan/docflow-server/internal/objectstore"
	"github.com/vovakirdan/docflow-server/internal/proto"
	"github.com/vovakirdan/docflow-server/internal/service/categories"
	"github.com/vovakirdan/docflow-server/internal/service/documents"
	"github.com/vovakirdan/docflow-server/internal/store/sqlite"
)

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "mem://" + key, nil
}

func (m *memObjects) Get(_ context.Context, key string) (*objectstore.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, objectstore.ErrNotFound
	}
	return &objectstore.Object{Body: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data)), ContentType: "text/plain"}, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) PresignGet(_ context.Context, key, _ string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("mem://signed/%s?ttl=%s", key, ttl), nil
}

type testEnv struct {
	server  *httptest.Server
	auth    *auth.Service
	hub     *core.Hub
	stopHub context.CancelFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := core.NewHub(nil)
	go hub.Run(ctx)
	<-hub.Ready()

	cfg := config.Default()
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
	emitter := notify.NewEmitter(hub, st, nil)

	deps := Deps{
		Hub:   hub,
		Auth:  authService,
		Store: st,
		Documents: documents.New(documents.Options{
			Store:   st,
			Objects: &memObjects{objects: make(map[string][]byte)},
			Events:  emitter,
			Upload:  cfg.Upload,
		}),
		Categories: categories.New(st, emitter),
		Emitter:    emitter,
	}

	ts := httptest.NewServer(NewRouter(deps, &cfg, nil))
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, auth: authService, hub: hub, stopHub: cancel}
}

// signup registers a user and returns its token and id. admin promotes before logging in.
func (e *testEnv) signup(t *testing.T, email string, admin bool) (string, string) {
	t.Helper()

	ctx := context.Background()
	user, err := e.auth.Register(ctx, email, strings.Split(email, "@")[0], "password123")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	if admin {
		if _, err := e.auth.Promote(ctx, email); err != nil {
			t.Fatalf("promote %s: %v", email, err)
		}
	}
	token, _, err := e.auth.Login(ctx, email, "password123")
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return token, user.ID
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	return e.do(t, method, path, token, body, "application/json")
}

func (e *testEnv) upload(t *testing.T, token, filename, content string, fields map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()

	return e.do(t, http.MethodPost, "/api/documents/upload", token, &buf, mw.FormDataContentType())
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func joinRoom(t *testing.T, ctx context.Context, conn *websocket.Conn, userID string) {
	t.Helper()

	data, _ := json.Marshal(userID)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoinRoom, Data: data}); err != nil {
		t.Fatalf("write joinRoom: %v", err)
	}
}

// readUntil reads frames until one matches, skipping everything else.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(proto.RawOutbound) bool) proto.RawOutbound {
	t.Helper()

	for {
		var out proto.RawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read outbound: %v", err)
		}
		if match(out) {
			return out
		}
	}
}

func isEvent(name string) func(proto.RawOutbound) bool {
	return func(out proto.RawOutbound) bool {
		return out.Type == proto.OutboundTypeEvent && out.Event == name
	}
}

func isError(out proto.RawOutbound) bool {
	return out.Type == proto.OutboundTypeError
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}
