package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"regexp"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tazhibayda/todo-service/internal/domain"
	api "github.com/tazhibayda/todo-service/internal/http"
	"github.com/tazhibayda/todo-service/internal/mail"
	"github.com/tazhibayda/todo-service/internal/oauth"
	"github.com/tazhibayda/todo-service/internal/queue"
	"github.com/tazhibayda/todo-service/internal/repo/memory"
	"github.com/tazhibayda/todo-service/internal/security"
	"github.com/tazhibayda/todo-service/internal/service"
	"github.com/tazhibayda/todo-service/internal/storage"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	security.HashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type inbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (i *inbox) Send(_ context.Context, m mail.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msgs = append(i.msgs, m)
	return nil
}

var otpRe = regexp.MustCompile(`\b(\d{6})\b`)

func (i *inbox) lastCode(t *testing.T) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	require.NotEmpty(t, i.msgs)
	m := otpRe.FindStringSubmatch(i.msgs[len(i.msgs)-1].Body)
	require.Len(t, m, 2)
	return m[1]
}

type stubProvider struct {
	name domain.AuthOrigin
	ids  map[string]oauth.Identity
}

func (s stubProvider) Name() domain.AuthOrigin { return s.name }

func (s stubProvider) ResolveIdentity(_ context.Context, code string) (*oauth.Identity, error) {
	id, ok := s.ids[code]
	if !ok {
		return nil, errors.New("rejected by provider")
	}
	id.Provider = s.name
	return &id, nil
}

type testEnv struct {
	T         *testing.T
	Store     *memory.Store
	Mail      *inbox
	UploadDir string
	Router    *gin.Engine
}

func newTestEnv(t *testing.T, opts ...func(*api.RouterConfig)) *testEnv {
	t.Helper()
	st := memory.New()
	box := &inbox{}
	dir := t.TempDir()
	disk, err := storage.NewDisk(dir)
	require.NoError(t, err)

	events := service.Events{Pub: queue.NewNoop(), Exchange: "todo.events"}
	tokens := security.NewTokens("test-secret", nil, 0)
	google := stubProvider{name: domain.OriginGoogle, ids: map[string]oauth.Identity{
		"header.payload.sig": {Subject: "g-1", Email: "gina@example.com", Name: "Gina", Picture: "https://lh3.example/g.png"},
	}}
	github := stubProvider{name: domain.OriginGitHub, ids: map[string]oauth.Identity{
		"gh-code": {Subject: "77", Name: "octo"},
	}}

	h := &api.Handler{
		Auth:     service.NewAuthService(st, tokens, events, google, github),
		Recovery: service.NewRecoveryService(st, st, st, box, events),
		Todos:    service.NewTodoService(st),
		Profile:  service.NewProfileService(st, disk, 0),
		Tokens:   tokens,
		Checks:   map[string]api.Pinger{"store": st},
	}
	rc := api.RouterConfig{UploadDir: dir, CORSOrigins: []string{"http://localhost:5173"}}
	for _, o := range opts {
		o(&rc)
	}
	r := api.NewRouter(h, rc)
	return &testEnv{T: t, Store: st, Mail: box, UploadDir: dir, Router: r}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.T.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(e.T, err)
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(path, token, filename, ctype string, data []byte) *httptest.ResponseRecorder {
	e.T.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="profilePic"; filename="`+filename+`"`)
	hdr.Set("Content-Type", ctype)
	part, err := mw.CreatePart(hdr)
	require.NoError(e.T, err)
	_, _ = part.Write(data)
	require.NoError(e.T, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type tokenBody struct {
	Token string `json:"token"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (e *testEnv) register(name, email, password string) string {
	e.T.Helper()
	w := e.do(http.MethodPost, "/api/users/register", "", map[string]string{"name": name, "email": email, "password": password})
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())
	tok := decode[tokenBody](e.T, w).Token
	require.NotEmpty(e.T, tok)
	return tok
}
