package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	filesCtl "github.com/Laisky/fingenius-compliance/internal/web/files/controller"
	filesService "github.com/Laisky/fingenius-compliance/internal/web/files/service"
	orgCtl "github.com/Laisky/fingenius-compliance/internal/web/organization/controller"
	orgService "github.com/Laisky/fingenius-compliance/internal/web/organization/service"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/auth"
	"github.com/Laisky/fingenius-compliance/library/jwt"
	"github.com/Laisky/fingenius-compliance/library/log"
)

var (
	ginModeOnce sync.Once
)

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

var testSecret = []byte("test-secret")

var pdfPayload = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

type harness struct {
	server *gin.Engine
	orgs   *memOrganizations
	files  *memFiles
	assets *memAssets
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	setupGinTestMode()

	issuer, err := jwt.NewIssuer(testSecret)
	require.NoError(t, err)
	stager, err := filesService.NewStager(afero.NewMemMapFs(), "/staging")
	require.NoError(t, err)

	h := &harness{
		orgs:   newMemOrganizations(),
		files:  newMemFiles(),
		assets: newMemAssets(),
	}
	orgSvc := orgService.New(log.Logger, h.orgs, issuer, h.assets)
	fileSvc := filesService.New(log.Logger, h.files, h.orgs, h.assets, stager)
	h.server = NewServer(Options{
		Logger:        log.Logger,
		Auth:          auth.New(issuer, apierr.Abort),
		Organizations: orgCtl.New(orgSvc),
		Files:         filesCtl.New(fileSvc),
	})

	return h
}

func (h *harness) do(method, path string, body io.Reader, contentType, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.server.ServeHTTP(w, req)
	return w
}

func (h *harness) doJSON(method, path string, payload any, token string) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}

	return h.do(method, path, bytes.NewReader(body), "application/json", token)
}

func multipartBody(t *testing.T, field, filename, contentType string, payload []byte) (io.Reader, string) {
	t.Helper()
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf, w.FormDataContentType()
}

type sessionBody struct {
	Message      string `json:"message"`
	Token        string `json:"token"`
	Organization struct {
		ID           string `json:"_id"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		Subscription struct {
			Plan   string `json:"plan"`
			Status string `json:"status"`
		} `json:"subscription"`
	} `json:"organization"`
}

type fileBody struct {
	ID          string `json:"_id"`
	Filename    string `json:"filename"`
	DisplayName string `json:"displayName"`
	FileType    string `json:"fileType"`
	FileSize    int64  `json:"fileSize"`
	Status      string `json:"status"`
	URL         string `json:"url"`
}

// pngPayload is a PNG signature padded to size bytes.
func pngPayload(size int) []byte {
	out := make([]byte, size)
	copy(out, "\x89PNG\r\n\x1a\n")
	return out
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func register(t *testing.T, h *harness, email string) sessionBody {
	t.Helper()
	w := h.doJSON(http.MethodPost, "/register", map[string]string{
		"name":     "Acme",
		"email":    email,
		"password": "pw1",
		"industry": "finance",
		"country":  "US",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[sessionBody](t, w)
}

func TestDocumentLifecycle(t *testing.T) {
	h := newHarness(t)

	w := h.doJSON(http.MethodPost, "/api/register", map[string]string{
		"name":     "Acme",
		"email":    "a@acme.com",
		"password": "secret123",
		"industry": "technology",
		"country":  "US",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[sessionBody](t, w)
	require.NotEmpty(t, reg.Token)
	require.Equal(t, "a@acme.com", reg.Organization.Email)
	require.Equal(t, "free", reg.Organization.Subscription.Plan)
	require.Equal(t, "active", reg.Organization.Subscription.Status)
	require.Empty(t, reg.Organization.Password)

	w = h.doJSON(http.MethodPost, "/login", map[string]string{"email": "a@acme.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[sessionBody](t, w)
	require.NotEmpty(t, login.Token)
	require.Equal(t, reg.Organization.ID, login.Organization.ID)

	payload := pngPayload(2 << 20)
	body, ct := multipartBody(t, filesCtl.FileField, "audit scan.png", "image/png", payload)
	w = h.do(http.MethodPost, "/files/upload", body, ct, login.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uploaded := decode[struct {
		Message string   `json:"message"`
		File    fileBody `json:"file"`
	}](t, w)
	require.Equal(t, "File uploaded successfully", uploaded.Message)
	require.Equal(t, "success", uploaded.File.Status)
	require.Equal(t, "audit scan.png", uploaded.File.Filename)
	require.Equal(t, "image/png", uploaded.File.FileType)
	require.Equal(t, int64(len(payload)), uploaded.File.FileSize)
	require.NotEmpty(t, uploaded.File.URL)
	require.Equal(t, 1, h.files.count())
	require.Equal(t, 1, h.assets.storeCalls())

	w = h.do(http.MethodGet, "/files/organization/"+reg.Organization.ID, nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	listed := decode[[]fileBody](t, w)
	require.Len(t, listed, 1)
	require.Equal(t, uploaded.File.ID, listed[0].ID)

	w = h.do(http.MethodDelete, "/files/"+uploaded.File.ID, nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "File deleted successfully", decode[apierr.Response](t, w).Message)

	w = h.do(http.MethodDelete, "/files/"+uploaded.File.ID, nil, "", "")
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = h.do(http.MethodGet, "/api/files/organization/"+reg.Organization.ID, nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Empty(t, decode[[]fileBody](t, w))
}

func TestRouteAliases(t *testing.T) {
	h := newHarness(t)

	w := h.doJSON(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Acme", "email": "a@acme.com", "password": "secret123", "industry": "technology", "country": "US",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[sessionBody](t, w)

	w = h.doJSON(http.MethodPost, "/api/auth/login", map[string]string{"email": "a@acme.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[sessionBody](t, w).Token

	w = h.do(http.MethodGet, "/api/auth/profile", nil, "", token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, path := range []string{
		"/organizations/" + reg.Organization.ID,
		"/api/files/organizations/" + reg.Organization.ID,
	} {
		w = h.do(http.MethodGet, path, nil, "", "")
		require.Equal(t, http.StatusOK, w.Code, path)
		org := decode[struct {
			ID    string `json:"_id"`
			Email string `json:"email"`
		}](t, w)
		require.Equal(t, reg.Organization.ID, org.ID, path)
		require.Equal(t, "a@acme.com", org.Email, path)
	}

	w = h.do(http.MethodGet, "/api/files/organizations/not-an-id", nil, "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodGet, "/api/files/organizations/0123456789abcdef01234567", nil, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterAndLoginErrors(t *testing.T) {
	h := newHarness(t)
	register(t, h, "a@x.com")

	t.Run("duplicate email", func(t *testing.T) {
		w := h.doJSON(http.MethodPost, "/api/register", map[string]string{
			"name": "Other", "email": "A@X.com", "password": "pw2", "industry": "retail", "country": "DE",
		}, "")
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		require.Equal(t, "Organization already exists", decode[apierr.Response](t, w).Message)
		require.Len(t, h.orgs.orgs, 1)
	})

	t.Run("invalid industry", func(t *testing.T) {
		w := h.doJSON(http.MethodPost, "/register", map[string]string{
			"name": "Other", "email": "b@x.com", "password": "pw2", "industry": "mining", "country": "DE",
		}, "")
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})

	t.Run("credentials failures look the same", func(t *testing.T) {
		wrongPassword := h.doJSON(http.MethodPost, "/login", map[string]string{"email": "a@x.com", "password": "nope"}, "")
		unknownEmail := h.doJSON(http.MethodPost, "/login", map[string]string{"email": "z@x.com", "password": "pw1"}, "")

		require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
		require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
		require.Equal(t, "Invalid email or password", decode[apierr.Response](t, wrongPassword).Message)
	})
}

func TestAuthenticationGate(t *testing.T) {
	h := newHarness(t)
	reg := register(t, h, "a@x.com")

	expiredIssuer, err := jwt.NewIssuer(testSecret, jwt.WithClock(func() time.Time {
		return time.Now().Add(-48 * time.Hour)
	}))
	require.NoError(t, err)
	expired, err := expiredIssuer.Sign(reg.Organization.ID, "a@x.com")
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		token   string
		message string
	}{
		"missing token":  {message: "No token provided"},
		"tampered token": {token: reg.Token + "x", message: "Invalid token"},
		"expired token":  {token: expired, message: "Token expired"},
	} {
		body, ct := multipartBody(t, filesCtl.FileField, "a.pdf", "application/pdf", pdfPayload)
		w := h.do(http.MethodPost, "/files/upload", body, ct, tc.token)
		require.Equal(t, http.StatusUnauthorized, w.Code, name)
		require.Equal(t, tc.message, decode[apierr.Response](t, w).Message, name)

		w = h.do(http.MethodGet, "/profile", nil, "", tc.token)
		require.Equal(t, http.StatusUnauthorized, w.Code, name)
	}

	require.Zero(t, h.assets.storeCalls())
	require.Zero(t, h.files.count())

	w := h.do(http.MethodGet, "/profile", nil, "", reg.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	profile := decode[struct {
		ID    string `json:"_id"`
		Email string `json:"email"`
	}](t, w)
	require.Equal(t, reg.Organization.ID, profile.ID)
	require.Equal(t, "a@x.com", profile.Email)
}

func TestUploadRejections(t *testing.T) {
	h := newHarness(t)
	reg := register(t, h, "a@x.com")

	t.Run("unsupported type", func(t *testing.T) {
		body, ct := multipartBody(t, filesCtl.FileField, "notes.txt", "text/plain", []byte("hello"))
		w := h.do(http.MethodPost, "/files/upload", body, ct, reg.Token)
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		require.Equal(t, filesService.UnsupportedTypeMessage, decode[apierr.Response](t, w).Message)
	})

	t.Run("too large", func(t *testing.T) {
		payload := bytes.Repeat([]byte("a"), 15<<20)
		body, ct := multipartBody(t, filesCtl.FileField, "big.pdf", "application/pdf", payload)
		w := h.do(http.MethodPost, "/files/upload", body, ct, reg.Token)
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		require.Contains(t, decode[apierr.Response](t, w).Message, "File too large")
	})

	t.Run("no file", func(t *testing.T) {
		body, ct := multipartBody(t, "other", "a.pdf", "application/pdf", pdfPayload)
		w := h.do(http.MethodPost, "/files/upload", body, ct, reg.Token)
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		require.Equal(t, "No file uploaded", decode[apierr.Response](t, w).Message)
	})

	require.Zero(t, h.assets.storeCalls())
	require.Zero(t, h.files.count())
}

func TestMalformedIdentifiers(t *testing.T) {
	h := newHarness(t)
	reg := register(t, h, "a@x.com")
	body, ct := multipartBody(t, filesCtl.FileField, "a.pdf", "application/pdf", pdfPayload)
	w := h.do(http.MethodPost, "/files/upload", body, ct, reg.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for _, path := range []string{
		"/files/organization/not-an-id",
		"/organizations/12345",
		"/api/organizations/zzzzzzzzzzzzzzzzzzzzzzzz",
	} {
		w = h.do(http.MethodGet, path, nil, "", "")
		require.Equal(t, http.StatusBadRequest, w.Code, path)
		resp := decode[apierr.Response](t, w)
		require.Equal(t, "Invalid organization ID format", resp.Message, path)
		require.Equal(t, "organization ID must be a valid MongoDB ObjectId", resp.Error, path)
	}

	for _, path := range []string{"/files/abc", "/api/files/0123456789abcdef0123456z"} {
		w = h.do(http.MethodDelete, path, nil, "", "")
		require.Equal(t, http.StatusBadRequest, w.Code, path)
		require.Equal(t, "Invalid file ID format", decode[apierr.Response](t, w).Message, path)
	}
	require.Equal(t, 1, h.files.count())
	require.Equal(t, 1, h.assets.objectCount())
	require.Zero(t, h.assets.deletes())

	w = h.do(http.MethodGet, "/organizations/0123456789abcdef01234567", nil, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(http.MethodGet, "/files/organization/0123456789abcdef01234567", nil, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfilePhoto(t *testing.T) {
	h := newHarness(t)
	reg := register(t, h, "a@x.com")

	body, ct := multipartBody(t, orgCtl.PhotoField, "logo.png", "image/png", []byte("\x89PNG\r\n\x1a\n"))
	w := h.do(http.MethodPost, "/organization/photo", body, ct, reg.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		ProfileImageURL string `json:"profileImageUrl"`
	}](t, w)
	require.Contains(t, resp.ProfileImageURL, orgService.ProfilePhotoFolder)

	w = h.do(http.MethodGet, "/organization", nil, "", reg.Token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), resp.ProfileImageURL)
}

func TestNewStatusHandler(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	handler := newStatusHandler()
	router := gin.New()
	router.GET("/status", handler)
	router.HEAD("/status", handler)
	router.OPTIONS("/status", handler)

	t.Run("GET returns ok", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", strings.TrimSpace(w.Body.String()))
		assert.Equal(t, "GET, HEAD, OPTIONS", w.Header().Get("Allow"))
	})

	t.Run("HEAD returns 200", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodHead, "/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "GET, HEAD, OPTIONS", w.Header().Get("Allow"))
	})

	t.Run("OPTIONS returns 200", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodOptions, "/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "GET, HEAD, OPTIONS", w.Header().Get("Allow"))
	})
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/health", "/api/health"} {
		w := h.do(http.MethodGet, path, nil, "", "")
		require.Equal(t, http.StatusOK, w.Code, path)
	}

	w := h.do(http.MethodGet, "/metrics", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/nowhere", nil, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Route not found", decode[apierr.Response](t, w).Message)
}

func TestCORSConfig(t *testing.T) {
	t.Parallel()

	cfg := corsConfig(nil)
	require.True(t, cfg.AllowAllOrigins)
	require.Contains(t, cfg.AllowHeaders, "Authorization")

	cfg = corsConfig([]string{"*", "https://app.example.com"})
	require.True(t, cfg.AllowAllOrigins)

	cfg = corsConfig([]string{" https://app.example.com/ ", ""})
	require.False(t, cfg.AllowAllOrigins)
	require.Equal(t, []string{"https://app.example.com"}, cfg.AllowOrigins)
	require.True(t, cfg.AllowCredentials)
}
