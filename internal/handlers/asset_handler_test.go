package handlers_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arcane-tl/asset-service/internal/auth"
	"github.com/arcane-tl/asset-service/internal/handlers"
	"github.com/arcane-tl/asset-service/internal/models"
	"github.com/arcane-tl/asset-service/internal/reconcile"
	"github.com/arcane-tl/asset-service/internal/recordstore"
	"github.com/arcane-tl/asset-service/internal/routes"
	"github.com/arcane-tl/asset-service/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type memRecords struct {
	mu   sync.Mutex
	data map[string]any
	seq  int
}

func (m *memRecords) Fetch(_ context.Context, path string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[path]
	if !ok {
		return recordstore.ErrNotFound
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func (m *memRecords) Set(_ context.Context, path string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = value
	return nil
}

func (m *memRecords) Update(_ context.Context, path string, partial map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := bson.M{}
	if v, ok := m.data[path]; ok {
		raw, err := bson.Marshal(v)
		if err != nil {
			return err
		}
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return err
		}
	}
	for k, v := range partial {
		if v == nil {
			delete(doc, k)
		} else {
			doc[k] = v
		}
	}
	m.data[path] = doc
	return nil
}

func (m *memRecords) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, path)
	return nil
}

func (m *memRecords) PushChild(string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("id-%d", m.seq)
}

func (m *memRecords) MultiUpdate(ctx context.Context, updates map[string]any) error {
	for path, v := range updates {
		if v == nil {
			if err := m.Remove(ctx, path); err != nil {
				return err
			}
			continue
		}
		if err := m.Set(ctx, path, v); err != nil {
			return err
		}
	}
	return nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) Upload(_ context.Context, key, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "https://cdn.example/" + key, nil
}

func (m *memObjects) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Exists(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memObjects) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.Unlock()
	for _, k := range keys {
		if err := m.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

type testAPI struct {
	app     *fiber.App
	records *memRecords
	objects *memObjects
	token   string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPath := filepath.Join(t.TempDir(), "jwt.pub")
	require.NoError(t, os.WriteFile(pubPath,
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))
	verifier, err := auth.NewJWTVerifier(pubPath)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	records := &memRecords{data: map[string]any{}}
	objects := &memObjects{objects: map[string][]byte{}}
	reconciler := reconcile.New(records, objects, reconcile.Options{}, log)
	assetSvc := services.NewAssetService(records, objects, reconciler, nil, time.Minute, log)
	userSvc := services.NewUserService(records, log)

	app := fiber.New()
	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	routes.Setup(app, verifier,
		handlers.NewAssetHandler(assetSvc, userSvc, log),
		handlers.NewUserHandler(userSvc, log),
		passthrough)

	return &testAPI{app: app, records: records, objects: objects, token: token}
}

func (a *testAPI) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+a.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPIRejectsMissingToken(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndGetAsset(t *testing.T) {
	api := newTestAPI(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "Car"))
	require.NoError(t, w.WriteField("currentValue", "15000"))
	require.NoError(t, w.Close())

	resp := api.do(t, http.MethodPost, "/api/v1/assets", &buf, w.FormDataContentType())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assetID := data["id"].(string)
	require.NotEmpty(t, assetID)

	resp = api.do(t, http.MethodGet, "/api/v1/assets/"+assetID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "Car", got["name"])
	assert.EqualValues(t, 15000, got["currentValue"])
}

func TestCreateAssetValidationError(t *testing.T) {
	api := newTestAPI(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", ""))
	require.NoError(t, w.Close())

	resp := api.do(t, http.MethodPost, "/api/v1/assets", &buf, w.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetMissingAssetReturns404(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodGet, "/api/v1/assets/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReconcileFilesEndpoint(t *testing.T) {
	api := newTestAPI(t)

	// seed one asset with an existing attachment
	prefix := models.FileStoragePrefix("u1", "a1")
	api.records.data[models.AssetPath("u1", "a1")] = models.Asset{
		Name:    "Car",
		Created: time.Now().UTC(),
		Files: map[string]models.FileMetadata{
			"f1": {Name: "old.jpg", URL: "https://cdn.example/" + prefix + "old.jpg", Path: prefix + "old.jpg"},
		},
	}
	api.records.data[models.AssetFilesPath("u1", "a1")] = map[string]models.FileMetadata{
		"f1": {Name: "old.jpg", URL: "https://cdn.example/" + prefix + "old.jpg", Path: prefix + "old.jpg"},
	}
	api.objects.objects[prefix+"old.jpg"] = []byte("old")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("delete", "f1"))
	fw, err := w.CreateFormFile("files", "new.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp := api.do(t, http.MethodPut, "/api/v1/assets/a1/files", &buf, w.FormDataContentType())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	files := decodeBody(t, resp)["data"].(map[string]any)["files"].(map[string]any)
	require.Len(t, files, 1)
	for _, v := range files {
		f := v.(map[string]any)
		assert.Equal(t, "new.pdf", f["name"])
		assert.Equal(t, prefix+"new.pdf", f["path"])
	}
	_, oldExists := api.objects.objects[prefix+"old.jpg"]
	assert.False(t, oldExists)
}

func TestDeleteAssetEndpoint(t *testing.T) {
	api := newTestAPI(t)
	key := models.FileStoragePrefix("u1", "a1") + "photo.jpg"
	api.records.data[models.AssetPath("u1", "a1")] = models.Asset{
		Name:    "Car",
		Created: time.Now().UTC(),
		Files: map[string]models.FileMetadata{
			"f1": {Name: "photo.jpg", URL: "https://cdn.example/" + key, Path: key},
		},
	}
	api.objects.objects[key] = []byte("img")

	resp := api.do(t, http.MethodDelete, "/api/v1/assets/a1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, recExists := api.records.data[models.AssetPath("u1", "a1")]
	assert.False(t, recExists)
	_, objExists := api.objects.objects[key]
	assert.False(t, objExists)
}

func TestProfileLifecycle(t *testing.T) {
	api := newTestAPI(t)

	body, _ := json.Marshal(map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
	})
	resp := api.do(t, http.MethodPost, "/api/v1/profile", bytes.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/profile", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "Ada", got["firstName"])

	// registration wrote an audit entry
	entry, ok := api.records.data[models.AuditLogPath("u1")+"/id-1"].(models.AuditEntry)
	require.True(t, ok)
	assert.Equal(t, "user.register", entry.Name)

	resp = api.do(t, http.MethodGet, "/api/v1/profile/audit", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserEventEndpoints(t *testing.T) {
	api := newTestAPI(t)

	body, _ := json.Marshal(map[string]any{
		"name": "Inspection",
		"time": time.Now().UTC().Format(time.RFC3339),
	})
	resp := api.do(t, http.MethodPost, "/api/v1/events", bytes.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decodeBody(t, resp)["data"].(map[string]any)["id"].(string)
	require.NotEmpty(t, id)

	_, stored := api.records.data[models.UserEventsPath("u1")+"/"+id]
	assert.True(t, stored)

	body, _ = json.Marshal(map[string]string{})
	resp = api.do(t, http.MethodPost, "/api/v1/events", bytes.NewReader(body), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodDelete, "/api/v1/events/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, stored = api.records.data[models.UserEventsPath("u1")+"/"+id]
	assert.False(t, stored)
}

func TestAssetEventEndpointMissingUpdateReturns404(t *testing.T) {
	api := newTestAPI(t)
	body, _ := json.Marshal(map[string]string{"name": "Service"})
	resp := api.do(t, http.MethodPatch, "/api/v1/assets/a1/events/nope", bytes.NewReader(body), "application/json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategoriesEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.records.data["assetCategories"] = map[string]string{"c1": "Vehicles", "c2": "Electronics"}

	resp := api.do(t, http.MethodGet, "/api/v1/categories", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cats := decodeBody(t, resp)["data"].([]any)
	assert.Equal(t, []any{"Electronics", "Vehicles"}, cats)
}
