package router

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/config"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type objectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *objectStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (s *objectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type testServer struct {
	t       *testing.T
	app     *fiber.App
	db      *gorm.DB
	objects *objectStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	objects := &objectStore{objects: map[string][]byte{}}

	app := fiber.New()
	err := SetupRoutes(app, Dependencies{
		Store: database.NewGORMStore(db, log),
		Env: &config.EnvironmentVariable{
			JWT_SECRET:      "test-secret",
			JWT_ISSUER:      "course-catalog-test",
			ALLOWED_ORIGINS: "http://localhost:3000",
			UPLOAD_MAX_MB:   1,
		},
		Log:              log,
		Objects:          objects,
		DisableAccessLog: true,
	})
	require.NoError(t, err)
	return &testServer{t: t, app: app, db: db, objects: objects}
}

func (s *testServer) do(req *http.Request, token string) (int, envelope) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	var env envelope
	require.NoError(s.t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func (s *testServer) json(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.do(req, token)
}

// register signs up a user and returns its access token; admin promotes it
func (s *testServer) register(email string, admin bool) string {
	s.t.Helper()
	status, env := s.json(http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"email":    email,
		"password": "password123",
		"name":     "Test User",
	})
	require.Equal(s.t, fiber.StatusCreated, status, env.Message)

	var data struct {
		Tokens struct {
			Access  struct{ Token string } `json:"access"`
			Refresh struct{ Token string } `json:"refresh"`
		} `json:"tokens"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))

	if admin {
		require.NoError(s.t, s.db.Model(&model.User{}).Where("email = ?", email).Update("role", model.RoleAdmin).Error)
	}
	return data.Tokens.Access.Token
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type idOrder struct {
	ID    uint `json:"id"`
	Order uint `json:"order"`
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	status, env := s.json(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
}

func TestSubjectWritesRequireAdminAndAreAudited(t *testing.T) {
	s := newTestServer(t)
	student := s.register("student@example.com", false)
	admin := s.register("admin@example.com", true)

	status, _ := s.json(http.MethodPost, "/api/v1/subjects", "", fiber.Map{"title": "Mathematics"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.json(http.MethodPost, "/api/v1/subjects", student, fiber.Map{"title": "Mathematics"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env := s.json(http.MethodPost, "/api/v1/subjects", admin, fiber.Map{"title": "Mathematics"})
	require.Equal(t, fiber.StatusCreated, status)
	subject := decode[model.Subject](t, env)
	assert.Equal(t, "mathematics", subject.Slug)

	status, env = s.json(http.MethodPost, "/api/v1/subjects", admin, fiber.Map{"title": "Maths", "slug": "mathematics"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, _ = s.json(http.MethodPost, "/api/v1/subjects", admin, fiber.Map{"title": "Bad", "slug": "Not A Slug"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	var logs []model.AdminAuditLog
	require.NoError(t, s.db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 3)
	assert.Equal(t, "subject_create", logs[0].Action)
	assert.Equal(t, subject.ID, logs[0].ResourceID)
	assert.Equal(t, fiber.StatusCreated, logs[0].StatusCode)
	assert.Equal(t, fiber.StatusConflict, logs[1].StatusCode)

	status, env = s.json(http.MethodGet, "/api/v1/admin/audit", admin, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
}

func TestCourseModuleContentFlow(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com", false)
	other := s.register("other@example.com", false)
	subject := testutil.SeedSubject(t, s.db, "Programming")

	status, env := s.json(http.MethodPost, "/api/v1/courses", owner, fiber.Map{
		"subject_id": subject.ID,
		"title":      "Go Basics",
		"overview":   "Learn Go",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	course := decode[model.Course](t, env)
	assert.Equal(t, "go-basics", course.Slug)

	modulesPath := fmt.Sprintf("/api/v1/courses/%d/modules", course.ID)
	var modules []idOrder
	for _, body := range []fiber.Map{
		{"title": "Intro"},
		{"title": "Types"},
		{"title": "Pinned", "order": 0},
	} {
		status, env = s.json(http.MethodPost, modulesPath, owner, body)
		require.Equal(t, fiber.StatusCreated, status, env.Message)
		modules = append(modules, decode[idOrder](t, env))
	}
	assert.Equal(t, uint(0), modules[0].Order)
	assert.Equal(t, uint(1), modules[1].Order)
	assert.Equal(t, uint(0), modules[2].Order)

	status, _ = s.json(http.MethodPost, modulesPath, other, fiber.Map{"title": "Hijack"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.json(http.MethodPost, modulesPath, owner, fiber.Map{"title": "Huge", "order": 2147483648})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	contentsPath := fmt.Sprintf("/api/v1/modules/%d/contents", modules[0].ID)
	status, env = s.json(http.MethodPost, contentsPath+"/text", owner, fiber.Map{"title": "Hello", "content": "<p>Hi there</p>"})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	content := decode[struct {
		ID     uint `json:"id"`
		Order  uint `json:"order"`
		ItemID uint `json:"item_id"`
		Item   struct {
			Title   string `json:"title"`
			Excerpt string `json:"excerpt"`
		} `json:"item"`
	}](t, env)
	assert.Equal(t, uint(0), content.Order)
	assert.Equal(t, "Hello", content.Item.Title)

	status, _ = s.json(http.MethodPost, contentsPath+"/quiz", owner, fiber.Map{"title": "Quiz"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = s.json(http.MethodPost, contentsPath, owner, fiber.Map{"item_type": "text", "item_id": content.ItemID})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	assert.Equal(t, uint(1), decode[idOrder](t, env).Order)

	// a deleted item leaves its content rows dangling
	status, _ = s.json(http.MethodDelete, fmt.Sprintf("/api/v1/items/text/%d", content.ItemID), owner, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, env = s.json(http.MethodGet, fmt.Sprintf("/api/v1/contents/%d", content.ID), "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = s.json(http.MethodGet, fmt.Sprintf("/api/v1/courses/%d", course.ID), "", nil)
	require.Equal(t, fiber.StatusOK, status)
	got := decode[struct {
		Modules []idOrder `json:"modules"`
	}](t, env)
	require.Len(t, got.Modules, 3)
	assert.Equal(t, modules[0].ID, got.Modules[0].ID)
	assert.Equal(t, modules[2].ID, got.Modules[1].ID)
	assert.Equal(t, modules[1].ID, got.Modules[2].ID)

	status, env = s.json(http.MethodPut, modulesPath+"/order", owner, fiber.Map{"ids": []uint{modules[1].ID, modules[2].ID, modules[0].ID}})
	require.Equal(t, fiber.StatusOK, status, env.Message)
	reordered := decode[[]idOrder](t, env)
	assert.Equal(t, []idOrder{{modules[1].ID, 0}, {modules[2].ID, 1}, {modules[0].ID, 2}}, reordered)

	status, _ = s.json(http.MethodPut, modulesPath+"/order", owner, fiber.Map{"ids": []uint{9999}})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCourseInlineModuleEdit(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("inline@example.com", false)
	subject := testutil.SeedSubject(t, s.db, "Music")

	status, env := s.json(http.MethodPost, "/api/v1/courses", owner, fiber.Map{
		"subject_id": subject.ID,
		"title":      "Piano",
		"modules":    []fiber.Map{{"title": "Scales"}, {"title": "Chords"}},
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	course := decode[struct {
		ID      uint      `json:"id"`
		Modules []idOrder `json:"modules"`
	}](t, env)
	require.Len(t, course.Modules, 2)

	status, env = s.json(http.MethodPut, fmt.Sprintf("/api/v1/courses/%d", course.ID), owner, fiber.Map{
		"modules": []fiber.Map{
			{"id": course.Modules[0].ID, "delete": true},
			{"id": course.Modules[1].ID, "title": "Chords and inversions"},
			{"title": "Songs"},
		},
	})
	require.Equal(t, fiber.StatusOK, status, env.Message)
	updated := decode[struct {
		Modules []struct {
			ID    uint   `json:"id"`
			Title string `json:"title"`
			Order uint   `json:"order"`
		} `json:"modules"`
	}](t, env)
	require.Len(t, updated.Modules, 2)
	assert.Equal(t, "Chords and inversions", updated.Modules[0].Title)
	assert.Equal(t, "Songs", updated.Modules[1].Title)
	assert.Equal(t, uint(2), updated.Modules[1].Order)
}

func TestImageUpload(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("uploader@example.com", false)
	png, err := base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")
	require.NoError(t, err)

	upload := func(filename string, data []byte) (int, envelope) {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		require.NoError(t, w.WriteField("title", "Pixel"))
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/items/image", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return s.do(req, owner)
	}

	status, env := upload("pixel.png", png)
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	image := decode[model.Image](t, env)
	assert.Equal(t, "image/png", image.ContentType)
	assert.Contains(t, s.objects.objects, image.StorageKey)

	status, env = upload("notes.png", []byte("plain text pretending"))
	assert.Equal(t, fiber.StatusUnsupportedMediaType, status)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", env.Error.Code)

	status, env = s.json(http.MethodGet, "/api/v1/items/image", owner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]model.Image](t, env), 1)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	s := newTestServer(t)
	token := s.register("leaver@example.com", false)

	status, _ := s.json(http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.json(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env := s.json(http.MethodGet, "/api/v1/profile", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Token has been revoked", env.Error.Message)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t)
	s.register("login@example.com", false)

	status, _ := s.json(http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "login@example.com", "password": "wrong-password"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env := s.json(http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "LOGIN@example.com", "password": "password123"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
}
