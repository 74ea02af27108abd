//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/auth"
	"github.com/iyhunko/product-catalog/internal/blob"
	"github.com/iyhunko/product-catalog/internal/config"
	httpAPI "github.com/iyhunko/product-catalog/internal/http"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
	"github.com/iyhunko/product-catalog/internal/repository"
	repomongo "github.com/iyhunko/product-catalog/internal/repository/mongo"
	reposql "github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0x02}, 32)...)

func setupRouter(t *testing.T, repo repository.ProductRepository) *gin.Engine {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Blob: config.Blob{
			Backend:        config.BlobBackendLocal,
			Dir:            t.TempDir(),
			PublicPath:     "/uploads",
			MaxUploadBytes: 1 << 20,
			UploadTimeout:  10 * time.Second,
		},
		Admin: config.Admin{
			Username:     "admin",
			PasswordHash: string(hash),
			TokenSecret:  "integration-secret",
			TokenTTL:     time.Hour,
		},
	}

	store, err := blob.NewLocalStore(cfg.Blob.Dir, cfg.Blob.PublicPath, cfg.Blob.MaxUploadBytes)
	require.NoError(t, err)

	authenticator := auth.NewAuthenticator(cfg.Admin)
	productService := service.NewProductService(repo, store, service.WithUploadTimeout(cfg.Blob.UploadTimeout))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	return httpAPI.InitRouter(cfg, router,
		middleware.New(cfg, authenticator),
		controller.New(cfg, authenticator),
		controller.NewProductController(productService),
	)
}

func login(t *testing.T, router *gin.Engine) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "admin-pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp controller.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func serve(router *gin.Engine, req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func productForm(t *testing.T, method, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "product.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func runCatalogScenario(t *testing.T, router *gin.Engine) {
	token := login(t, router)

	// create three products, the second one with an image
	var ids []string
	for i, name := range []string{"Phone X", "Tablet Y", "Watch Z"} {
		var image []byte
		if i == 1 {
			image = pngImage
		}
		w := serve(router, productForm(t, http.MethodPost, "/api/products", map[string]string{
			"name": name, "price": "1500.50", "description": name + " description", "category": "gadgets",
		}, image), token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created controller.ProductResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, name, created.Name)
		assert.Equal(t, 1500.50, created.Price)
		assert.Equal(t, i == 1, created.Image != nil)
		ids = append(ids, created.ID)

		// the stored record matches the create response
		w = serve(router, httptest.NewRequest(http.MethodGet, "/api/products/"+created.ID, nil), "")
		require.Equal(t, http.StatusOK, w.Code)
		var fetched controller.ProductResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
		assert.Equal(t, created, fetched)
	}

	// list returns them in insertion order
	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/products", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []controller.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	for i, p := range list {
		assert.Equal(t, ids[i], p.ID)
	}

	// partial update keeps untouched fields
	w = serve(router, productForm(t, http.MethodPut, "/api/products/"+ids[1], map[string]string{"price": "99"}, nil), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated controller.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 99.0, updated.Price)
	assert.Equal(t, "Tablet Y", updated.Name)
	require.NotNil(t, updated.Image)
	assert.Equal(t, list[1].Image, updated.Image)
	assert.Equal(t, list[1].CreatedAt, updated.CreatedAt)

	// delete removes the record and its image
	w = serve(router, httptest.NewRequest(http.MethodDelete, "/api/products/"+ids[1], nil), token)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/products/"+ids[1], nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, *updated.Image, nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodDelete, "/api/products/"+ids[1], nil), token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogAPI_Postgres_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	router := setupRouter(t, reposql.NewProductRepository(testDB.DB))

	t.Run("catalog lifecycle", func(t *testing.T) {
		testDB.TruncateTables(t)
		runCatalogScenario(t, router)
	})

	t.Run("validation failure leaves no row", func(t *testing.T) {
		testDB.TruncateTables(t)
		token := login(t, router)

		w := serve(router, productForm(t, http.MethodPost, "/api/products", map[string]string{
			"name": "Invalid Product", "price": "-10", "description": "d",
		}, nil), token)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var count int
		require.NoError(t, testDB.DB.QueryRow("SELECT COUNT(*) FROM products").Scan(&count))
		assert.Zero(t, count)
	})
}

func TestCatalogAPI_Mongo_Integration(t *testing.T) {
	db := SetupTestMongo(t)
	router := setupRouter(t, repomongo.NewProductRepository(db))

	runCatalogScenario(t, router)
}
