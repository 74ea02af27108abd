package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/service"
)

const (
	imageField = "image"

	msgProductNotFound = "Product not found"
	msgUploadTooLarge  = "Image exceeds the maximum upload size"
	msgInvalidBody     = "Invalid request body"
	msgUploadTimeout   = "Image upload timed out"
)

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	productService *service.ProductService
}

// NewProductController creates a new ProductController with the given product service.
func NewProductController(productService *service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// ProductResponse represents the response body for a product.
type ProductResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       *string `json:"image"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// productForm binds multipart and urlencoded bodies. Absent fields stay nil.
type productForm struct {
	Name        *string               `form:"name"`
	Price       *string               `form:"price"`
	Description *string               `form:"description"`
	Category    *string               `form:"category"`
	Image       *multipart.FileHeader `form:"image"`
}

// productJSON binds JSON bodies, which cannot carry an image.
type productJSON struct {
	Name        *string     `json:"name"`
	Price       *priceValue `json:"price"`
	Description *string     `json:"description"`
	Category    *string     `json:"category"`
}

// priceValue accepts a JSON number or a string and keeps the raw text for validation.
type priceValue string

func (p *priceValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = priceValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price must be a number or a string")
	}
	*p = priceValue(n.String())
	return nil
}

// ListProducts handles the HTTP GET request for listing all products.
func (pc *ProductController) ListProducts(c *gin.Context) {
	products, err := pc.productService.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch products")
		return
	}

	productResponses := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		productResponses = append(productResponses, toProductResponse(product))
	}
	c.JSON(http.StatusOK, productResponses)
}

// GetProduct handles the HTTP GET request for a single product.
func (pc *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := pc.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch product")
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

// CreateProduct handles the HTTP POST request for creating a new product.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	form, err := bindProduct(c)
	if err != nil {
		respondBindError(c, err)
		return
	}

	upload, closeUpload, err := openUpload(form.Image)
	if err != nil {
		respondError(c, err, "Failed to add product")
		return
	}
	defer closeUpload()

	input := service.CreateProductInput{
		Name:        deref(form.Name),
		Price:       deref(form.Price),
		Description: deref(form.Description),
		Category:    deref(form.Category),
	}
	createdProduct, err := pc.productService.CreateProduct(c.Request.Context(), input, upload)
	if err != nil {
		respondError(c, err, "Failed to add product")
		return
	}

	c.JSON(http.StatusCreated, toProductResponse(createdProduct))
}

// UpdateProduct handles the HTTP PUT request for a partial product update.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	form, err := bindProduct(c)
	if err != nil {
		respondBindError(c, err)
		return
	}

	upload, closeUpload, err := openUpload(form.Image)
	if err != nil {
		respondError(c, err, "Failed to update product")
		return
	}
	defer closeUpload()

	input := service.UpdateProductInput{
		Name:        form.Name,
		Price:       form.Price,
		Description: form.Description,
		Category:    form.Category,
	}
	updatedProduct, err := pc.productService.UpdateProduct(c.Request.Context(), id, input, upload)
	if err != nil {
		respondError(c, err, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, toProductResponse(updatedProduct))
}

// DeleteProduct handles the HTTP DELETE request for deleting a product by ID.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := pc.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// OrderLink handles the HTTP GET request for a product's order link.
func (pc *ProductController) OrderLink(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	link, err := pc.productService.OrderLink(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to build order link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}

// OrderLinksEnabled reports whether the order link route should be registered.
func (pc *ProductController) OrderLinksEnabled() bool {
	return pc.productService.OrderLinksEnabled()
}

// bindProduct reads product fields from a JSON, multipart or urlencoded body.
func bindProduct(c *gin.Context) (productForm, error) {
	var form productForm

	switch c.ContentType() {
	case binding.MIMEJSON:
		var body productJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			return form, err
		}
		form.Name = body.Name
		form.Description = body.Description
		form.Category = body.Category
		if body.Price != nil {
			price := string(*body.Price)
			form.Price = &price
		}
		return form, nil
	case binding.MIMEMultipartPOSTForm:
		// parse with the engine memory limit so large files spill to disk
		if _, err := c.MultipartForm(); err != nil {
			return form, err
		}
		return form, c.ShouldBindWith(&form, binding.FormMultipart)
	default:
		return form, c.ShouldBindWith(&form, binding.Form)
	}
}

// openUpload returns nil when no file was chosen. Browsers still send an empty image part with
// filename="" in that case, which binds to a zero FileHeader.
func openUpload(fh *multipart.FileHeader) (*service.Upload, func(), error) {
	if fh == nil || (fh.Filename == "" && fh.Size == 0) {
		return nil, func() {}, nil
	}
	file, err := fh.Open()
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	closeFile := func() {
		if err := file.Close(); err != nil {
			slog.Warn("Failed to close uploaded file", slog.Any("err", err))
		}
	}
	return &service.Upload{Filename: fh.Filename, Content: file}, closeFile, nil
}

// parseID writes a 404 for ids that cannot belong to any product.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": msgProductNotFound})
		return uuid.Nil, false
	}
	return id, true
}

func respondBindError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgUploadTooLarge})
		return
	}
	slog.Debug("Failed to bind product request", slog.Any("err", err))
	c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
}

// respondError maps service errors to status codes. Unexpected errors are logged and
// answered with the generic fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgProductNotFound})
	case errors.Is(err, service.ErrOrderLinksDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	case errors.Is(err, service.ErrDependencyTimeout):
		slog.Error(fallback, slog.Any("err", err), slog.String("path", c.Request.URL.Path))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": msgUploadTimeout})
	default:
		_ = c.Error(err)
		slog.Error(fallback, slog.Any("err", err), slog.String("path", c.Request.URL.Path), slog.String("method", c.Request.Method))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toProductResponse(product *model.Product) ProductResponse {
	return ProductResponse{
		ID:          product.ID.String(),
		Name:        product.Name,
		Price:       product.Price,
		Description: product.Description,
		Category:    product.Category,
		Image:       product.Image,
		CreatedAt:   product.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   product.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
