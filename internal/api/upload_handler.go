package api

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront-service/internal/service"
)

type UploadHandler struct {
	uploadService *service.UploadService
}

func NewUploadHandler(uploadService *service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

func openUpload(fh *multipart.FileHeader) (service.FileUpload, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return service.FileUpload{}, nil, err
	}
	return service.FileUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

// Single --> POST /upload/single
func (h *UploadHandler) Single(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	upload, f, err := openUpload(fh)
	if err != nil {
		return invalidPayload(c)
	}
	defer f.Close()

	result, err := h.uploadService.Upload(c.Request().Context(), upload)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Multiple --> POST /upload/multiple
func (h *UploadHandler) Multiple(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return invalidPayload(c)
	}
	headers := form.File["files"]
	if len(headers) > service.MaxUploadFiles {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Maximum 10 files allowed"})
	}

	uploads := make([]service.FileUpload, 0, len(headers))
	for _, fh := range headers {
		upload, f, err := openUpload(fh)
		if err != nil {
			logger.Warn().Err(err).Msgf("Skipping unreadable upload %s", fh.Filename)
			continue
		}
		defer f.Close()
		uploads = append(uploads, upload)
	}

	results, err := h.uploadService.UploadMany(c.Request().Context(), uploads)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, results)
}

// Delete --> DELETE /upload?file_url=
func (h *UploadHandler) Delete(c echo.Context) error {
	if err := h.uploadService.Delete(c.Request().Context(), c.QueryParam("file_url")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "File deleted successfully"})
}
