package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-receipt-service/internal/domain"
	"github.com/tbourn/go-receipt-service/internal/http/middleware"
	"github.com/tbourn/go-receipt-service/internal/services"
	"github.com/tbourn/go-receipt-service/internal/storage"
)

// ReceiptService is the receipt workflow consumed by the handlers.
type ReceiptService interface {
	Create(ctx context.Context, req domain.ReceiptRequest) (*domain.Receipt, error)
	Get(ctx context.Context, id string) (*domain.ReceiptRecord, error)
}

// IdempotencyStore records which receipt a client's Idempotency-Key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, clientID, scope, key string, now time.Time) (receiptID string, found bool, err error)
	Save(ctx context.Context, clientID, scope, key, receiptID string, status int) error
}

// ReceiptResponse is returned by receipt creation.
type ReceiptResponse struct {
	OK       bool   `json:"ok" example:"true"`
	ID       string `json:"id" example:"AGR-1717236000000-X7K2QD"`
	URL      string `json:"url" example:"/receipts/1717236000000-AGR-1717236000000-X7K2QD.pdf"`
	Download string `json:"download" example:"/receipts/1717236000000-AGR-1717236000000-X7K2QD.pdf?download=1"`
	Name     string `json:"name" example:"Ana Pérez"`
	Email    string `json:"email" example:"ana@example.com"`
	Emailed  bool   `json:"emailed" example:"false"`
}

func downloadURL(u string) string { return u + "?download=1" }

// CreateReceipt godoc
// @ID          createReceipt
// @Summary     Create a receipt
// @Description Renders the appointment receipt to PDF, stores it and emails it when a mail backend is configured. Email failure does not fail the request (emailed=false).
// @Tags        Receipts
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Replay-safe key"
// @Param       body             body    domain.ReceiptRequest  true  "Appointment form"
// @Success     200  {object}  handlers.ReceiptResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     429  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /receipts [post]
func (h *Handlers) CreateReceipt(c *gin.Context) {
	ctx := c.Request.Context()
	key, hasKey := middleware.GetIdempotencyKey(c)
	clientID, scope := middleware.ClientID(c), middleware.IdempotencyScope(c)

	if hasKey && h.idem != nil && middleware.IsReplay(c) {
		if resp, found := h.replay(c, clientID, scope, key); found {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, resp)
			return
		}
	}

	var req domain.ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	rec, err := h.receipts.Create(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			fail(c, http.StatusBadRequest, ErrCodeValidation, "name and email are required")
		case errors.Is(err, services.ErrRender):
			fail(c, http.StatusInternalServerError, ErrCodeRender, "could not generate the receipt PDF")
		case errors.Is(err, services.ErrStorage):
			fail(c, http.StatusInternalServerError, ErrCodeStorage, "could not save the receipt")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		}
		middleware.LoggerFrom(c).Debug().Err(err).Msg("receipt creation failed")
		return
	}

	if hasKey && h.idem != nil {
		if err := h.idem.Save(ctx, clientID, scope, key, rec.ID, http.StatusOK); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("receipt_id", rec.ID).Msg("idempotency record not saved")
		}
	}

	ok(c, http.StatusOK, ReceiptResponse{
		OK:       true,
		ID:       rec.ID,
		URL:      rec.PublicURL,
		Download: downloadURL(rec.PublicURL),
		Name:     rec.Name,
		Email:    rec.Email,
		Emailed:  rec.Emailed,
	})
}

func (h *Handlers) replay(c *gin.Context, clientID, scope, key string) (ReceiptResponse, bool) {
	ctx := c.Request.Context()
	id, found, err := h.idem.Lookup(ctx, clientID, scope, key, time.Now().UTC())
	if err != nil || !found {
		return ReceiptResponse{}, false
	}
	rec, err := h.receipts.Get(ctx, id)
	if err != nil {
		return ReceiptResponse{}, false
	}
	return ReceiptResponse{
		OK:       true,
		ID:       rec.ID,
		URL:      rec.URL,
		Download: downloadURL(rec.URL),
		Name:     rec.Name,
		Email:    rec.Email,
		Emailed:  rec.Emailed,
	}, true
}

// GetReceipt godoc
// @ID          getReceipt
// @Summary     Receipt metadata
// @Tags        Receipts
// @Produce     json
// @Param       id   path  string  true  "Receipt id"
// @Success     200  {object}  domain.ReceiptRecord
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /receipts/{id} [get]
func (h *Handlers) GetReceipt(c *gin.Context) {
	rec, err := h.receipts.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrReceiptNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "receipt not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load receipt")
	default:
		ok(c, http.StatusOK, rec)
	}
}

// ServeReceiptFile godoc
// @ID          downloadReceipt
// @Summary     Download a stored receipt PDF
// @Description Read-only access by file name. download=1 forces a save dialog.
// @Tags        Receipts
// @Produce     application/pdf
// @Param       filename  path   string  true   "Stored file name"
// @Param       download  query  bool    false  "Send as attachment"
// @Success     200
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /receipts/{filename} [get]
func (h *Handlers) ServeReceiptFile(c *gin.Context) {
	name := c.Param("filename")
	if !storage.ValidName(name) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "receipt not found")
		return
	}
	obj, err := h.files.Open(c.Request.Context(), name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "receipt not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not read receipt")
		return
	}
	defer obj.Body.Close()

	disposition := "inline"
	if dl, _ := strconv.ParseBool(c.Query("download")); dl {
		disposition = "attachment"
	}
	extra := map[string]string{
		"Content-Disposition": disposition + `; filename="` + name + `"`,
		"Cache-Control":       "private, max-age=3600",
	}
	if !obj.ModTime.IsZero() {
		extra["Last-Modified"] = obj.ModTime.UTC().Format(http.TimeFormat)
	}
	c.DataFromReader(http.StatusOK, obj.Size, "application/pdf", obj.Body, extra)
}
