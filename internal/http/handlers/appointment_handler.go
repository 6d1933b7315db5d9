package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-receipt-service/internal/services"
)

// AppointmentWebhook godoc
// @ID          appointmentWebhook
// @Summary     Record an appointment confirmation
// @Description Appends the JSON object, unchanged, to the appointments log.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
// @Param       body  body  object  true  "Any JSON object"
// @Success     200  {object}  map[string]bool
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /webhooks/appointments [post]
func (h *Handlers) AppointmentWebhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read body")
		return
	}
	if err := h.appts.Record(c.Request.Context(), raw); err != nil {
		if errors.Is(err, services.ErrInvalidPayload) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeWriteFailed, "could not record appointment")
		return
	}
	ok(c, http.StatusOK, gin.H{"ok": true})
}
