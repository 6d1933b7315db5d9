package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-receipt-service/internal/http/middleware"
)

// MapsKeyResponse carries the browser Maps key.
type MapsKeyResponse struct {
	Key string `json:"key" example:"AIza..."`
}

// Health godoc
// @ID       health
// @Summary  Liveness probe
// @Tags     System
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

// MapsKey godoc
// @ID          mapsKey
// @Summary     Maps API key for the front-end
// @Description Lets the page load the Maps library without embedding the key in HTML.
// @Tags        Integrations
// @Produce     json
// @Success     200  {object}  handlers.MapsKeyResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /maps-key [get]
func (h *Handlers) MapsKey(c *gin.Context) {
	if h.integ.MapsAPIKey == "" {
		fail(c, http.StatusInternalServerError, ErrCodeNotConfigured, "MAPS_API_KEY is not configured on the server")
		return
	}
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, MapsKeyResponse{Key: h.integ.MapsAPIKey})
}

// GeminiProxy godoc
// @ID          geminiProxy
// @Summary     Forward a generateContent request
// @Description Sends the JSON body unchanged to the configured generative-language endpoint using the server key and relays status and body.
// @Tags        Integrations
// @Accept      json
// @Produce     json
// @Param       body  body  object  true  "generateContent payload"
// @Success     200  {object}  object
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Failure     502  {object}  handlers.ErrorResponse
// @Router      /gemini-proxy [post]
func (h *Handlers) GeminiProxy(c *gin.Context) {
	if h.integ.GeminiAPIKey == "" {
		fail(c, http.StatusInternalServerError, ErrCodeNotConfigured, "GEMINI_API_KEY is not configured on the server")
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(body) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	target, err := url.Parse(h.integ.GeminiURL)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeNotConfigured, "GEMINI_URL is invalid")
		return
	}
	q := target.Query()
	q.Set("key", h.integ.GeminiAPIKey)
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not build upstream request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("gemini upstream unreachable")
		fail(c, http.StatusBadGateway, ErrCodeUpstream, "could not reach the Gemini API")
		return
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeUpstream, "could not read the Gemini API response")
		return
	}
	if json.Valid(payload) {
		c.Data(resp.StatusCode, "application/json; charset=utf-8", payload)
		return
	}
	c.Data(resp.StatusCode, "text/plain; charset=utf-8", payload)
}
