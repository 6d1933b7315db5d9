package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/tbourn/go-receipt-service/internal/storage"
)

// AppointmentService persists appointment webhook payloads.
type AppointmentService interface {
	Record(ctx context.Context, raw []byte) error
}

// Integrations holds the third-party keys the front-end relies on.
type Integrations struct {
	MapsAPIKey   string
	GeminiAPIKey string
	GeminiURL    string
}

// Deps are the collaborators of Handlers. Idempotency and HTTPClient are
// optional.
type Deps struct {
	Receipts     ReceiptService
	Files        storage.Store
	Appointments AppointmentService
	Idempotency  IdempotencyStore
	Integrations Integrations
	HTTPClient   *http.Client
}

// Handlers groups every endpoint.
type Handlers struct {
	receipts ReceiptService
	files    storage.Store
	appts    AppointmentService
	idem     IdempotencyStore
	integ    Integrations
	client   *http.Client
}

// New builds Handlers from d.
func New(d Deps) *Handlers {
	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Handlers{
		receipts: d.Receipts,
		files:    d.Files,
		appts:    d.Appointments,
		idem:     d.Idempotency,
		integ:    d.Integrations,
		client:   client,
	}
}
