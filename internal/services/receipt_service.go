// Package services – ReceiptService
//
// ReceiptService turns an appointment form into a PDF receipt: it renders a
// fixed HTML template with escaped user fields, prints it through a
// pdf.Renderer, persists the bytes through a storage.Store and then tries to
// email the file. Persistence is the success condition; email is best-effort
// and its failure only flips Emailed to false.

package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-receipt-service/internal/config"
	"github.com/tbourn/go-receipt-service/internal/domain"
	"github.com/tbourn/go-receipt-service/internal/mail"
	"github.com/tbourn/go-receipt-service/internal/pdf"
	"github.com/tbourn/go-receipt-service/internal/repo"
	"github.com/tbourn/go-receipt-service/internal/storage"
)

const (
	suffixLen      = 6
	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultSubject = "Your appointment receipt"
)

// ReceiptService creates, stores and delivers receipts.
type ReceiptService struct {
	Renderer pdf.Renderer
	Store    storage.Store
	// Sender may be nil, in which case delivery is skipped.
	Sender mail.Sender
	Mail   config.MailConfig

	// PublicPath is the URL prefix receipts are served under, e.g. "/receipts".
	PublicPath    string
	RenderTimeout time.Duration

	// DB holds the receipt index. Optional.
	DB  *gorm.DB
	Log zerolog.Logger

	// Now and Rand are overridable in tests.
	Now  func() time.Time
	Rand io.Reader
}

// NewReceiptService wires a service from configuration and collaborators.
func NewReceiptService(cfg *config.Config, r pdf.Renderer, st storage.Store, snd mail.Sender, db *gorm.DB, log zerolog.Logger) *ReceiptService {
	return &ReceiptService{
		Renderer:      r,
		Store:         st,
		Sender:        snd,
		Mail:          cfg.Mail,
		PublicPath:    cfg.Storage.PublicPath,
		RenderTimeout: cfg.PDF.RenderTimeout,
		DB:            db,
		Log:           log,
	}
}

func (s *ReceiptService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *ReceiptService) tracer() trace.Tracer { return otel.Tracer("services/ReceiptService") }

// Create runs the whole receipt workflow for one request.
//
// Errors: ErrValidation (nothing happened), ErrRender (nothing persisted),
// ErrStorage (nothing emailed). Delivery and index failures are logged only.
func (s *ReceiptService) Create(ctx context.Context, req domain.ReceiptRequest) (*domain.Receipt, error) {
	ctx, span := s.tracer().Start(ctx, "Create")
	defer span.End()

	req = normalizeRequest(req)
	if req.Name == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrValidation)
	}

	createdAt := s.now()
	suffix, err := randomSuffix(s.Rand)
	if err != nil {
		return nil, fmt.Errorf("generate receipt id: %w", err)
	}
	id := domain.NewReceiptID(createdAt, suffix)
	filename := domain.ReceiptFilename(createdAt, id)
	span.SetAttributes(attribute.String("receipt.id", id))

	view := newReceiptView(id, createdAt, req.Name, req.Email, req.Phone, req.Date, req.Notes)
	html, err := renderReceiptHTML(view)
	if err != nil {
		receiptFailures.WithLabelValues("render").Inc()
		return nil, s.fail(span, fmt.Errorf("%w: %w", ErrRender, err))
	}

	doc, err := s.render(ctx, html)
	if err != nil {
		receiptFailures.WithLabelValues("render").Inc()
		return nil, s.fail(span, fmt.Errorf("%w: %w", ErrRender, err))
	}

	storagePath, err := s.persist(ctx, filename, doc)
	if err != nil {
		receiptFailures.WithLabelValues("store").Inc()
		return nil, s.fail(span, fmt.Errorf("%w: %w", ErrStorage, err))
	}

	rec := &domain.Receipt{
		ID:          id,
		CreatedAt:   createdAt,
		PDF:         doc,
		Filename:    filename,
		StoragePath: storagePath,
		PublicURL:   s.PublicURL(filename),
		Name:        req.Name,
		Email:       req.Email,
	}
	rec.Emailed = s.deliver(ctx, rec, view)
	s.index(ctx, rec)

	receiptsCreated.WithLabelValues(strconv.FormatBool(rec.Emailed)).Inc()
	span.SetAttributes(attribute.Bool("receipt.emailed", rec.Emailed))
	s.Log.Info().
		Str("receipt_id", id).
		Str("filename", filename).
		Int("size_bytes", len(doc)).
		Bool("emailed", rec.Emailed).
		Msg("receipt created")
	return rec, nil
}

// PublicURL joins the public prefix and a stored file name.
func (s *ReceiptService) PublicURL(filename string) string {
	base := strings.TrimRight(s.PublicPath, "/")
	if base == "" {
		return "/" + filename
	}
	return path.Join(base, filename)
}

// Get returns the index row for id.
func (s *ReceiptService) Get(ctx context.Context, id string) (*domain.ReceiptRecord, error) {
	ctx, span := s.tracer().Start(ctx, "Get", trace.WithAttributes(attribute.String("receipt.id", id)))
	defer span.End()

	if s.DB == nil {
		return nil, ErrReceiptNotFound
	}
	rec, err := repo.GetReceipt(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrReceiptNotFound
	}
	return rec, err
}

// List returns index rows created in [from, to); zero bounds are open.
func (s *ReceiptService) List(ctx context.Context, from, to time.Time) ([]domain.ReceiptRecord, error) {
	ctx, span := s.tracer().Start(ctx, "List")
	defer span.End()

	if s.DB == nil {
		return []domain.ReceiptRecord{}, nil
	}
	return repo.ListReceipts(ctx, s.DB, from, to)
}

func (s *ReceiptService) render(ctx context.Context, html string) ([]byte, error) {
	ctx, span := s.tracer().Start(ctx, "render")
	defer span.End()

	if s.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RenderTimeout)
		defer cancel()
	}

	start := time.Now()
	doc, err := s.Renderer.Render(ctx, html, pdf.ReceiptOptions())
	receiptRenderSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, errors.New("renderer returned an empty document")
	}
	return doc, nil
}

func (s *ReceiptService) persist(ctx context.Context, filename string, doc []byte) (string, error) {
	ctx, span := s.tracer().Start(ctx, "store", trace.WithAttributes(attribute.String("receipt.filename", filename)))
	defer span.End()

	if err := s.Store.EnsureDir(ctx); err != nil {
		return "", err
	}
	return s.Store.Write(ctx, filename, doc)
}

// deliver reports whether the email was handed to the backend.
func (s *ReceiptService) deliver(ctx context.Context, rec *domain.Receipt, view receiptView) bool {
	if s.Sender == nil {
		s.Log.Debug().Str("receipt_id", rec.ID).Msg("no mail backend configured; skipping delivery")
		return false
	}
	ctx, span := s.tracer().Start(ctx, "deliver")
	defer span.End()

	subject := s.Mail.Subject
	if subject == "" {
		subject = defaultSubject
	}
	text, html := receiptEmail(view)
	err := s.Sender.Send(ctx, mail.Message{
		To:      rec.Email,
		From:    s.Mail.From,
		Subject: subject,
		Text:    text,
		HTML:    html,
		Attachment: &mail.Attachment{
			Filename:    rec.Filename,
			ContentType: "application/pdf",
			Data:        rec.PDF,
		},
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDelivery, err)
		span.RecordError(err)
		receiptFailures.WithLabelValues("deliver").Inc()
		s.Log.Warn().Err(err).Str("receipt_id", rec.ID).Msg("receipt email not sent")
		return false
	}
	return true
}

func (s *ReceiptService) index(ctx context.Context, rec *domain.Receipt) {
	if s.DB == nil {
		return
	}
	row := &domain.ReceiptRecord{
		ID:        rec.ID,
		Filename:  rec.Filename,
		Name:      rec.Name,
		Email:     rec.Email,
		Emailed:   rec.Emailed,
		SizeBytes: int64(len(rec.PDF)),
		URL:       rec.PublicURL,
		CreatedAt: rec.CreatedAt,
	}
	if err := repo.CreateReceipt(ctx, s.DB, row); err != nil {
		receiptFailures.WithLabelValues("index").Inc()
		s.Log.Warn().Err(err).Str("receipt_id", rec.ID).Msg("receipt index write failed")
	}
}

func (s *ReceiptService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// normalizeRequest trims every field and folds it to NFC so visually equal
// input produces identical receipts.
func normalizeRequest(r domain.ReceiptRequest) domain.ReceiptRequest {
	clean := func(s string) string { return norm.NFC.String(strings.TrimSpace(s)) }
	return domain.ReceiptRequest{
		Name:  clean(r.Name),
		Email: clean(r.Email),
		Phone: clean(r.Phone),
		Date:  clean(r.Date),
		Notes: clean(r.Notes),
	}
}

// randomSuffix draws suffixLen characters of [A-Z0-9] from src, or from
// crypto/rand when src is nil. Bytes >= 252 are rejected to keep the
// distribution uniform.
func randomSuffix(src io.Reader) (string, error) {
	if src == nil {
		src = rand.Reader
	}
	const limit = 256 - 256%len(suffixAlphabet)
	out := make([]byte, 0, suffixLen)
	buf := make([]byte, suffixLen*2)
	for len(out) < suffixLen {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, suffixAlphabet[int(b)%len(suffixAlphabet)])
			if len(out) == suffixLen {
				break
			}
		}
	}
	return string(out), nil
}
