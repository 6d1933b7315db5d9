package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AppointmentService appends appointment webhook payloads to a JSON Lines
// file. The payload shape is whatever the caller sent; only "is a JSON
// object" is enforced.
type AppointmentService struct {
	Path string
	Log  zerolog.Logger
	Now  func() time.Time

	mu sync.Mutex
}

// appointmentLine is one line of the sink file.
type appointmentLine struct {
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Record validates raw and appends it with a receive timestamp.
func (s *AppointmentService) Record(ctx context.Context, raw []byte) error {
	tr := otel.Tracer("services/AppointmentService")
	_, span := tr.Start(ctx, "Record", trace.WithAttributes(attribute.Int("payload.bytes", len(raw))))
	defer span.End()

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' || !json.Valid(raw) {
		return ErrInvalidPayload
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return ErrInvalidPayload
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	line, err := json.Marshal(appointmentLine{ReceivedAt: now, Payload: compact.Bytes()})
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create appointments dir: %w", err)
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open appointments file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append appointment: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close appointments file: %w", err)
	}

	s.Log.Info().Int("bytes", len(line)).Msg("appointment recorded")
	return nil
}
