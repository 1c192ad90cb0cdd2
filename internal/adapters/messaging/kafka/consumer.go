// Package kafka consume lecturas de salud publicadas por el servicio de
// ingesta y las registra como registros de riesgo.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"medication-adherence/internal/domain/readings"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/platform/storeerr"

	kafkago "github.com/segmentio/kafka-go"
)

// Message es el JSON publicado en el tópico.
type Message struct {
	ID              string    `json:"id"`
	ElderID         string    `json:"elder_id"`
	Timestamp       time.Time `json:"timestamp"`
	FlaggedAbnormal *bool     `json:"flagged_abnormal,omitempty"`
	SystolicBP      *int      `json:"systolic_bp,omitempty"`
	DiastolicBP     *int      `json:"diastolic_bp,omitempty"`
	Pulse           *int      `json:"pulse,omitempty"`
}

type Recorder interface {
	Record(ctx context.Context, in readings.RecordInput) (readings.Record, bool, error)
}

type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

type Consumer struct {
	reader   reader
	recorder Recorder
	log      logger.Logger

	maxAttempts int
	backoff     time.Duration

	restartBackoff    time.Duration
	maxRestartBackoff time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewReader(cfg Config) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1e6,
	})
}

func NewConsumer(r *kafkago.Reader, recorder Recorder, log logger.Logger) *Consumer {
	return newConsumer(r, recorder, log)
}

func newConsumer(r reader, recorder Recorder, log logger.Logger) *Consumer {
	return &Consumer{
		reader:      r,
		recorder:    recorder,
		log:         log.With(map[string]any{"component": "readings_consumer"}),
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,

		restartBackoff:    time.Second,
		maxRestartBackoff: 30 * time.Second,

		sleep: sleepCtx,
	}
}

// Run procesa mensajes hasta que ctx se cancele. El offset se confirma después
// de registrar; los mensajes inválidos se confirman y se descartan. Un error al
// leer, registrar o confirmar no detiene el consumo: el mismo mensaje se
// reintenta con espera exponencial.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	var pending *kafkago.Message
	failures := 0
	for {
		if pending == nil {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				failures++
				if c.pause(ctx, failures, "fetch message", err) != nil {
					return nil
				}
				continue
			}
			pending = &msg
		}

		if err := c.handle(ctx, *pending); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if c.pause(ctx, failures, "record reading", err) != nil {
				return nil
			}
			continue
		}

		// Record es idempotente por ID: si el commit falla se vuelve a registrar sin duplicar
		if err := c.reader.CommitMessages(ctx, *pending); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if c.pause(ctx, failures, "commit message", err) != nil {
				return nil
			}
			continue
		}

		pending = nil
		failures = 0
	}
}

// pause espera antes de reintentar; devuelve error solo si ctx terminó.
func (c *Consumer) pause(ctx context.Context, failures int, op string, err error) error {
	d := c.restartBackoff << min(failures-1, 10)
	if d > c.maxRestartBackoff || d <= 0 {
		d = c.maxRestartBackoff
	}
	c.log.Warn("readings consumer retrying", map[string]any{
		"op":       op,
		"error":    err.Error(),
		"failures": failures,
		"wait_ms":  d.Milliseconds(),
	})
	return c.sleep(ctx, d)
}

// handle devuelve error solo si el mensaje no debe confirmarse.
func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) error {
	fields := map[string]any{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	}

	in, err := decode(msg.Value)
	if err != nil {
		fields["error"] = err.Error()
		c.log.Warn("discarding malformed reading", fields)
		return nil
	}
	fields["record_id"] = in.ID
	fields["elder_id"] = in.ElderID

	for attempt := 1; ; attempt++ {
		_, created, err := c.recorder.Record(ctx, in)
		if err == nil {
			fields["created"] = created
			c.log.Debug("reading recorded", fields)
			return nil
		}

		fields["error"] = err.Error()
		fields["attempt"] = attempt

		switch {
		case errors.Is(err, readings.ErrInvalidInput):
			c.log.Warn("discarding invalid reading", fields)
			return nil
		case errors.Is(err, storeerr.ErrTransient) && attempt < c.maxAttempts:
			c.log.Warn("transient error recording reading, retrying", fields)
			if err := c.sleep(ctx, c.backoff*time.Duration(1<<(attempt-1))); err != nil {
				return err
			}
		default:
			c.log.Error("failed to record reading", fields)
			return err
		}
	}
}

func decode(raw []byte) (readings.RecordInput, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return readings.RecordInput{}, err
	}
	if strings.TrimSpace(m.ID) == "" {
		return readings.RecordInput{}, errors.New("id required")
	}
	return readings.RecordInput{
		ID:              m.ID,
		ElderID:         m.ElderID,
		RecordedAt:      m.Timestamp,
		SystolicBP:      m.SystolicBP,
		DiastolicBP:     m.DiastolicBP,
		Pulse:           m.Pulse,
		FlaggedAbnormal: m.FlaggedAbnormal,
		Source:          readings.SourceKafka,
		RecordedBy:      "kafka",
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
