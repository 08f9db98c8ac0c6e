package worker

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/pkg/contracts/events"
)

// MessageReader é o subconjunto do kafka.Reader usado pelo consumer (commit manual)
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageWriter é o subconjunto do kafka.Writer usado para a DLQ
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer lê race_events do Kafka e entrega ao Router, uma mensagem por vez.
// Envelope malformado vai para a DLQ; tipo desconhecido é descartado.
// O offset é confirmado mesmo quando o handler falha: o retry vem da próxima janela.
type Consumer struct {
	Log     *zap.Logger
	Reader  MessageReader
	DLQ     MessageWriter // opcional
	Router  *Router
	Timeout time.Duration // por evento

	OnError func(string) // métricas por fase
}

// Run inicia o loop principal de consumo até ctx encerrar
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			c.Log.Warn("kafka read failed", zap.Error(err))
			c.onError("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		c.process(ctx, m)

		if err := c.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			c.onError("commit")
		}
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) {
	e, err := events.Decode(m.Value)
	switch {
	case errors.Is(err, events.ErrUnknownType):
		c.Log.Warn("unknown race event type, dropping", zap.ByteString("key", m.Key), zap.Error(err))
		return
	case err != nil:
		c.Log.Warn("invalid race event", zap.ByteString("key", m.Key), zap.Error(err))
		c.onError("decode")
		c.deadLetter(ctx, m, err)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	_ = c.Router.Handle(hctx, e) // Handle já registra log e métrica
}

func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	if c.DLQ == nil {
		return
	}
	dlq := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "source_topic", Value: []byte(m.Topic)},
		},
	}
	if err := c.DLQ.WriteMessages(ctx, dlq); err != nil {
		c.Log.Error("dlq write failed", zap.Error(err))
		c.onError("dlq")
	}
}

func (c *Consumer) onError(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
