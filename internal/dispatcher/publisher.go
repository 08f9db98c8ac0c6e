package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/shared/kafka"
	"github.com/radieske/race-trading-pipeline/pkg/contracts/events"
)

// KafkaPublisher encapsula o writer Kafka e o logger.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaPublisher cria um publisher para o tópico de eventos de corrida.
// Em local/dev garante a existência do tópico antes de subir o writer.
func NewKafkaPublisher(brokers, topic, env string, log *zap.Logger) *KafkaPublisher {
	if env == "local" || env == "dev" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := kafka.EnsureTopic(ctx, brokers, topic); err != nil {
			log.Warn("failed to ensure kafka topic", zap.String("topic", topic), zap.Error(err))
		}
	}
	return &KafkaPublisher{writer: kafka.NewWriter(brokers, topic), log: log}
}

// Publish serializa o envelope e envia com a chave da corrida,
// mantendo todos os eventos de uma corrida na mesma partição.
func (p *KafkaPublisher) Publish(ctx context.Context, e events.RaceEvent) error {
	value, err := events.Encode(e)
	if err != nil {
		return err
	}
	key := e.RaceID().Key()
	if err := kafka.WriteJSON(ctx, p.writer, key, value); err != nil {
		p.log.Error("failed to publish race event", zap.String("race_key", key), zap.Error(err))
		return err
	}
	p.log.Debug("published race event", zap.String("type", e.Type.String()), zap.String("race_key", key))
	return nil
}

// Close finaliza o writer e libera recursos associados.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher só registra o evento (EVENT_SINK=log), para rodar sem broker
type LogPublisher struct {
	Log *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, e events.RaceEvent) error {
	b, err := events.Encode(e)
	if err != nil {
		return err
	}
	p.Log.Info("race event (log sink)", zap.ByteString("payload", b))
	return nil
}
