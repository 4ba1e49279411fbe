package feed

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

// KafkaWriter abstracts the Kafka producer for testing.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Tick is the wire shape of one exported instrument update.
type Tick struct {
	models.Instrument
	Timestamp int64 `json:"timestamp"` // unix micro
}

// TickExporter ships each refreshed instrument to Kafka for downstream
// consumers (analytics, archival). Messages are keyed by symbol so a
// partition preserves per-symbol ordering.
type TickExporter struct {
	writer KafkaWriter
	logger *zap.Logger
}

func NewTickExporter(writer KafkaWriter, logger *zap.Logger) *TickExporter {
	return &TickExporter{writer: writer, logger: logger}
}

// Export writes one message per instrument in a single batch.
func (e *TickExporter) Export(ctx context.Context, snap *models.Snapshot) error {
	if len(snap.Stocks) == 0 {
		return nil
	}

	ts := snap.LastUpdate.UnixMicro()
	msgs := make([]kafka.Message, 0, len(snap.Stocks))
	for _, stock := range snap.Stocks {
		payload, err := json.Marshal(Tick{Instrument: stock, Timestamp: ts})
		if err != nil {
			e.logger.Error("Tick marshal error", zap.String("symbol", stock.Symbol), zap.Error(err))
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(stock.Symbol),
			Value: payload,
		})
	}

	if err := e.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}

	e.logger.Debug("Exported ticks", zap.Int("count", len(msgs)))
	return nil
}

func (e *TickExporter) Close() error {
	return e.writer.Close()
}
