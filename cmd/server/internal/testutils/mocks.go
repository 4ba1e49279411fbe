package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/protocol"
	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse // All decoded frames, JSON and raw alike
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	// Round-trip through JSON so Data comes back the same way it would over
	// the wire
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	var resp protocol.WSResponse
	if json.Unmarshal(b, &resp) == nil {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var resp protocol.WSResponse
	if json.Unmarshal(b, &resp) == nil {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) LastMsgType() string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1].Type
}

func (m *MockClient) MessageCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Messages)
}

// DecodeSnapshot unmarshals the Data field of the i-th message as a snapshot.
func (m *MockClient) DecodeSnapshot(i int) (*models.Snapshot, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if i < 0 || i >= len(m.Messages) {
		return nil, errors.New("message index out of range")
	}
	b, err := json.Marshal(m.Messages[i].Data)
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// MockClock is a controllable clock
type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time          { return m.CurrentTime }
func (m *MockClock) Advance(d time.Duration) { m.CurrentTime = m.CurrentTime.Add(d) }

// MockRand returns fixed values
type MockRand struct {
	ValInt   int
	ValFloat float64
}

func (m *MockRand) Intn(n int) int   { return m.ValInt }
func (m *MockRand) Float64() float64 { return m.ValFloat }

// MockSource simulates the scraper
type MockSource struct {
	Snap  *models.Snapshot
	Calls int
}

func (m *MockSource) FetchSnapshot(ctx context.Context) *models.Snapshot {
	m.Calls++
	if m.Snap != nil {
		return m.Snap
	}
	// Structurally complete but empty, the all-failure shape
	return &models.Snapshot{
		Stocks:       nil,
		Indices:      map[string]models.Index{},
		Sectors:      []models.SectorAggregate{},
		ChartHistory: []models.ChartPoint{},
	}
}

// MockPublisher records published snapshots
type MockPublisher struct {
	Published []*models.Snapshot
	Mu        sync.Mutex
}

func (m *MockPublisher) Publish(snap *models.Snapshot) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Published = append(m.Published, snap)
}

func (m *MockPublisher) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Published)
}

// MockKafkaWriter records written messages
type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error { return nil }
