package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gorilla/websocket" // Using Gorilla for the test CLIENT
	"go.uber.org/zap"

	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/gateway"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/hub"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/protocol"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/store"
	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

func seedSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Stocks: []models.Instrument{
			{Symbol: "BIAT", Name: "BIAT", Price: 118.5, Change: 1.25, Volume: 42000, Sector: "Banques"},
			{Symbol: "SFBT", Name: "SFBT", Price: 21.8, Change: -0.2, Volume: 5000, Sector: "Agroalimentaire"},
		},
		Indices: map[string]models.Index{
			models.IndexTunindex:   {Value: 9847.32, Change: 0.45, Volume: 2340000},
			models.IndexTunindex20: {Value: 4312.18, Change: 0.32, Volume: 1850000},
		},
		Sectors:      []models.SectorAggregate{},
		ChartHistory: []models.ChartPoint{},
		LastUpdate:   time.Unix(1700000000, 0),
	}
}

func startServer(t *testing.T) (*httptest.Server, *store.SnapshotStore, *hub.Hub) {
	st := store.New(seedSnapshot(), nil)
	wsHub := hub.NewHub(st, zap.NewNop())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		client := gateway.NewClient(conn, wsHub, zap.NewNop())
		client.Start()
	}))
	t.Cleanup(server.Close)

	return server, st, wsHub
}

func connectWS(t *testing.T, serverURL string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(serverURL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to websocket: %v", err)
	}
	return wsConn
}

func readResponse(t *testing.T, conn *websocket.Conn) protocol.WSResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	var resp protocol.WSResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		t.Fatalf("Frame is not a valid response: %v (%s)", err, msg)
	}
	return resp
}

func decodeSnapshot(t *testing.T, resp protocol.WSResponse) models.Snapshot {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("Response data is not marshalable: %v", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("Response data is not a snapshot: %v", err)
	}
	return snap
}

func TestEndToEnd_SnapshotOnConnect(t *testing.T) {
	server, _, _ := startServer(t)

	wsConn := connectWS(t, server.URL)
	defer wsConn.Close()

	resp := readResponse(t, wsConn)
	if resp.Type != protocol.TypeMarketUpdate {
		t.Fatalf("Expected market-update on connect, got %q", resp.Type)
	}
	snap := decodeSnapshot(t, resp)
	if len(snap.Stocks) != 2 || snap.Stocks[0].Symbol != "BIAT" {
		t.Errorf("Unexpected snapshot on connect: %+v", snap.Stocks)
	}
}

func TestEndToEnd_BroadcastReachesClient(t *testing.T) {
	server, st, wsHub := startServer(t)

	wsConn := connectWS(t, server.URL)
	defer wsConn.Close()
	readResponse(t, wsConn) // connect snapshot

	st.Write(store.Update{Stocks: []models.Instrument{
		{Symbol: "BIAT", Name: "BIAT", Price: 130.0, Change: 9.7, Volume: 42000, Sector: "Banques"},
	}})
	wsHub.Publish(st.Read())

	resp := readResponse(t, wsConn)
	if resp.Type != protocol.TypeMarketUpdate {
		t.Fatalf("Expected market-update broadcast, got %q", resp.Type)
	}
	snap := decodeSnapshot(t, resp)
	if len(snap.Stocks) != 1 || snap.Stocks[0].Price != 130.0 {
		t.Errorf("Broadcast did not carry the new snapshot: %+v", snap.Stocks)
	}
}

func TestEndToEnd_RequestData(t *testing.T) {
	server, _, _ := startServer(t)

	wsConn := connectWS(t, server.URL)
	defer wsConn.Close()
	readResponse(t, wsConn) // connect snapshot

	req := `{"action": "request-data", "id": "r1"}`
	if err := wsConn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	resp := readResponse(t, wsConn)
	if resp.Type != protocol.TypeMarketUpdate {
		t.Fatalf("Expected market-update, got %q", resp.Type)
	}
	snap := decodeSnapshot(t, resp)
	if snap.Indices[models.IndexTunindex].Value != 9847.32 {
		t.Errorf("Pulled snapshot differs from store: %+v", snap.Indices)
	}
}

func TestEndToEnd_AlertFiresOnPublish(t *testing.T) {
	server, st, wsHub := startServer(t)

	wsConn := connectWS(t, server.URL)
	defer wsConn.Close()
	readResponse(t, wsConn) // connect snapshot

	setMsg := `{"action": "set-alerts", "payload": {"alerts": [{"id": "a1", "symbol": "biat", "targetPrice": 120, "condition": "above", "active": true}]}, "id": "s1"}`
	if err := wsConn.WriteMessage(websocket.TextMessage, []byte(setMsg)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if resp := readResponse(t, wsConn); resp.Type != protocol.TypeAck {
		t.Fatalf("Expected ack for set-alerts, got %q", resp.Type)
	}

	st.Write(store.Update{Stocks: []models.Instrument{
		{Symbol: "BIAT", Name: "BIAT", Price: 121.0, Change: 2.1, Volume: 42000, Sector: "Banques"},
	}})
	wsHub.Publish(st.Read())

	sawAlert := false
	for i := 0; i < 2; i++ {
		resp := readResponse(t, wsConn)
		if resp.Type == protocol.TypeAlert {
			sawAlert = true
		}
	}
	if !sawAlert {
		t.Error("Expected an alert frame after the crossing publish")
	}
}

func TestEndToEnd_InvalidJSON(t *testing.T) {
	server, _, _ := startServer(t)

	wsConn := connectWS(t, server.URL)
	defer wsConn.Close()
	readResponse(t, wsConn) // connect snapshot

	wsConn.WriteMessage(websocket.TextMessage, []byte(`{ "action": "request-`))

	resp := readResponse(t, wsConn)
	if resp.Type != protocol.TypeError {
		t.Errorf("Expected error frame for bad JSON, got %q", resp.Type)
	}
}

func TestEndToEnd_MaxMessageSize(t *testing.T) {
	server, _, _ := startServer(t)

	wsConn := connectWS(t, server.URL)
	defer wsConn.Close()
	readResponse(t, wsConn) // connect snapshot

	hugeMsg := `{"action":"request-data","id":"` + strings.Repeat("a", 513*1024) + `"}`
	err := wsConn.WriteMessage(websocket.TextMessage, []byte(hugeMsg))
	// Depending on timing, write might succeed, but Read should fail (Disconnect)
	if err == nil {
		wsConn.SetReadDeadline(time.Now().Add(1 * time.Second))
		_, _, err := wsConn.ReadMessage()
		if err == nil {
			t.Error("Server should have closed connection for huge message, but it stayed open")
		}
	}
}
