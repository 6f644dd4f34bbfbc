package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// newMockClient creates a test client without a real connection
func newMockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		conn: nil,
		send: make(chan []byte, sendBufferSize),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newMockClient(hub)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if count := hub.ClientCount(); count != 1 {
		t.Errorf("expected 1 client, got %d", count)
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", count)
	}
}

func TestHubDoubleUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newMockClient(hub)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Close is guarded by sync.Once, so a second unregister must not panic
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("expected 0 clients, got %d", count)
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	clients := []*Client{newMockClient(hub), newMockClient(hub), newMockClient(hub)}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(20 * time.Millisecond)

	userID := uuid.New()
	hub.SyncReceived(userID, 1500, "0.0150")
	time.Sleep(50 * time.Millisecond)

	for i, client := range clients {
		select {
		case data := <-client.send:
			var received Message
			if err := json.Unmarshal(data, &received); err != nil {
				t.Errorf("client %d: failed to unmarshal message: %v", i+1, err)
				continue
			}
			if received.Type != MessageTypeSyncReceived {
				t.Errorf("client %d: expected type %s, got %s", i+1, MessageTypeSyncReceived, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client %d: did not receive message", i+1)
		}
	}
}

func TestHubBroadcastOrder(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newMockClient(hub)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.LeaderboardUpdated("all")
	hub.LeaderboardUpdated("month")
	hub.LeaderboardUpdated("week")
	time.Sleep(50 * time.Millisecond)

	for i, wantPeriod := range []string{"all", "month", "week"} {
		select {
		case data := <-client.send:
			var received struct {
				Type    MessageType               `json:"type"`
				Payload LeaderboardUpdatedPayload `json:"payload"`
			}
			if err := json.Unmarshal(data, &received); err != nil {
				t.Errorf("message %d: failed to unmarshal: %v", i+1, err)
				continue
			}
			if received.Payload.Period != wantPeriod {
				t.Errorf("message %d: expected period %s, got %s", i+1, wantPeriod, received.Payload.Period)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("message %d: not received", i+1)
		}
	}
}

func TestHubConcurrentRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	numClients := 100
	var wg sync.WaitGroup
	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.register <- newMockClient(hub)
		}()
	}
	wg.Wait()
	time.Sleep(100 * time.Millisecond)

	if count := hub.ClientCount(); count != numClients {
		t.Errorf("expected %d clients, got %d", numClients, count)
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	client := newMockClient(NewHub())

	client.Close()
	client.Close()
	client.Close()
}

func TestHubBroadcastChannelFull(t *testing.T) {
	hub := NewHub()
	// Run is not started, so the broadcast channel fills up

	for i := 0; i < 256; i++ {
		hub.LeaderboardUpdated("all")
	}

	done := make(chan bool)
	go func() {
		hub.LeaderboardUpdated("week")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast blocked when channel was full")
	}
}
