package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubClient struct {
	send chan []byte
}

func (c *stubClient) getSendChannel() chan []byte { return c.send }
func (c *stubClient) close()                      {}

func TestHubRegisterUnregisterAfterStop(t *testing.T) {
	hub := NewWebSocketHub(nil)
	go hub.Run()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		client := &stubClient{send: make(chan []byte, 1)}
		hub.Register(client)
		hub.Unregister(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register/Unregister blocked after Stop")
	}
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub := NewWebSocketHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := &stubClient{send: make(chan []byte, 1)}
	hub.Register(client)
	hub.Broadcast(map[string]string{"stage": "started"})

	select {
	case msg := <-client.send:
		assert.Contains(t, string(msg), "started")
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the client")
	}
}
