// Command demo drives a running relay end to end: one synchronous turn, one
// streamed turn consumed delta by delta, then a session listing.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"

	"chat-session-relay/internal/domain/model"
	"chat-session-relay/internal/infra/sse"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "relay base URL")
	message := flag.String("message", "Hello there!", "first user message")
	flag.Parse()

	client := &http.Client{}

	// 1. Synchronous first turn.
	session := postTurn(client, *addr+"/api/v1/chats", map[string]any{"message": *message})
	log.Printf("session %s created with %d messages", session.ID, len(session.Messages))
	log.Printf("assistant: %s", session.Messages[len(session.Messages)-1].Content)

	// 2. Streamed follow-up on the same session.
	body, _ := json.Marshal(map[string]any{"message": "And a streamed reply, please.", "stream": true})
	resp, err := client.Post(*addr+"/api/v1/chats/"+session.ID+"/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("send message: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		log.Fatalf("send message: status %d: %s", resp.StatusCode, b)
	}

	dec := sse.NewDecoder(resp.Body)
	for {
		payload, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("stream read: %v", err)
		}
		var evt model.StreamEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			log.Fatalf("stream event: %v", err)
		}
		switch evt.Type {
		case model.EventMessageDelta:
			fmt.Print(evt.Content)
		case model.EventChatComplete:
			fmt.Println()
			log.Printf("turn committed, session now has %d messages", len(evt.Chat.Messages))
		}
	}

	// 3. Listing shows the session in insertion order.
	listResp, err := client.Get(*addr + "/api/v1/chats")
	if err != nil {
		log.Fatalf("list sessions: %v", err)
	}
	defer listResp.Body.Close()
	var listing struct {
		Chats []*model.ChatSession `json:"chats"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listing); err != nil {
		log.Fatalf("decode listing: %v", err)
	}
	log.Printf("%d session(s) on the relay", len(listing.Chats))
}

func postTurn(client *http.Client, url string, payload map[string]any) *model.ChatSession {
	body, _ := json.Marshal(payload)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		log.Fatalf("create session: status %d: %s", resp.StatusCode, b)
	}
	var session model.ChatSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		log.Fatalf("decode session: %v", err)
	}
	return &session
}
