// mail-relay is a development stand-in for the HTTP mail relay used by
// MAIL_TRANSPORT=webhook. It verifies signatures and keeps the last messages
// in memory instead of delivering them.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

type message struct {
	ID         string `json:"id"`
	ReceivedAt string `json:"received_at"`
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

type stats struct {
	Count    int64     `json:"count"`
	Rejected int64     `json:"rejected"`
	Messages []message `json:"messages"`
	Since    string    `json:"since"`
}

var (
	mu        sync.Mutex
	count     int64
	rejected  int64
	messages  []message
	since     time.Time
	maxStored = 50

	secret string
)

func main() {
	since = time.Now().UTC()
	secret = os.Getenv("MAIL_WEBHOOK_SECRET")

	addr := ":8025"
	if v := os.Getenv("ADDR"); v != "" {
		addr = v
	}

	http.HandleFunc("/send", sendHandler)
	http.HandleFunc("/messages", messagesHandler)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	http.HandleFunc("/reset", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		count = 0
		rejected = 0
		messages = nil
		since = time.Now().UTC()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "reset")
	})

	log.Printf("mail-relay listening on %s (signature check: %t)", addr, secret != "")
	log.Fatal(http.ListenAndServe(addr, nil))
}

func sendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if secret != "" && !validSignature(body, r.Header.Get("X-Birthday-Signature")) {
		mu.Lock()
		rejected++
		mu.Unlock()
		log.Printf("rejected message %s: bad signature", r.Header.Get("X-Birthday-Message-ID"))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var msg message
	if err := json.Unmarshal(body, &msg); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if msg.To == "" || msg.Subject == "" {
		http.Error(w, "to and subject are required", http.StatusUnprocessableEntity)
		return
	}
	msg.ID = r.Header.Get("X-Birthday-Message-ID")
	msg.ReceivedAt = time.Now().UTC().Format(time.RFC3339Nano)

	mu.Lock()
	count++
	messages = append(messages, msg)
	if len(messages) > maxStored {
		messages = messages[len(messages)-maxStored:]
	}
	current := count
	mu.Unlock()

	log.Printf("message #%d to %s: %s", current, msg.To, msg.Subject)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, `{"accepted":%d}`, current)
}

func validSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func messagesHandler(w http.ResponseWriter, _ *http.Request) {
	mu.Lock()
	s := stats{
		Count:    count,
		Rejected: rejected,
		Messages: messages,
		Since:    since.Format(time.RFC3339),
	}
	mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}
