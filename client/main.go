package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
)

// Minimal interactive test client: connects to one session's stream,
// prints everything the server pushes, and sends request_update on
// demand.
func main() {
	addr := flag.String("addr", "localhost:8000", "server address")
	gameID := flag.String("game", "test123", "session to watch")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/game/" + *gameID}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v", err)
				return
			}
			var pretty map[string]interface{}
			if err := json.Unmarshal(message, &pretty); err != nil {
				log.Printf("<- %s", message)
				continue
			}
			out, _ := json.MarshalIndent(pretty, "", "  ")
			log.Printf("<- %s", out)
		}
	}()

	// Input loop: "u" requests an on-demand update, "q" quits.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			switch strings.TrimSpace(scanner.Text()) {
			case "u":
				if err := c.WriteMessage(websocket.TextMessage, []byte(`{"type":"request_update"}`)); err != nil {
					log.Printf("Write error: %v", err)
					return
				}
			case "q":
				c.Close()
				return
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupted, closing connection")
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
