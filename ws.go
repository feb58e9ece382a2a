package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func EchoHandler(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer c.Close()
	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			log.Println("read:", err)
			break
		}
		err = c.WriteMessage(mt, message)
		if err != nil {
			log.Println("write:", err)
			break
		}
	}
}

// StatusStream pushes a status snapshot whenever the controller version
// changes, polled at the motion cadence. Saves the GUI from running its own
// fast/slow polling loop.
func (a *MotorAPI) StatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer conn.Close()

	// drain the read side so close frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(a.Ctrl.Interval())
	defer ticker.Stop()

	var last *uint64
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		state, changed := a.Ctrl.Status(last)
		if !changed {
			continue
		}

		v := state.Version
		last = &v

		if err := conn.WriteJSON(statusResponse(state, true)); err != nil {
			log.Println("write:", err)
			return
		}
	}
}
