package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"
	"github.com/nsyszr/msgbroker/pkg/mirror/natsio"
	"github.com/nsyszr/msgbroker/pkg/model"
)

func main() {
	url := nats.DefaultURL
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	nc, err := nats.Connect(url)
	if err != nil {
		log.Fatal(err)
	}
	defer nc.Close()

	if _, err := nc.Subscribe(natsio.DefaultBaseSubject+".>", func(m *nats.Msg) {
		var msg model.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			fmt.Printf("subject: %s, invalid message: %v\n", m.Subject, err)
			return
		}
		fmt.Printf("subject: %s, id: %d, sender: %s, scheduled: %t, content: %s\n",
			m.Subject, msg.ID, msg.Sender, msg.Scheduled, msg.Content)
	}); err != nil {
		log.Fatal(err)
	}

	// Wait for interrupt signal
	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, os.Interrupt)
	<-quitCh
}
