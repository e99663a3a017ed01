package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/nsyszr/msgbroker/pkg/proto"
)

// Logs in, subscribes to a topic, publishes one message and prints every
// frame received within a few seconds.
func main() {
	if len(os.Args) != 6 {
		log.Fatal("usage: wsclient <url> <user> <password> <topic> <content>")
	}
	url, user, password, topic, content := os.Args[1], os.Args[2], os.Args[3], os.Args[4], os.Args[5]

	conn, _, _, err := ws.Dial(context.Background(), url)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	send := func(msgType proto.MessageType, payload interface{}) {
		data, err := proto.MarshalMessage(msgType, payload)
		if err != nil {
			log.Fatal(err)
		}
		if err := wsutil.WriteClientText(conn, data); err != nil {
			log.Fatal(err)
		}
	}

	send(proto.MessageTypeLogin, proto.LoginMessage{UserID: user, Password: password})
	send(proto.MessageTypeSubscribe, proto.SubscribeMessage{Topic: topic})
	send(proto.MessageTypePublish, proto.PublishMessage{Topic: topic, Content: content, Sender: user})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			fmt.Printf("done: %v\n", err)
			return
		}
		fmt.Printf("received: %s\n", string(data))
	}
}
