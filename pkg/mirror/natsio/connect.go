package natsio

import (
	"time"

	nats "github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Connect opens the NATS connection used by the mirror. Connection problems
// after the initial connect are logged only, the broker keeps running.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("msgbroker"),
		nats.DrainTimeout(10*time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Errorf("nats error: %v", err)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Debug("nats connection closed")
		}))
}
