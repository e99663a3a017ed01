package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	nats "github.com/nats-io/nats.go"
	"github.com/nsyszr/msgbroker/config"
	"github.com/nsyszr/msgbroker/pkg/api"
	"github.com/nsyszr/msgbroker/pkg/auth"
	"github.com/nsyszr/msgbroker/pkg/broker"
	"github.com/nsyszr/msgbroker/pkg/gateway"
	"github.com/nsyszr/msgbroker/pkg/mirror/natsio"
	"github.com/nsyszr/msgbroker/pkg/storage"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type brokerServer struct {
	c      *config.Config
	nc     *nats.Conn
	store  storage.Interface
	broker *broker.Broker
	e      *echo.Echo

	cancelBroker context.CancelFunc
}

func newBrokerServer(c *config.Config) (*brokerServer, error) {
	s := &brokerServer{c: c}

	store, err := openStore(c)
	if err != nil {
		return nil, err
	}
	s.store = store

	opts := broker.Options{
		Store:        store,
		SaveInterval: c.AutoSaveInterval,
	}
	if c.AutoSaveInterval <= 0 {
		opts.SaveInterval = -1
	}

	if c.NATSServerURL != "" {
		nc, err := natsio.Connect(c.NATSServerURL)
		if err != nil {
			s.closeStore()
			return nil, errors.Wrap(err, "failed to connect to NATS")
		}
		s.nc = nc
		opts.Mirror = natsio.New(nc, natsio.DefaultBaseSubject)
		log.WithField("url", c.NATSServerURL).Info("Mirroring messages to NATS")
	}

	s.broker = broker.New(opts)
	if err := s.broker.Load(context.Background()); err != nil {
		// In-memory state is authoritative, the next save overwrites the
		// unreadable snapshot.
		log.Errorf("Failed to load saved state: %v", err)
	}

	users := auth.NewStaticUsers(c.UserPasswords())
	if users.Len() == 0 {
		log.Warn("No users configured, every login will be rejected")
	} else {
		log.WithField("users", users.Len()).Info("Loaded users")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger())

	gateway.NewHandler(gateway.Options{
		Broker:        s.broker,
		Authenticator: users,
		OutboxSize:    c.OutboxSize,
		HistoryWindow: c.HistoryWindow,
	}).RegisterRoutes(e)
	api.NewHandler(s.broker).RegisterRoutes(e)
	s.e = e

	return s, nil
}

// Serve binds the listener and starts the broker. Only a failing bind is
// returned as error.
func (s *brokerServer) Serve() error {
	addr := fmt.Sprintf("%s:%d", s.c.BindHost, s.c.BindPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	s.e.Listener = ln

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelBroker = cancel
	go func() {
		if err := s.broker.Run(ctx); err != nil {
			log.Errorf("Broker failed: %v", err)
		}
	}()

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.BindPort,
		}).Info("Starting server")

		if err := s.e.Start(addr); err != nil {
			log.Info("Shutting down the server")
		}
	}()

	return nil
}

func (s *brokerServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting connections first, then save and close the sessions.
	if err := s.e.Shutdown(ctx); err != nil {
		log.Errorf("Failed to shutdown http server: %v", err)
	}

	s.cancelBroker()
	select {
	case <-s.broker.Done():
		log.Info("Shutdown broker successful")
	case <-ctx.Done():
		log.Error("Shutdown broker failed")
	}

	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			log.Errorf("Failed to drain NATS connection: %v", err)
		}
	}
	s.closeStore()
}

func (s *brokerServer) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Errorf("Failed to close storage: %v", err)
	}
}

func RunServeBroker(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := configureLogging(c); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		s, err := newBrokerServer(c)
		if err != nil {
			log.Error("failed to create new server instance: ", err)
			os.Exit(1)
		}

		if err := s.Serve(); err != nil {
			log.Error("failed to start server: ", err)
			s.closeStore()
			os.Exit(1)
		}

		// Wait for interrupt signal to gracefully shutdown the server
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt, syscall.SIGTERM)
		<-quitCh
		log.Info("Shutdown signal received")

		s.Shutdown()
	}
}
