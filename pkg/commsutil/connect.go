// Package commsutil provides COMMS (NATS) connection helpers and subject naming.
package commsutil

import (
	"fmt"
	"time"

	comms "github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const logPrefix = "commsutil:connect"

// Connect creates a COMMS connection to the given URL.
func Connect(url, name string, logger *zap.Logger) (*comms.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("comms")
	logger.Info("connecting to COMMS", zap.String("url", url), zap.String("name", name))

	nc, err := comms.Connect(url,
		comms.Name(name),
		comms.Timeout(10*time.Second),
		comms.ReconnectWait(2*time.Second),
		comms.MaxReconnects(60),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			logger.Warn("COMMS disconnected", zap.Error(err))
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			logger.Info("COMMS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		comms.ClosedHandler(func(_ *comms.Conn) {
			logger.Debug("COMMS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	logger.Info("connected to COMMS", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}
