// Package service runs toolkit operations for the command line, logging and
// measuring every call.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/btctoolkit/internal/address"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"go.uber.org/zap"
)

// Toolkit binds the core operations to one network.
type Toolkit struct {
	logger  *zap.Logger
	network model.Network
	metrics Metrics
}

// NewToolkit builds a Toolkit for network.
func NewToolkit(network model.Network, metrics Metrics, logger *zap.Logger) (*Toolkit, error) {
	logger = logger.With(zap.String("network", string(network)))
	if metrics == nil {
		return nil, errors.New("toolkit metrics is required")
	}
	if _, err := address.Params(network); err != nil {
		return nil, fmt.Errorf("toolkit network: %w", err)
	}
	return &Toolkit{
		logger:  logger.Named("toolkit"),
		network: network,
		metrics: metrics,
	}, nil
}

// Network is the network addresses and keys are encoded for.
func (s *Toolkit) Network() model.Network {
	return s.network
}

func observe[T any](s *Toolkit, operation string, fn func() (T, error)) (T, error) {
	started := time.Now()
	res, err := fn()
	s.metrics.Observe(operation, err, started)
	if err != nil {
		s.logger.Warn("operation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return res, err
	}
	s.logger.Debug("operation done",
		zap.String("operation", operation),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}
