package service

import (
	"context"
	"errors"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/inspect"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/pkg/workerpool"
	"go.uber.org/zap"
)

// DecodeTransaction decodes a consensus-encoded transaction.
func (s *Toolkit) DecodeTransaction(raw []byte) (model.TransactionInfo, error) {
	return observe(s, "decode transaction", func() (model.TransactionInfo, error) {
		tx, err := codec.DecodeTransaction(raw)
		if err != nil {
			return model.TransactionInfo{}, err
		}
		return inspect.Transaction(tx, s.network), nil
	})
}

// DecodeTransactionCore decodes a transaction into the decoderawtransaction
// shape of Bitcoin Core.
func (s *Toolkit) DecodeTransactionCore(raw []byte) (btcjson.TxRawDecodeResult, error) {
	return observe(s, "decode transaction core", func() (btcjson.TxRawDecodeResult, error) {
		tx, err := codec.DecodeTransaction(raw)
		if err != nil {
			return btcjson.TxRawDecodeResult{}, err
		}
		return inspect.CoreDecode(tx, s.network), nil
	})
}

// CreateTransaction encodes a transaction described by info.
func (s *Toolkit) CreateTransaction(info model.TransactionInfo) ([]byte, error) {
	return observe(s, "create transaction", func() ([]byte, error) {
		tx, err := inspect.Build(info, s.network)
		if err != nil {
			return nil, err
		}
		return codec.EncodeTransaction(tx), nil
	})
}

// DecodeTransactions decodes raws on workerCount goroutines. Results keep
// the input order; a failing item does not stop the others.
func (s *Toolkit) DecodeTransactions(
	ctx context.Context,
	raws [][]byte,
	workerCount int,
	metrics BatchMetrics,
) (res []workerpool.Result[model.TransactionInfo], err error) {
	if metrics == nil {
		return nil, errors.New("batch metrics is required")
	}
	started := time.Now()
	var batchErr error
	defer func() {
		if err != nil {
			batchErr = err
		}
		metrics.ObserveBatch(batchErr, len(raws), started)
	}()

	res, err = workerpool.Map(ctx, workerCount, raws, func(_ context.Context, raw []byte) (model.TransactionInfo, error) {
		info, err := s.DecodeTransaction(raw)
		metrics.ObserveItem(err)
		return info, err
	})
	if err != nil {
		s.logger.Error("decode batch aborted", zap.Int("items", len(raws)), zap.Error(err))
		return nil, err
	}

	failed := 0
	for _, r := range res {
		if r.Err != nil {
			failed++
			if batchErr == nil {
				batchErr = r.Err
			}
		}
	}
	s.logger.Info("decode batch done",
		zap.Int("items", len(raws)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}
