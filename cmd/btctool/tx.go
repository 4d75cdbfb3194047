package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/goodnatureofminers/btctoolkit/internal/metrics"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/service"
	"github.com/goodnatureofminers/btctoolkit/pkg/batcher"
)

func registerTx(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "tx", "Decode and encode transactions")
	if err != nil {
		return err
	}
	if _, err := g.AddCommand("decode", "Decode raw transactions",
		"Decode one or more hex transactions given as arguments or as lines on stdin. "+
			"Several transactions are decoded concurrently and printed as a JSON array.",
		&txDecodeCommand{a: a}); err != nil {
		return err
	}
	_, err = g.AddCommand("create", "Encode a transaction from JSON",
		"Read a transaction in the JSON shape printed by tx decode and print its hex encoding. "+
			"Outputs may give an address instead of a script hex.",
		&txCreateCommand{a: a})
	return err
}

type txDecodeCommand struct {
	a             *app
	Core          bool          `long:"core" description:"print in the decoderawtransaction shape of Bitcoin Core"`
	Stream        bool          `long:"stream" description:"decode stdin as it arrives and print one JSON object per line"`
	BatchSize     int           `long:"batch-size" description:"stream: transactions decoded together" default:"64"`
	FlushInterval time.Duration `long:"flush-interval" description:"stream: decode a partial batch after this long" default:"1s"`
	Rate          int           `long:"rate" description:"stream: max batches per second, 0 for no limit" default:"0"`
}

type batchItem struct {
	Transaction *model.TransactionInfo `json:"transaction,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

func (c *txDecodeCommand) Execute(args []string) error {
	if c.Stream {
		if c.Core || len(args) > 0 {
			return errors.New("--stream reads stdin only and takes no --core")
		}
		return c.stream()
	}

	lines, err := c.a.inputs(args)
	if err != nil {
		return err
	}
	if len(lines) == 1 {
		raw, err := decodeHex(lines[0], "transaction")
		if err != nil {
			return err
		}
		if c.Core {
			res, err := c.a.toolkit.DecodeTransactionCore(raw)
			if err != nil {
				return err
			}
			return c.a.printJSON(res)
		}
		info, err := c.a.toolkit.DecodeTransaction(raw)
		if err != nil {
			return err
		}
		return c.a.printJSON(info)
	}
	if c.Core {
		return errors.New("--core takes a single transaction")
	}

	items, err := c.decodeBatch(c.a.ctx, lines, metrics.NewBatch("tx decode"))
	if err != nil {
		return err
	}
	return c.a.printJSON(items)
}

// decodeBatch decodes lines concurrently. Lines that fail to decode are
// reported in their item.
func (c *txDecodeCommand) decodeBatch(ctx context.Context, lines []string, m service.BatchMetrics) ([]batchItem, error) {
	items := make([]batchItem, len(lines))
	raws := make([][]byte, 0, len(lines))
	index := make([]int, 0, len(lines))
	for i, line := range lines {
		raw, err := decodeHex(line, "transaction")
		if err != nil {
			items[i].Error = err.Error()
			continue
		}
		raws = append(raws, raw)
		index = append(index, i)
	}
	results, err := c.a.toolkit.DecodeTransactions(ctx, raws, c.a.opts.Workers, m)
	if err != nil {
		return nil, err
	}
	for j, r := range results {
		i := index[j]
		if r.Err != nil {
			items[i].Error = r.Err.Error()
			continue
		}
		info := r.Value
		items[i].Transaction = &info
	}
	return items, nil
}

func (c *txDecodeCommand) stream() error {
	m := metrics.NewBatch("tx decode stream")
	enc := json.NewEncoder(c.a.out)
	b := batcher.New(c.a.logger.Named("batcher"), func(ctx context.Context, lines []string) error {
		items, err := c.decodeBatch(ctx, lines, m)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return err
			}
		}
		return nil
	}, batcher.Config{Size: c.BatchSize, Interval: c.FlushInterval, RPS: c.Rate})
	b.Start(c.a.ctx)

	sc := bufio.NewScanner(c.a.in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	var addErr error
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if addErr = b.Add(c.a.ctx, line); addErr != nil {
			break
		}
	}
	return errors.Join(addErr, sc.Err(), b.Stop())
}

type txCreateCommand struct {
	a    *app
	Args struct {
		JSON string `positional-arg-name:"json" description:"transaction JSON; read from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *txCreateCommand) Execute([]string) error {
	s, err := c.a.input(c.Args.JSON)
	if err != nil {
		return err
	}
	var info model.TransactionInfo
	if err := json.Unmarshal([]byte(s), &info); err != nil {
		return model.NewError(model.ErrInvalidEncoding, "parse transaction json", "json", err)
	}
	raw, err := c.a.toolkit.CreateTransaction(info)
	if err != nil {
		return err
	}
	return c.a.printLine(hex.EncodeToString(raw))
}
