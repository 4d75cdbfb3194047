package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btctoolkit/internal/metrics"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/service"
)

var errNoInput = errors.New("no input given")

// maxLine bounds a single line of stdin.
const maxLine = 8 * 1024 * 1024

// app is the state shared by all commands. The toolkit is built once the
// global options are parsed, right before the selected command runs.
type app struct {
	opts    options
	ctx     context.Context
	in      io.Reader
	out     io.Writer
	logger  *zap.Logger
	toolkit *service.Toolkit
}

type commandAdder interface {
	AddCommand(command, shortDescription, longDescription string, data interface{}) (*flags.Command, error)
}

type group struct{}

func newParser(a *app) (*flags.Parser, error) {
	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = a.execute

	registrars := []func(commandAdder, *app) error{
		registerTx,
		registerScript,
		registerAddress,
		registerKey,
		registerBip32,
		registerBip39,
		registerMiniscript,
		registerDescriptor,
		registerPsbt,
		registerLightning,
	}
	for _, register := range registrars {
		if err := register(parser, a); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

func addGroup(parent commandAdder, name, short string) (*flags.Command, error) {
	return parent.AddCommand(name, short, "", &group{})
}

func (a *app) execute(cmd flags.Commander, args []string) error {
	if cmd == nil {
		return nil
	}
	logger, err := newLogger(a.opts.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger
	defer func() {
		_ = logger.Sync()
	}()

	network, ok := model.ParseNetwork(a.opts.Network)
	if !ok {
		return fmt.Errorf("unknown network %q", a.opts.Network)
	}
	a.toolkit, err = service.NewToolkit(network, metrics.NewOperations(network), logger)
	if err != nil {
		return err
	}
	if a.opts.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteTextfile(a.opts.MetricsFile); err != nil {
				logger.Error("write metrics textfile failed", zap.String("path", a.opts.MetricsFile), zap.Error(err))
			}
		}()
	}
	return cmd.Execute(args)
}

// input returns v, or all of stdin when v is empty or "-".
func (a *app) input(v string) (string, error) {
	if v != "" && v != "-" {
		return v, nil
	}
	b, err := io.ReadAll(a.in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", errNoInput
	}
	return s, nil
}

// inputs returns vs, or the non-empty lines of stdin when vs is empty.
func (a *app) inputs(vs []string) ([]string, error) {
	if len(vs) > 0 && !(len(vs) == 1 && vs[0] == "-") {
		return vs, nil
	}
	var lines []string
	sc := bufio.NewScanner(a.in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(lines) == 0 {
		return nil, errNoInput
	}
	return lines, nil
}

func (a *app) hexInput(v, field string) ([]byte, error) {
	s, err := a.input(v)
	if err != nil {
		return nil, err
	}
	return decodeHex(s, field)
}

func decodeHex(s, field string) ([]byte, error) {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, "decode hex", field, err)
	}
	return b, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printLine(s string) error {
	_, err := fmt.Fprintln(a.out, s)
	return err
}
