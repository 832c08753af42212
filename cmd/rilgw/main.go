// Command rilgw exposes a cellular modem as a small gateway: HTTP and
// MQTT for sending text messages, device events republished to MQTT,
// signal and registration status over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/hamsadev/ril"
	"github.com/hamsadev/ril/network"
	"github.com/hamsadev/ril/sms"
	"github.com/hamsadev/ril/stream"
)

func main() {
	fSet := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fSet.String("bind-address", "", "HTTP listen address")
	fSet.String("serial-port", "", "modem serial port")
	fSet.Int("baud-rate", 0, "serial baud rate")
	fSet.String("log-level", "", "log level (debug, info, warn, error)")
	fSet.String("mqtt-broker", "", "MQTT broker URL, empty disables the bridge")
	configPath := fSet.String("config", "rilgw.yaml", "path to YAML config file")
	fSet.Parse(os.Args[1:])

	config, err := LoadConfig(
		WithDefaults(),
		WithFile(*configPath),
		WithEnv(),
		WithFlags(fSet),
	)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	var logLevel slog.Level
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// URCs are buffered through a channel so the handler never blocks
	// the session's service loop on broker or modem round trips.
	urcCh := make(chan ril.URC, 64)

	sessionConfig, err := ril.NewConfigBuilder().
		WithDialer(stream.SerialDialer{
			PortName: config.SerialPort,
			Mode:     &serial.Mode{BaudRate: config.BaudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		}).
		WithLogger(logger.With("component", "session")).
		WithEcho(config.Echo).
		WithURCHandler(func(u ril.URC) {
			select {
			case urcCh <- u:
			default:
				logger.Warn("URC queue full, report dropped", "line", u.Line)
			}
		}).
		Build()
	if err != nil {
		logger.Error("Failed to build session config", "error", err)
		os.Exit(1)
	}

	session, err := ril.New(context.Background(), sessionConfig)
	if err != nil {
		logger.Error("Failed to open modem", "error", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 60*time.Second)
	err = session.Start(startCtx)
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize modem", "error", err)
		os.Exit(1)
	}

	smsClient := sms.New(session)
	netClient := network.New(session)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	err = smsClient.SetTextMode(initCtx)
	cancelInit()
	if err != nil {
		logger.Error("Failed to enable SMS text mode", "error", err)
		os.Exit(1)
	}

	var bridge *Bridge
	if config.MqttBroker != "" {
		bridge = StartBridge(config, logger.With("component", "mqtt"), smsClient)
		defer bridge.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Service loop: poll for unsolicited reports between commands.
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				session.ServiceTick()
			}
		}
	}()

	// Event loop: log reports, fetch stored messages announced by
	// +CMTI, republish to MQTT.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-urcCh:
				handleURC(ctx, logger, smsClient, bridge, u)
			}
		}
	}()

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:  logger.With("component", "server"),
			Session: session,
			SMS:     smsClient,
			Network: netClient,
		},
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig.String())
	cancel()

	logger.Info("Closing modem session")
	if err := session.Close(); err != nil && !errors.Is(err, ril.ErrClosed) {
		logger.Error("Failed to close session", "error", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}

// handleURC reacts to one unsolicited report from the event loop.
func handleURC(ctx context.Context, logger *slog.Logger, smsClient *sms.Client, bridge *Bridge, u ril.URC) {
	logger.Debug("device report", "type", int(u.Type), "line", u.Line)
	if bridge != nil {
		bridge.PublishEvent(u)
	}

	// A +CMTI report names the slot of a freshly stored message;
	// fetch and republish it.
	if u.Type == ril.URCSmsStored && len(u.Params) >= 2 {
		index := int(u.Params[1].Int)
		readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		msg, err := smsClient.Read(readCtx, index)
		if err != nil {
			logger.Error("Failed to read stored message", "error", err, "index", index)
			return
		}
		logger.Info("SMS received", "from", msg.Sender, "index", index)
		if bridge != nil {
			bridge.PublishMessage(msg)
		}
	}
}
