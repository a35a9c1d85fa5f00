// Command browsergate runs the browser automation gateway daemon: one
// managed browser, isolated sessions inside it, an extension bridge,
// and a newline-delimited JSON request interface over a unix socket.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/browsergate/browsergate/pkg/bridge"
	"github.com/browsergate/browsergate/pkg/browser"
	"github.com/browsergate/browsergate/pkg/config"
	"github.com/browsergate/browsergate/pkg/logging"
	"github.com/browsergate/browsergate/pkg/service"
	"github.com/browsergate/browsergate/pkg/state"
)

func main() {
	configPath := flag.String("config", "", "path to the config file (default ~/.browsergate/config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "browsergate: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, logErr := logging.NewLogger("main")
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "browsergate: file logging unavailable: %v\n", logErr)
	}
	defer logger.Close()
	logger.Infof("starting browsergate (socket %s)", cfg.SocketPath)

	browserLog, _ := logging.NewLogger("browser")
	manager, err := browser.NewManager(browser.Options{
		Headless:         cfg.Headless,
		UserDataDir:      cfg.UserDataDir,
		SnapshotMaxNodes: cfg.SnapshotMaxNodes,
	}, browserLog)
	if err != nil {
		return err
	}
	defer manager.Shutdown()

	bridgeLog, _ := logging.NewLogger("bridge")
	br := bridge.New(cfg.BridgeAddr, bridgeLog)
	br.SetCallTimeout(cfg.BridgeCallTimeout())
	if err := br.Start(); err != nil {
		return err
	}
	defer br.Close()

	store, err := state.NewStore(cfg.StateDir)
	if err != nil {
		return err
	}

	serviceLog, _ := logging.NewLogger("service")
	svc := service.New(manager, br, store, serviceLog)

	// Stale socket from a previous run
	os.Remove(cfg.SocketPath)
	ln, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.SocketPath, err)
	}
	defer ln.Close()
	defer os.Remove(cfg.SocketPath)

	logger.Infof("ready")
	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept failed: %w", err)
		}
		go serveConn(conn, svc, logger)
	}
}

// serveConn handles one client: a JSON request per line in, a JSON
// response per line out.
func serveConn(conn net.Conn, svc *service.Service, logger *logging.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var req struct {
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		if err := json.Unmarshal(line, &req); err != nil {
			writeResponse(enc, nil, fmt.Errorf("malformed request: %w", err), logger)
			continue
		}

		result, err := svc.Dispatch(context.Background(), req.Method, req.Params)
		writeResponse(enc, result, err, logger)
	}
}

func writeResponse(enc *json.Encoder, result any, err error, logger *logging.Logger) {
	var resp map[string]any
	if err != nil {
		resp = map[string]any{"ok": false, "error": err.Error()}
	} else {
		resp = map[string]any{"ok": true, "result": result}
	}
	if encodeErr := enc.Encode(resp); encodeErr != nil {
		logger.Warnf("failed to write response: %v", encodeErr)
	}
}
