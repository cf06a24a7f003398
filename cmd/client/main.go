package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prudhvinik1/eventrelay/internal/client"
	"github.com/prudhvinik1/eventrelay/internal/models"
)

type loginResponse struct {
	Token    string `json:"token"`
	DeviceID string `json:"device_id"`
}

func main() {
	serverVar := flag.String("server", "http://localhost:8080", "server base URL")
	emailVar := flag.String("email", "", "account email")
	passwordVar := flag.String("password", "", "account password")
	deviceVar := flag.String("device", "", "existing device id (empty registers a new device)")
	deviceNameVar := flag.String("device-name", "cli", "name for a newly registered device")
	cursorVar := flag.String("cursor-file", ".eventrelay-cursor", "path for the local cursor")
	flag.Parse()

	if *emailVar == "" || *passwordVar == "" {
		log.Fatal("email and password are required")
	}

	if err := run(*serverVar, *emailVar, *passwordVar, *deviceVar, *deviceNameVar, *cursorVar); err != nil {
		log.Fatal(err)
	}
}

func run(server, email, password, deviceID, deviceName, cursorPath string) error {
	login, err := doLogin(server, email, password, deviceID, deviceName)
	if err != nil {
		return err
	}
	log.Printf("logged in as device %s", login.DeviceID)

	cursor := client.NewFileCursorStore(cursorPath)

	handshake := models.Handshake{
		Token:            login.Token,
		DeviceID:         login.DeviceID,
		LastSeenPosition: client.LastSeenPosition(cursor),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	wsURL := strings.Replace(server, "http", "ws", 1) + "/ws"
	transport, err := client.Dial(ctx, wsURL, handshake)
	if err != nil {
		return err
	}

	cache := client.NewCache()
	reconciler := client.NewReconciler(cache, cursor, transport, func(entityID string, entityPath *string) error {
		// A real device would delete the referenced file here.
		log.Printf("cleanup requested for entity %s", entityID)
		return nil
	})
	reconciler.OnEvent = func(event models.Event) {
		log.Printf("event %s %s", event.Position, event.Type)
	}

	err = reconciler.Run(ctx)
	log.Printf("disconnected with %d cached entities", cache.Len())
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func doLogin(server, email, password, deviceID, deviceName string) (*loginResponse, error) {
	payload := map[string]any{
		"email":       email,
		"password":    password,
		"device_name": deviceName,
		"device_type": "cli",
	}
	if deviceID != "" {
		payload["device_id"] = deviceID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(server+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &login, nil
}
