// Package main runs a demo WebSocket client for run events: it queues an
// asynchronous optimization of random points and prints every event until
// the run finishes.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"tourplan/internal/model"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, TimeFormat: "15:04:05.00"})
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// 200 random stops around Poznań, searched for two seconds
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	req := model.OptimizeRequest{Mode: "cycling", TimeBudgetMs: 2000, Async: true}
	for i := 0; i < 200; i++ {
		req.Points = append(req.Points, model.GeoPoint{Lat: 52.40 + rng.Float64()*0.05, Lng: 16.90 + rng.Float64()*0.08})
	}
	body, err := json.Marshal(req)
	if err != nil {
		logger.Fatal("encode request", "err", err)
	}
	resp, err := http.Post(base+"/v1/optimize", "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Fatal("optimize", "err", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		logger.Fatal("optimize", "status", resp.Status)
	}
	var run model.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		logger.Fatal("decode run", "err", err)
	}
	logger.Info("run queued", "id", run.ID, "stops", run.Stops)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + run.ID + "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatal("dial", "err", err)
	}
	defer func() { _ = conn.Close() }()

	for {
		var evt model.RunEvent
		if err := conn.ReadJSON(&evt); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				return
			}
			logger.Fatal("read", "err", err)
		}
		logger.Info(evt.Type, "data", evt.Data)
	}
}
