// Command assistctl sends one request to a running sightline service over NATS
// and prints the reply.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	cli "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/config"
	"github.com/avvvet/sightline/internal/logging"
	"github.com/avvvet/sightline/internal/models"
	"github.com/avvvet/sightline/internal/transport"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	session := cli.StringP("session", "s", "assistctl", "Session id")
	kind := cli.StringP("type", "t", models.RequestStatus, "Request type: command, start, advance, stop, frame, status")
	text := cli.String("text", "", "Transcript for a command request")
	label := cli.String("intent", "", "Pre-classified intent label")
	dest := cli.StringP("dest", "d", "", "Destination")
	objects := cli.StringP("objects", "o", "", `Detections as JSON, e.g. '[{"name":"chair","position":"center","distance_meters":1.2}]'`)
	timeout := cli.Duration("timeout", 15*time.Second, "Request timeout")
	raw := cli.Bool("json", false, "Print the full JSON reply")
	cli.Parse()

	godotenv.Load(*envFile)
	cfg := config.Load()

	logger, err := logging.New("warn", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	req := models.AssistRequest{
		SessionID: *session,
		Type:      *kind,
		Text:      *text,
		Intent:    *label,
	}
	if *dest != "" {
		req.Destination = dest
	}
	if *objects != "" {
		if err := json.Unmarshal([]byte(*objects), &req.Objects); err != nil {
			logger.Fatal("Invalid --objects", zap.Error(err))
		}
	}

	conn, err := nats.Connect(cfg.NatsURL, nats.Name("assistctl"), nats.Timeout(cfg.NatsTimeout))
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.String("url", cfg.NatsURL), zap.Error(err))
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		logger.Fatal("Failed to encode request", zap.Error(err))
	}

	subject := transport.Subject(cfg.NatsSubjectPrefix, *kind)
	msg, err := conn.Request(subject, data, *timeout)
	if err != nil {
		logger.Fatal("Request failed", zap.String("subject", subject), zap.Error(err))
	}

	if *raw {
		fmt.Println(string(msg.Data))
		return
	}

	var resp models.AssistResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		logger.Fatal("Invalid reply", zap.Error(err))
	}

	if resp.ErrorCode != nil {
		fmt.Printf("error: %s", *resp.ErrorCode)
		if resp.ErrorMessage != nil {
			fmt.Printf(" (%s)", *resp.ErrorMessage)
		}
		fmt.Println()
	}
	if resp.Speak {
		fmt.Printf("say: %s\n", resp.SpeechText)
	}
	if resp.Status.Active {
		fmt.Printf("route: %s, step %d", resp.Status.Destination, resp.Status.StepIndex)
		if resp.Status.Instruction != nil {
			fmt.Printf(" (%s: %s)", resp.Status.Instruction.Action, resp.Status.Instruction.Description)
		}
		fmt.Println()
	} else {
		fmt.Println("route: inactive")
	}
}
