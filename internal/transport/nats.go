package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/config"
	"github.com/avvvet/sightline/internal/models"
)

// Processor runs one request cycle. *handlers.AssistHandler satisfies it.
type Processor interface {
	Process(ctx context.Context, req *models.AssistRequest) *models.AssistResponse
}

// Subjects served under the configured prefix
var natsRequestTypes = []string{
	models.RequestCommand,
	models.RequestStart,
	models.RequestAdvance,
	models.RequestStop,
	models.RequestFrame,
	models.RequestStatus,
}

type NATSTransport struct {
	conn    *nats.Conn
	config  *config.Config
	handler Processor
	subs    []*nats.Subscription
	logger  *zap.Logger
}

func NewNATSTransport(cfg *config.Config, handler Processor, logger *zap.Logger) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS server", zap.String("url", cfg.NatsURL))

	return &NATSTransport{
		conn:    conn,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

// Subject returns the request subject for a request type
func Subject(prefix, requestType string) string {
	return prefix + "." + requestType
}

func (nt *NATSTransport) Start() error {
	for _, t := range natsRequestTypes {
		subject := Subject(nt.config.NatsSubjectPrefix, t)
		sub, err := nt.conn.Subscribe(subject, nt.handleRequest)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		nt.subs = append(nt.subs, sub)
		nt.logger.Info("Subscribed to subject", zap.String("subject", subject))
	}
	return nil
}

func (nt *NATSTransport) handleRequest(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), nt.config.PhraseTimeout+5*time.Second)
	defer cancel()

	data := nt.handle(ctx, msg.Subject, msg.Data)
	if err := msg.Respond(data); err != nil {
		nt.logger.Error("Error sending response", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

// handle decodes a request, takes its type from the subject when the body
// does not carry one, and encodes the response.
func (nt *NATSTransport) handle(ctx context.Context, subject string, data []byte) []byte {
	var request models.AssistRequest
	if err := json.Unmarshal(data, &request); err != nil {
		nt.logger.Warn("Error parsing request", zap.String("subject", subject), zap.Error(err))
		return encode(errorResponse(&request, models.ErrorParseError, "Invalid request format"))
	}

	if request.Type == "" {
		request.Type = subject[strings.LastIndex(subject, ".")+1:]
	}

	nt.logger.Debug("Processing request",
		zap.String("subject", subject),
		zap.String("session_id", request.SessionID))

	return encode(nt.handler.Process(ctx, &request))
}

func encode(response *models.AssistResponse) []byte {
	data, err := json.Marshal(response)
	if err != nil {
		return []byte(fmt.Sprintf(`{"session_id":%q,"speech_text":"","speak":false,"error_code":%q}`,
			response.SessionID, models.ErrorParseError))
	}
	return data
}

func errorResponse(request *models.AssistRequest, errorCode, errorMessage string) *models.AssistResponse {
	return &models.AssistResponse{
		SessionID:    request.SessionID,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
}

func (nt *NATSTransport) Close() error {
	for _, sub := range nt.subs {
		if err := sub.Unsubscribe(); err != nil {
			nt.logger.Warn("Failed to unsubscribe", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	if nt.conn != nil {
		if err := nt.conn.Drain(); err != nil {
			nt.conn.Close()
		}
		nt.logger.Info("NATS connection closed")
	}
	return nil
}
