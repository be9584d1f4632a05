package reminders

import (
	"context"
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/internal/whatsapp"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

const reminderAgentName = "lembrete"

// ChatRecorder appends a message to a patient's chat history.
type ChatRecorder interface {
	RecordMessage(ctx context.Context, sessionID, sender string, agentName *string, content string) error
}

// WebhookHandler receives scheduler callbacks and delivers the reminder.
type WebhookHandler struct {
	sender whatsapp.Sender
	chat   ChatRecorder
	logger *logging.Logger
}

// NewWebhookHandler creates the scheduler callback handler.
func NewWebhookHandler(sender whatsapp.Sender, chat ChatRecorder, logger *logging.Logger) *WebhookHandler {
	if sender == nil {
		panic("reminders: whatsapp sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{sender: sender, chat: chat, logger: logger}
}

// webhookBody accepts both {id, payload:{...}} and the payload at top level.
type webhookBody struct {
	ID       string   `json:"id"`
	Payload  *Payload `json:"payload"`
	Numero   string   `json:"numero"`
	Mensagem string   `json:"mensagem"`
}

func (b webhookBody) payload() Payload {
	if b.Payload != nil {
		return *b.Payload
	}
	return Payload{Numero: b.Numero, Mensagem: b.Mensagem}
}

// Handle serves POST /api/scheduler/webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var body webhookBody
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p := body.payload()
	p.Numero = strings.TrimSpace(p.Numero)
	if p.Numero == "" || strings.TrimSpace(p.Mensagem) == "" {
		h.logger.Warn("scheduler webhook missing number or message", "id", body.ID)
		respond.Error(w, "numero and mensagem are required", http.StatusBadRequest)
		return
	}

	if err := h.sender.SendText(r.Context(), p.Numero, p.Mensagem); err != nil {
		h.logger.Error("failed to deliver reminder", "id", body.ID, "error", err)
		respond.Error(w, "failed to deliver reminder", http.StatusInternalServerError)
		return
	}

	if h.chat != nil {
		agent := reminderAgentName
		if err := h.chat.RecordMessage(r.Context(), p.Numero, "ai", &agent, p.Mensagem); err != nil {
			h.logger.Error("failed to record reminder in chat history", "id", body.ID, "error", err)
		}
	}

	h.logger.Info("reminder delivered", "id", body.ID, "to", p.Numero)
	respond.JSON(w, http.StatusOK, map[string]string{"status": "enviado", "numero": p.Numero})
}
