package patients

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-admin/internal/whatsapp"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

// senderHuman marks chat rows written by staff.
const senderHuman = "human"

// Service implements staff replies on top of the repository.
type Service struct {
	repo   Repository
	sender whatsapp.Sender
	logger *logging.Logger
}

// NewService wires the repository and WhatsApp sender.
func NewService(repo Repository, sender whatsapp.Sender, logger *logging.Logger) *Service {
	if repo == nil {
		panic("patients: repository required")
	}
	if sender == nil {
		panic("patients: whatsapp sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, sender: sender, logger: logger}
}

// Reply sends a staff message to the patient and appends it to the chat.
// Staff can only reply while the conversation is under human control.
func (s *Service) Reply(ctx context.Context, phone, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	patient, err := s.repo.Get(ctx, phone)
	if err != nil {
		return err
	}
	if !patient.RequireHuman {
		return ErrAIInControl
	}
	if err := s.sender.SendText(ctx, phone, message); err != nil {
		return fmt.Errorf("patients: send reply: %w", err)
	}
	if err := s.repo.RecordMessage(ctx, phone, senderHuman, nil, message); err != nil {
		return err
	}
	s.logger.Info("staff reply sent", "phone", phone)
	return nil
}
