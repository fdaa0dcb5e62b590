package email

import (
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// AlertService sends operator alert emails via SendGrid
type AlertService struct {
	apiKey        string
	operatorEmail string
}

// NewAlertService creates a new alert service instance
func NewAlertService(apiKey, operatorEmail string) *AlertService {
	if operatorEmail == "" {
		operatorEmail = "ops@cadence.local"
	}
	return &AlertService{
		apiKey:        apiKey,
		operatorEmail: operatorEmail,
	}
}

// OperatorAlert sends a pipeline alert to the operator address. Used for
// unknown job kinds and jobs that exhausted their retries.
func (as *AlertService) OperatorAlert(subject, detail string) error {
	if as.apiKey == "" {
		return fmt.Errorf("SendGrid API key not configured")
	}

	from := mail.NewEmail("Cadence Pipeline", "noreply@cadence.local")
	to := mail.NewEmail("Operations", as.operatorEmail)

	body := fmt.Sprintf(`Pipeline alert from the job runner.

Timestamp: %s

%s`, time.Now().Format(time.RFC3339), detail)

	message := mail.NewSingleEmail(from, "[cadence] "+subject, to, body, body)

	client := sendgrid.NewSendClient(as.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}

	return nil
}
