// internal/notify/notifier.go

// Package notify delivers evaluation-result notifications: email for every
// completed evaluation, SMS only above the configured priority threshold.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"idea-eval-workers/internal/common/config"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
	"idea-eval-workers/internal/store"
)

// EmailSender is the SES surface the notifier uses.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SMSSender is the SNS surface the notifier uses.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ContactSource resolves a recipient's email and phone.
type ContactSource interface {
	GetContact(ctx context.Context, userID string) (*store.UserContact, error)
}

// Result summarizes what was actually delivered.
type Result struct {
	EmailSent bool `json:"emailSent"`
	SMSSent   bool `json:"smsSent"`
}

// Notifier sends completion notifications to applicants.
type Notifier struct {
	email    EmailSender
	sms      SMSSender
	contacts ContactSource
	cfg      config.NotificationConfig
	logger   logger.Logger
}

func NewNotifier(email EmailSender, sms SMSSender, contacts ContactSource, cfg config.NotificationConfig, log logger.Logger) *Notifier {
	return &Notifier{
		email:    email,
		sms:      sms,
		contacts: contacts,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// NotifyResult informs the applicant their evaluation finished. Email goes
// out whenever the channel is enabled; SMS only for high scores, where a
// human follow-up call usually comes next.
func (n *Notifier) NotifyResult(ctx context.Context, ev *models.Evaluation) (*Result, error) {
	contact, err := n.contacts.GetContact(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if n.cfg.Email.Enabled && contact.Email != "" {
		if err := n.sendEmail(ctx, contact.Email, ev); err != nil {
			return result, err
		}
		result.EmailSent = true
	}

	if n.cfg.SMS.Enabled && contact.Phone != "" && n.priorityScore(ev) {
		if err := n.sendSMS(ctx, contact.Phone, ev); err != nil {
			// Email already went out; drop the SMS with a warning instead of
			// failing the whole notification.
			n.logger.WithError(err).Warn("sms delivery failed", map[string]interface{}{
				"evaluationId": ev.ID,
			})
			return result, nil
		}
		result.SMSSent = true
	}
	return result, nil
}

func (n *Notifier) priorityScore(ev *models.Evaluation) bool {
	return ev.OverallScore != nil && *ev.OverallScore >= n.cfg.SMS.PriorityThreshold
}

func (n *Notifier) sendEmail(ctx context.Context, to string, ev *models.Evaluation) error {
	subject := fmt.Sprintf("Your evaluation for %q is ready", ev.Title)
	body := fmt.Sprintf(
		"Hello,\n\nThe evaluation of your business idea %q has completed.\n"+
			"Overall score: %s\n\nLog in to view the full breakdown.\n",
		ev.Title, formatScore(ev.OverallScore))

	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("result email sent", map[string]interface{}{
		"evaluationId": ev.ID,
	})
	return nil
}

func (n *Notifier) sendSMS(ctx context.Context, phone string, ev *models.Evaluation) error {
	message := fmt.Sprintf("Your business idea %q scored %s. Check your email for details.",
		ev.Title, formatScore(ev.OverallScore))

	_, err := n.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("publish sms: %w", err)
	}

	n.logger.Info("result sms sent", map[string]interface{}{
		"evaluationId": ev.ID,
	})
	return nil
}

func formatScore(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f/100", *score)
}
