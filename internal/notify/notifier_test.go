// internal/notify/notifier_test.go
package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-eval-workers/internal/common/config"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
	"idea-eval-workers/internal/store"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &ses.SendEmailOutput{}, nil
}

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, nil
}

type fakeContacts struct {
	contact *store.UserContact
}

func (f *fakeContacts) GetContact(ctx context.Context, userID string) (*store.UserContact, error) {
	return f.contact, nil
}

func notifierConfig() config.NotificationConfig {
	cfg := config.NotificationConfig{AWSRegion: "eu-west-1"}
	cfg.Email.Enabled = true
	cfg.Email.FromEmail = "results@example.com"
	cfg.SMS.Enabled = true
	cfg.SMS.PriorityThreshold = 80
	return cfg
}

func scoredEvaluation(score float64) *models.Evaluation {
	return &models.Evaluation{
		ID:           "eval-1",
		UserID:       "user-1",
		Title:        "Solar kiosk",
		Status:       models.StatusCompleted,
		OverallScore: &score,
	}
}

func newNotifier(t *testing.T, email *fakeSES, sms *fakeSNS) *Notifier {
	contacts := &fakeContacts{contact: &store.UserContact{
		ID:    "user-1",
		Email: "founder@example.com",
		Phone: "+254700000001",
	}}
	return NewNotifier(email, sms, contacts, notifierConfig(), logger.NewTestLogger(t))
}

func TestNotifyResultEmailOnly(t *testing.T) {
	email := &fakeSES{}
	sms := &fakeSNS{}
	n := newNotifier(t, email, sms)

	result, err := n.NotifyResult(context.Background(), scoredEvaluation(62))

	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.False(t, result.SMSSent)
	require.Len(t, email.inputs, 1)
	assert.Equal(t, "results@example.com", *email.inputs[0].Source)
	assert.Equal(t, []string{"founder@example.com"}, email.inputs[0].Destination.ToAddresses)
	assert.Empty(t, sms.inputs)
}

func TestNotifyResultHighScoreSendsSMS(t *testing.T) {
	email := &fakeSES{}
	sms := &fakeSNS{}
	n := newNotifier(t, email, sms)

	result, err := n.NotifyResult(context.Background(), scoredEvaluation(91))

	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.True(t, result.SMSSent)
	require.Len(t, sms.inputs, 1)
	assert.Equal(t, "+254700000001", *sms.inputs[0].PhoneNumber)
	assert.Contains(t, *sms.inputs[0].Message, "91.0/100")
}

func TestNotifyResultEmailFailure(t *testing.T) {
	email := &fakeSES{err: errors.New("throttled")}
	n := newNotifier(t, email, &fakeSNS{})

	result, err := n.NotifyResult(context.Background(), scoredEvaluation(85))

	require.Error(t, err)
	assert.False(t, result.EmailSent)
}

func TestNotifyResultSMSFailureIsNonFatal(t *testing.T) {
	email := &fakeSES{}
	sms := &fakeSNS{err: errors.New("invalid number")}
	n := newNotifier(t, email, sms)

	result, err := n.NotifyResult(context.Background(), scoredEvaluation(95))

	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.False(t, result.SMSSent)
}

func TestNotifyResultDisabledChannels(t *testing.T) {
	cfg := notifierConfig()
	cfg.Email.Enabled = false
	cfg.SMS.Enabled = false
	contacts := &fakeContacts{contact: &store.UserContact{Email: "a@b.c", Phone: "+1"}}
	email := &fakeSES{}
	sms := &fakeSNS{}
	n := NewNotifier(email, sms, contacts, cfg, logger.NewTestLogger(t))

	result, err := n.NotifyResult(context.Background(), scoredEvaluation(99))

	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.False(t, result.SMSSent)
	assert.Empty(t, email.inputs)
	assert.Empty(t, sms.inputs)
}
