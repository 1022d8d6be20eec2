package mailer

import (
	"context"
	"fmt"

	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
	"github.com/minhvu/taskhive-BE/internal/util"
	"github.com/wneessen/go-mail"
)

// SMTPSender emails a short nudge to recipients who were offline when a
// notification fanned out.
type SMTPSender struct {
	client *mail.Client
	config util.Config
}

func NewSMTPSender(config util.Config) (*SMTPSender, error) {
	client, err := mail.NewClient(config.SMTPHost, mail.WithPort(config.SMTPPort), mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(config.SMTPUsername), mail.WithPassword(config.SMTPPassword))
	if err != nil {
		return nil, err
	}
	if err = client.DialWithContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	return &SMTPSender{
		client: client,
		config: config,
	}, nil
}

var nudgeSubjects = map[db.NotificationKind]string{
	db.NotificationKindTaskAssigned:   "You have been assigned a task",
	db.NotificationKindTaskCompleted:  "A task you follow was completed",
	db.NotificationKindChannelMessage: "New message in one of your channels",
	db.NotificationKindMemberJoined:   "Someone joined your channel",
	db.NotificationKindMention:        "You were mentioned",
}

// SendNudge emails the recipient a pointer back to the app. Recipient ids
// are email addresses in this deployment.
func (sender *SMTPSender) SendNudge(ctx context.Context, recipientID string, kind db.NotificationKind) error {
	msg := mail.NewMsg()

	if err := msg.FromFormat(sender.config.SMTPSenderName, sender.config.SMTPSenderAddress); err != nil {
		return fmt.Errorf("failed to set From address: %w", err)
	}

	subject, ok := nudgeSubjects[kind]
	if !ok {
		subject = "You have a new notification"
	}
	msg.Subject(subject)

	if err := msg.To(recipientID); err != nil {
		return fmt.Errorf("failed to set To address: %w", err)
	}

	msg.SetBodyString(mail.TypeTextPlain, "You have unread notifications waiting in TaskHive. Sign in to catch up.")

	return sender.client.DialAndSendWithContext(ctx, msg)
}
