package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/BradenHooton/spendwise/pkg/logger"
)

// sesAPI is the subset of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends emails using AWS SES
type SESSender struct {
	client      sesAPI
	fromAddress string
	logger      *slog.Logger
}

// NewSESSender loads the default AWS credential chain for the region.
func NewSESSender(ctx context.Context, region, fromAddress, fromName string, logger *slog.Logger) (*SESSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESSender(ses.NewFromConfig(cfg), formatAddress(fromName, fromAddress), logger), nil
}

func newSESSender(client sesAPI, from string, logger *slog.Logger) *SESSender {
	return &SESSender{client: client, fromAddress: from, logger: logger}
}

func (s *SESSender) Send(ctx context.Context, msg Message) bool {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{formatAddress(msg.ToName, msg.To)},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(msg.HTMLBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(msg.TextBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send email via SES",
			slog.String("to", logger.SanitizedEmail(msg.To)),
			slog.String("subject", msg.Subject),
			slog.Any("error", err))
		return false
	}

	s.logger.InfoContext(ctx, "email sent via SES",
		slog.String("to", logger.SanitizedEmail(msg.To)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return true
}

// formatAddress renders `Name <addr>`, or the bare address when name is empty.
func formatAddress(name, address string) string {
	if name == "" {
		return address
	}
	return (&mail.Address{Name: name, Address: address}).String()
}
