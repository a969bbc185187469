package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"gridquiz/internal/models"
	"gridquiz/internal/validation"
)

// emailSender is the part of the SES client the service uses
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// PracticeSummary is what a summary email reports
type PracticeSummary struct {
	Stats  models.SessionStats
	Recent []models.Attempt
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     emailSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From: %s <%s>", fromName, fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return newEmailServiceWithSender(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, debug), nil
}

func newEmailServiceWithSender(client emailSender, fromEmail, fromName, appBaseURL string, debug bool) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendPracticeSummary emails a session's attempt count, accuracy and latest problems
func (s *EmailService) SendPracticeSummary(ctx context.Context, toEmail string, summary PracticeSummary) error {
	if err := validation.ValidateEmail(toEmail); err != nil {
		return err
	}

	if !s.enabled {
		log.Printf("Skipping email send (service disabled): practice summary to %s", toEmail)
		return nil
	}

	subject := "곱셈 놀이 연습 결과"
	htmlBody, textBody := renderSummary(summary, s.appBaseURL)

	if s.debug {
		log.Printf("[DEBUG] Sending summary email: to=%s, attempts=%d", toEmail, summary.Stats.TotalAttempts)
	}
	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

func renderSummary(summary PracticeSummary, appBaseURL string) (string, string) {
	stats := summary.Stats

	var rows strings.Builder
	var lines strings.Builder
	for _, a := range summary.Recent {
		mark := "✗"
		if a.IsCorrect {
			mark = "✓"
		}
		fmt.Fprintf(&rows, "<tr><td>%d × %d</td><td>%d</td><td>%d</td><td>%s</td></tr>\n", a.Rows, a.Cols, a.Guess, a.Answer, mark)
		fmt.Fprintf(&lines, "- %d × %d: 답 %d, 정답 %d %s\n", a.Rows, a.Cols, a.Guess, a.Answer, mark)
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #f5a623; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		table { border-collapse: collapse; width: 100%%; }
		td, th { border-bottom: 1px solid #ddd; padding: 6px; text-align: center; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>곱셈 놀이 연습 결과</h1>
		</div>
		<div class="content">
			<p>푼 문제: <strong>%d</strong>개, 맞힌 문제: <strong>%d</strong>개 (정확도 %.0f%%)</p>
			<table>
				<tr><th>문제</th><th>답</th><th>정답</th><th></th></tr>
%s			</table>
			<p><a href="%s">다시 연습하기</a></p>
		</div>
	</div>
</body>
</html>
`, stats.TotalAttempts, stats.CorrectAttempts, stats.Accuracy(), rows.String(), appBaseURL)

	textBody := fmt.Sprintf(`곱셈 놀이 연습 결과

푼 문제: %d개, 맞힌 문제: %d개 (정확도 %.0f%%)

%s
다시 연습하기: %s
`, stats.TotalAttempts, stats.CorrectAttempts, stats.Accuracy(), lines.String(), appBaseURL)

	return htmlBody, textBody
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		if s.debug {
			log.Printf("[DEBUG] SES SendEmail failed: %v", err)
		}
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] Message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
