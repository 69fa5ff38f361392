package deliver

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Most email-to-device gateways reject attachments beyond this size.
const maxAttachmentSize = 50 * 1024 * 1024

// EmailTransport mails the artifact as a MIME attachment via SMTP, the
// shape send-to-Kindle gateways expect.
type EmailTransport struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	subject  string
}

func NewEmailTransport(host string, port int, username, password, from string, to []string, subject string) *EmailTransport {
	return &EmailTransport{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		subject:  subject,
	}
}

func (t *EmailTransport) Send(_ context.Context, artifact Artifact) error {
	if len(artifact.Data) == 0 {
		return fmt.Errorf("email: refusing to send empty artifact")
	}
	if len(artifact.Data) > maxAttachmentSize {
		return fmt.Errorf("email: artifact is %d bytes, exceeds %d byte limit", len(artifact.Data), maxAttachmentSize)
	}

	msg := buildMessage(t.from, t.to, t.subject, artifact)

	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	auth := smtp.PlainAuth("", t.username, t.password, t.host)

	if err := smtp.SendMail(addr, auth, t.from, t.to, msg); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}

	return nil
}

// buildMessage assembles a multipart/mixed message with a short text
// part and the artifact as a base64 attachment.
func buildMessage(from string, to []string, subject string, artifact Artifact) []byte {
	boundary := "news2kindle-boundary"
	subtype := "octet-stream"
	if strings.HasSuffix(artifact.Filename, ".epub") {
		subtype = "epub+zip"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", from))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n", boundary))
	sb.WriteString("\r\n")

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString("Your daily news.\r\n")

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString(fmt.Sprintf("Content-Type: application/%s; name=%q\r\n", subtype, artifact.Filename))
	sb.WriteString("Content-Transfer-Encoding: base64\r\n")
	sb.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", artifact.Filename))
	sb.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString(artifact.Data)
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		sb.WriteString(encoded[:n])
		sb.WriteString("\r\n")
		encoded = encoded[n:]
	}

	sb.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return []byte(sb.String())
}
