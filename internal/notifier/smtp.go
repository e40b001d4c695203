package notifier

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// TLSPolicy is one of "mandatory", "opportunistic" or "none".
	TLSPolicy string
	Timeout   time.Duration
}

// SMTPTransport delivers messages through an SMTP server.
// A fresh connection is dialled per message so concurrent sends never
// share a session.
type SMTPTransport struct {
	host    string
	options []mail.Option
}

func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}

	policy, err := parseTLSPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{mail.WithTLSPolicy(policy)}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	return &SMTPTransport{host: cfg.Host, options: opts}, nil
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return errors.Wrap(err, "from address")
	}
	if err := m.To(msg.To); err != nil {
		return errors.Wrap(err, "to address")
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(t.host, t.options...)
	if err != nil {
		return errors.Wrap(err, "smtp client")
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return nil
}

func parseTLSPolicy(s string) (mail.TLSPolicy, error) {
	switch s {
	case "", "mandatory":
		return mail.TLSMandatory, nil
	case "opportunistic":
		return mail.TLSOpportunistic, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.NoTLS, errors.Newf("unknown smtp tls policy %q", s)
	}
}
