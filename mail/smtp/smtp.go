package smtp

// Config contains SMTP connection parameters.
type Config struct {
	Host     string `envconfig:"SMTP_HOST" required:"true"`     // smtp.gmail.com
	Port     int    `envconfig:"SMTP_PORT" default:"587"`       // 587 for STARTTLS, 465 for TLS
	Username string `envconfig:"SMTP_USER"`                     // username or email, empty disables AUTH
	Password string `envconfig:"SMTP_PASSWORD"`                 // password or app password
	From     string `envconfig:"SMTP_FROM"`                     // envelope sender when the message has none (optional)
	TLS      bool   `envconfig:"SMTP_TLS" default:"true"`       // enable STARTTLS
	Insecure bool   `envconfig:"SMTP_INSECURE" default:"false"` // skip certificate verification
}
