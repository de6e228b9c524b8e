package sendmail

// Config contains the local sendmail binary settings.
type Config struct {
	// Path to a sendmail compatible binary (sendmail, msmtp, ssmtp).
	Path string `envconfig:"SENDMAIL_PATH" default:"/usr/sbin/sendmail"`
	// From is used for -f when the message has no sender.
	From string `envconfig:"SENDMAIL_FROM"`
}
