package minio

// Config contains S3-compatible storage parameters for the mail bucket.
// Works with MinIO, Yandex Cloud Storage, AWS S3 and other S3-compatible providers.
type Config struct {
	Endpoint           string `envconfig:"S3_ENDPOINT" required:"true"`             // "localhost:9000" for MinIO
	AccessKey          string `envconfig:"S3_ACCESS_KEY" required:"true"`           // access key ID
	SecretKey          string `envconfig:"S3_SECRET_KEY" required:"true"`           // secret access key
	Region             string `envconfig:"S3_REGION" default:"us-east-1"`           // region name
	Bucket             string `envconfig:"MAIL_BUCKET" default:"mail"`              // bucket receiving messages
	Prefix             string `envconfig:"MAIL_BUCKET_PREFIX"`                      // key prefix, e.g. "outbox/"
	CreateBucket       bool   `envconfig:"MAIL_BUCKET_CREATE" default:"false"`      // create the bucket when missing
	Secure             bool   `envconfig:"S3_SECURE" default:"true"`                // use HTTPS
	Timeout            int    `envconfig:"S3_TIMEOUT" default:"30"`                 // connection check timeout in seconds
	InsecureSkipVerify bool   `envconfig:"S3_INSECURE_SKIP_VERIFY" default:"false"` // disables HTTPS
}
