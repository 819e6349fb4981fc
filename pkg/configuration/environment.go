package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/veritas-edu/campus-sdk/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"campus"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type PaystackOptions struct {
	SecretKey      string        `env:"PAYSTACK_SECRET_KEY"`
	BaseURL        string        `env:"PAYSTACK_BASE_URL" envDefault:"https://api.paystack.co"`
	RequestTimeout time.Duration `env:"PAYSTACK_REQUEST_TIMEOUT" envDefault:"30s"`
}

func (p *PaystackOptions) Validate() error {
	if p.SecretKey == "" {
		return fmt.Errorf("paystack secret key is required")
	}
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("paystack request timeout must be positive, got %s", p.RequestTimeout)
	}
	return nil
}

type MailOptions struct {
	Host             string `env:"SMTP_HOST" envDefault:"localhost"`
	Port             int    `env:"SMTP_PORT" envDefault:"587"`
	User             string `env:"SMTP_USER"`
	Password         string `env:"SMTP_PASSWORD"`
	From             string `env:"MAIL_FROM" envDefault:"noreply@veritas.edu.ng"`
	OversightMailbox string `env:"MAIL_OVERSIGHT_MAILBOX" envDefault:"student-affairs@veritas.edu.ng"`
}

type EskizOptions struct {
	Enabled  bool   `env:"ESKIZ_SMS_ENABLED" envDefault:"false"`
	Email    string `env:"ESKIZ_EMAIL"`
	Password string `env:"ESKIZ_PASSWORD"`
	Sender   string `env:"ESKIZ_SENDER" envDefault:"4546"`
}

type PaymentSweepOptions struct {
	MinAge      time.Duration `env:"PAYMENT_SWEEP_MIN_AGE" envDefault:"5m"`
	MaxAge      time.Duration `env:"PAYMENT_SWEEP_MAX_AGE" envDefault:"168h"`
	BatchLimit  int           `env:"PAYMENT_SWEEP_BATCH_LIMIT" envDefault:"100"`
	MaxAttempts int           `env:"PAYMENT_SWEEP_MAX_ATTEMPTS" envDefault:"3"`
	Timeout     time.Duration `env:"PAYMENT_SWEEP_TIMEOUT" envDefault:"5m"`
	GatewayRPS  float64       `env:"PAYMENT_SWEEP_GATEWAY_RPS" envDefault:"3"`
}

func (o *PaymentSweepOptions) Validate() error {
	if o.MinAge < 0 || o.MaxAge <= 0 || o.MinAge >= o.MaxAge {
		return fmt.Errorf("payment sweep age window invalid: min=%s max=%s", o.MinAge, o.MaxAge)
	}
	if o.MaxAttempts <= 0 {
		return fmt.Errorf("payment sweep max attempts must be positive, got %d", o.MaxAttempts)
	}
	if o.GatewayRPS <= 0 {
		return fmt.Errorf("payment sweep gateway rate must be positive, got %f", o.GatewayRPS)
	}
	return nil
}

type Configuration struct {
	Database     DatabaseOptions
	Paystack     PaystackOptions
	Mail         MailOptions
	Eskiz        EskizOptions
	PaymentSweep PaymentSweepOptions

	GoAppEnvironment string        `env:"GO_APP_ENV" envDefault:"development"`
	Origin           string        `env:"ORIGIN" envDefault:"http://localhost:3200"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"error"`
	ConsentTTL       time.Duration `env:"PARENT_CONSENT_TTL" envDefault:"24h"`

	logger *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.PaymentSweep.Validate(); err != nil {
		return fmt.Errorf("payment sweep configuration error: %w", err)
	}

	c.logger = logging.Setup(c.LogrusLogLevel())
	c.Database.Opts = c.Database.ConnectionString()
	return nil
}
