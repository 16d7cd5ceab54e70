package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	PostgresDSN     string
	MongoURI        string
	RedisAddr       string
	RabbitURL       string
	CalendarBaseURL string
	SMTPAddr        string
	SMTPFrom        string
	HoldTTL         time.Duration
	SwapFee         decimal.Decimal
	BufferMinutes   int
	OTLPEndpoint    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	holdTTL, _ := time.ParseDuration(os.Getenv("HOLD_TTL"))
	if holdTTL == 0 {
		holdTTL = 5 * time.Minute
	}

	fee, err := decimal.NewFromString(os.Getenv("SWAP_FEE"))
	if err != nil || fee.IsZero() {
		fee = decimal.RequireFromString("1.99")
	}

	buffer := 15
	if v := os.Getenv("BUFFER_MINUTES"); v != "" {
		if d, err := time.ParseDuration(v + "m"); err == nil && d > 0 {
			buffer = int(d.Minutes())
		}
	}

	return &Config{
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		MongoURI:        os.Getenv("MONGO_URI"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RabbitURL:       os.Getenv("RABBIT_URL"),
		CalendarBaseURL: os.Getenv("CALENDAR_BASE_URL"),
		SMTPAddr:        os.Getenv("SMTP_ADDR"),
		SMTPFrom:        os.Getenv("SMTP_FROM"),
		HoldTTL:         holdTTL,
		SwapFee:         fee,
		BufferMinutes:   buffer,
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
