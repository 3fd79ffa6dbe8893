package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	JWTSecret          string
	MidtransServerKey  string
	MidtransProduction bool
	AppEnv             string
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] no .env file, using system environment")
	}

	AppEnv = GetEnv("APP_ENV", "development")
	JWTSecret = GetEnv("JWT_SECRET")
	MidtransServerKey = GetEnv("MIDTRANS_SERVER_KEY")
	MidtransProduction = GetEnvBool("MIDTRANS_PRODUCTION", false)

	if JWTSecret == "" {
		log.Println("[CONFIG] JWT_SECRET is not set")
	}
	if MidtransServerKey == "" {
		log.Println("[CONFIG] MIDTRANS_SERVER_KEY is not set")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetEnvBool(key string, def bool) bool {
	v, exists := os.LookupEnv(key)
	if !exists {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
