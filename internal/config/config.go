package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

type RabbitMQ struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

type HTTP struct {
	Port int
}

type Kitchen struct {
	// StrictReady restricts mark-ready to the claimant instead of any member
	// of the item's station.
	StrictReady bool
}

type Pricing struct {
	TaxRate float64
}

type Config struct {
	HTTP     HTTP
	Database Database
	RabbitMQ RabbitMQ
	Kitchen  Kitchen
	Pricing  Pricing
}

// Load reads the two-level YAML config format used across deployments.
// Sections: http, database, rabbitmq, kitchen, pricing.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{
		HTTP:     HTTP{Port: 3000},
		Database: Database{Port: 5432, SSLMode: "disable", MaxConns: 10},
		RabbitMQ: RabbitMQ{Port: 5672, VHost: "/"},
		Pricing:  Pricing{TaxRate: 0.05},
	}

	var section string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			section = strings.TrimSuffix(line, ":")
			continue
		}
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.Trim(strings.TrimSpace(kv[1]), `"'`)

		switch section {
		case "http":
			if key == "port" {
				cfg.HTTP.Port = atoi(val, cfg.HTTP.Port)
			}
		case "database":
			switch key {
			case "host":
				cfg.Database.Host = val
			case "port":
				cfg.Database.Port = atoi(val, 5432)
			case "user":
				cfg.Database.User = val
			case "password":
				cfg.Database.Password = val
			case "database":
				cfg.Database.Database = val
			case "sslmode":
				if val != "" {
					cfg.Database.SSLMode = val
				}
			case "max_conns":
				cfg.Database.MaxConns = atoi(val, 10)
			}
		case "rabbitmq":
			switch key {
			case "host":
				cfg.RabbitMQ.Host = val
			case "port":
				cfg.RabbitMQ.Port = atoi(val, 5672)
			case "user":
				cfg.RabbitMQ.User = val
			case "password":
				cfg.RabbitMQ.Password = val
			case "vhost":
				if val != "" {
					cfg.RabbitMQ.VHost = val
				}
			}
		case "kitchen":
			if key == "strict_ready" {
				cfg.Kitchen.StrictReady = val == "true"
			}
		case "pricing":
			if key == "tax_rate" {
				if r, err := strconv.ParseFloat(val, 64); err == nil {
					cfg.Pricing.TaxRate = r
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Database == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	if cfg.RabbitMQ.Host == "" || cfg.RabbitMQ.User == "" {
		return nil, fmt.Errorf("rabbitmq config incomplete")
	}
	return cfg, nil
}

// Environment wins over the file so containerized deployments can keep one
// config file per image.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("RABBITMQ_HOST"); v != "" {
		cfg.RabbitMQ.Host = v
	}
	if v := os.Getenv("RABBITMQ_PASSWORD"); v != "" {
		cfg.RabbitMQ.Password = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.HTTP.Port = atoi(v, cfg.HTTP.Port)
	}
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
