package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const (
	StorageMemory   = "memory"
	StorageDynamoDB = "dynamodb"
	StoragePostgres = "postgres"

	QueueMemory = "memory"
	QueueSQS    = "sqs"
	QueueRedis  = "redis"

	EvidenceLocal = "local"
	EvidenceS3    = "s3"
)

type Config struct {
	Env              string
	ServiceName      string
	HTTPPort         int
	LogLevel         string
	ConfigPath       string
	StorageProvider  string
	QueueProvider    string
	EvidenceProvider string

	DatabaseURL      string
	DBMaxConns       int
	DBMinConns       int
	DBConnMaxIdleSec int
	DBConnMaxLifeSec int

	AWSRegion          string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	IncidentTableName  string
	EvidenceBucket     string
	IncidentQueueURL   string

	EvidenceUploadExpiryMin int
	EvidenceUploadExpiry    time.Duration

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisQueueKey      string
	RedisVisibilitySec int

	WorkerBatchSize  int
	WorkerPollSec    int
	WorkerBackoffSec int

	OtelEnabled     bool
	OtelEndpoint    string
	OtelInsecure    bool
	OtelSampleRatio float64
}

func Load(serviceNameDefault string, httpPortDefault int) (Config, []Problem) {
	envRaw := strings.TrimSpace(os.Getenv("ENV"))
	cfg := Config{
		Env:                     envRaw,
		ServiceName:             serviceNameDefault,
		HTTPPort:                httpPortDefault,
		LogLevel:                "info",
		ConfigPath:              strings.TrimSpace(os.Getenv("CONFIG_PATH")),
		StorageProvider:         StorageMemory,
		QueueProvider:           QueueMemory,
		EvidenceProvider:        EvidenceLocal,
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              10,
		DBMinConns:              1,
		DBConnMaxIdleSec:        300,
		DBConnMaxLifeSec:        1800,
		AWSRegion:               "us-east-1",
		AWSEndpoint:             strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL")),
		AWSAccessKeyID:          strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID")),
		AWSSecretAccessKey:      strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY")),
		IncidentTableName:       strings.TrimSpace(os.Getenv("INCIDENT_TABLE_NAME")),
		EvidenceBucket:          strings.TrimSpace(os.Getenv("EVIDENCE_BUCKET")),
		IncidentQueueURL:        strings.TrimSpace(os.Getenv("INCIDENT_QUEUE_URL")),
		EvidenceUploadExpiryMin: 15,
		RedisAddr:               "",
		RedisPassword:           "",
		RedisDB:                 0,
		RedisQueueKey:           "incident-queue",
		RedisVisibilitySec:      30,
		WorkerBatchSize:         10,
		WorkerPollSec:           1,
		WorkerBackoffSec:        5,
		OtelEnabled:             false,
		OtelEndpoint:            "",
		OtelInsecure:            true,
		OtelSampleRatio:         1.0,
	}

	problems := make([]Problem, 0, 4)
	envProvided := envRaw != ""

	if repoRoot, ok := findRepoRoot(); ok && cfg.Env != "" && cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(repoRoot, "configs", cfg.Env+".json")
	}

	if fileData, fileProblems, ok := loadConfigFile(cfg.ConfigPath, strings.TrimSpace(os.Getenv("CONFIG_PATH")) != ""); ok {
		problems = append(problems, fileProblems...)
		if fileEnv, ok := readStringKey(fileData, "ENV"); ok && strings.TrimSpace(fileEnv) != "" {
			envProvided = true
		}
		applyConfigMap(&cfg, fileData, &problems)
	} else {
		problems = append(problems, fileProblems...)
	}

	applyEnv(&cfg, &problems)

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if !envProvided {
		problems = append(problems, Problem{Field: "ENV", Message: "ENV is required"})
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		problems = append(problems, Problem{Field: "HTTP_PORT", Message: "HTTP_PORT must be 1-65535"})
		cfg.HTTPPort = httpPortDefault
	}

	switch strings.ToLower(strings.TrimSpace(cfg.StorageProvider)) {
	case StorageMemory, StorageDynamoDB, StoragePostgres:
		cfg.StorageProvider = strings.ToLower(strings.TrimSpace(cfg.StorageProvider))
	default:
		problems = append(problems, Problem{Field: "STORAGE_PROVIDER", Message: "STORAGE_PROVIDER must be memory, dynamodb, or postgres"})
		cfg.StorageProvider = StorageMemory
	}
	switch strings.ToLower(strings.TrimSpace(cfg.QueueProvider)) {
	case QueueMemory, QueueSQS, QueueRedis:
		cfg.QueueProvider = strings.ToLower(strings.TrimSpace(cfg.QueueProvider))
	default:
		problems = append(problems, Problem{Field: "QUEUE_PROVIDER", Message: "QUEUE_PROVIDER must be memory, sqs, or redis"})
		cfg.QueueProvider = QueueMemory
	}
	switch strings.ToLower(strings.TrimSpace(cfg.EvidenceProvider)) {
	case EvidenceLocal, EvidenceS3:
		cfg.EvidenceProvider = strings.ToLower(strings.TrimSpace(cfg.EvidenceProvider))
	default:
		problems = append(problems, Problem{Field: "EVIDENCE_PROVIDER", Message: "EVIDENCE_PROVIDER must be local or s3"})
		cfg.EvidenceProvider = EvidenceLocal
	}

	if cfg.StorageProvider == StoragePostgres && cfg.DatabaseURL == "" {
		problems = append(problems, Problem{Field: "DATABASE_URL", Message: "DATABASE_URL is required when STORAGE_PROVIDER=postgres"})
	}
	if cfg.StorageProvider == StorageDynamoDB && cfg.IncidentTableName == "" {
		problems = append(problems, Problem{Field: "INCIDENT_TABLE_NAME", Message: "INCIDENT_TABLE_NAME is required when STORAGE_PROVIDER=dynamodb"})
	}
	if cfg.QueueProvider == QueueSQS && cfg.IncidentQueueURL == "" {
		problems = append(problems, Problem{Field: "INCIDENT_QUEUE_URL", Message: "INCIDENT_QUEUE_URL is required when QUEUE_PROVIDER=sqs"})
	}
	if cfg.QueueProvider == QueueRedis && cfg.RedisAddr == "" {
		problems = append(problems, Problem{Field: "REDIS_ADDR", Message: "REDIS_ADDR is required when QUEUE_PROVIDER=redis"})
	}
	if cfg.EvidenceProvider == EvidenceS3 && cfg.EvidenceBucket == "" {
		problems = append(problems, Problem{Field: "EVIDENCE_BUCKET", Message: "EVIDENCE_BUCKET is required when EVIDENCE_PROVIDER=s3"})
	}

	if cfg.DBMaxConns <= 0 {
		problems = append(problems, Problem{Field: "DB_MAX_CONNS", Message: "DB_MAX_CONNS must be > 0"})
		cfg.DBMaxConns = 10
	}
	if cfg.DBMinConns < 0 {
		problems = append(problems, Problem{Field: "DB_MIN_CONNS", Message: "DB_MIN_CONNS must be >= 0"})
		cfg.DBMinConns = 1
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		problems = append(problems, Problem{Field: "DB_MIN_CONNS", Message: "DB_MIN_CONNS must be <= DB_MAX_CONNS"})
		cfg.DBMinConns = cfg.DBMaxConns
	}
	if cfg.DBConnMaxIdleSec <= 0 {
		problems = append(problems, Problem{Field: "DB_CONN_MAX_IDLE_SECONDS", Message: "DB_CONN_MAX_IDLE_SECONDS must be > 0"})
		cfg.DBConnMaxIdleSec = 300
	}
	if cfg.DBConnMaxLifeSec <= 0 {
		problems = append(problems, Problem{Field: "DB_CONN_MAX_LIFETIME_SECONDS", Message: "DB_CONN_MAX_LIFETIME_SECONDS must be > 0"})
		cfg.DBConnMaxLifeSec = 1800
	}
	if cfg.EvidenceUploadExpiryMin <= 0 {
		problems = append(problems, Problem{Field: "EVIDENCE_UPLOAD_EXPIRY_MINUTES", Message: "EVIDENCE_UPLOAD_EXPIRY_MINUTES must be > 0"})
		cfg.EvidenceUploadExpiryMin = 15
	}
	cfg.EvidenceUploadExpiry = time.Duration(cfg.EvidenceUploadExpiryMin) * time.Minute
	if cfg.RedisDB < 0 {
		problems = append(problems, Problem{Field: "REDIS_DB", Message: "REDIS_DB must be >= 0"})
		cfg.RedisDB = 0
	}
	if strings.TrimSpace(cfg.RedisQueueKey) == "" {
		problems = append(problems, Problem{Field: "REDIS_QUEUE_KEY", Message: "REDIS_QUEUE_KEY must not be blank"})
		cfg.RedisQueueKey = "incident-queue"
	}
	if cfg.RedisVisibilitySec <= 0 {
		problems = append(problems, Problem{Field: "REDIS_VISIBILITY_SECONDS", Message: "REDIS_VISIBILITY_SECONDS must be > 0"})
		cfg.RedisVisibilitySec = 30
	}
	if cfg.WorkerBatchSize <= 0 {
		problems = append(problems, Problem{Field: "WORKER_BATCH_SIZE", Message: "WORKER_BATCH_SIZE must be > 0"})
		cfg.WorkerBatchSize = 10
	}
	if cfg.WorkerPollSec <= 0 {
		problems = append(problems, Problem{Field: "WORKER_POLL_SECONDS", Message: "WORKER_POLL_SECONDS must be > 0"})
		cfg.WorkerPollSec = 1
	}
	if cfg.WorkerBackoffSec <= 0 {
		problems = append(problems, Problem{Field: "WORKER_BACKOFF_SECONDS", Message: "WORKER_BACKOFF_SECONDS must be > 0"})
		cfg.WorkerBackoffSec = 5
	}
	if cfg.OtelSampleRatio < 0 || cfg.OtelSampleRatio > 1 {
		problems = append(problems, Problem{Field: "OTEL_SAMPLE_RATIO", Message: "OTEL_SAMPLE_RATIO must be 0-1"})
		cfg.OtelSampleRatio = 1.0
	}

	return cfg, problems
}

func findRepoRoot() (string, bool) {
	start, err := os.Getwd()
	if err != nil {
		return "", false
	}
	dir := start
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(dir, "configs")
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func loadConfigFile(path string, explicit bool) (map[string]any, []Problem, bool) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, false
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if explicit && !errors.Is(err, os.ErrNotExist) {
			return nil, []Problem{{Field: "CONFIG_PATH", Message: fmt.Sprintf("failed to read config file: %v", err)}}, false
		}
		if explicit && errors.Is(err, os.ErrNotExist) {
			return nil, []Problem{{Field: "CONFIG_PATH", Message: "config file not found"}}, false
		}
		return nil, nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, []Problem{{Field: "CONFIG_PATH", Message: fmt.Sprintf("invalid json: %v", err)}}, false
	}
	return raw, nil, true
}

func applyEnv(cfg *Config, problems *[]Problem) {
	if v := strings.TrimSpace(os.Getenv("SERVICE_NAME")); v != "" {
		cfg.ServiceName = v
	}

	portRaw := strings.TrimSpace(os.Getenv("HTTP_PORT"))
	if portRaw == "" {
		portRaw = strings.TrimSpace(os.Getenv("PORT"))
	}
	if portRaw != "" {
		if p, err := strconv.Atoi(portRaw); err != nil || p <= 0 || p > 65535 {
			*problems = append(*problems, Problem{Field: "HTTP_PORT", Message: "HTTP_PORT must be 1-65535"})
		} else {
			cfg.HTTPPort = p
		}
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("STORAGE_PROVIDER")); v != "" {
		cfg.StorageProvider = v
	}
	if v := strings.TrimSpace(os.Getenv("QUEUE_PROVIDER")); v != "" {
		cfg.QueueProvider = v
	}
	if v := strings.TrimSpace(os.Getenv("EVIDENCE_PROVIDER")); v != "" {
		cfg.EvidenceProvider = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_MAX_CONNS")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "DB_MAX_CONNS", Message: "DB_MAX_CONNS must be an integer"})
		} else {
			cfg.DBMaxConns = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DB_MIN_CONNS")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "DB_MIN_CONNS", Message: "DB_MIN_CONNS must be an integer"})
		} else {
			cfg.DBMinConns = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DB_CONN_MAX_IDLE_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "DB_CONN_MAX_IDLE_SECONDS", Message: "DB_CONN_MAX_IDLE_SECONDS must be an integer"})
		} else {
			cfg.DBConnMaxIdleSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "DB_CONN_MAX_LIFETIME_SECONDS", Message: "DB_CONN_MAX_LIFETIME_SECONDS must be an integer"})
		} else {
			cfg.DBConnMaxLifeSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AWS_REGION")); v != "" {
		cfg.AWSRegion = v
	}
	if v := strings.TrimSpace(os.Getenv("EVIDENCE_UPLOAD_EXPIRY_MINUTES")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "EVIDENCE_UPLOAD_EXPIRY_MINUTES", Message: "EVIDENCE_UPLOAD_EXPIRY_MINUTES must be an integer"})
		} else {
			cfg.EvidenceUploadExpiryMin = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_PASSWORD")); v != "" {
		cfg.RedisPassword = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "REDIS_DB", Message: "REDIS_DB must be an integer"})
		} else {
			cfg.RedisDB = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_QUEUE_KEY")); v != "" {
		cfg.RedisQueueKey = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_VISIBILITY_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "REDIS_VISIBILITY_SECONDS", Message: "REDIS_VISIBILITY_SECONDS must be an integer"})
		} else {
			cfg.RedisVisibilitySec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WORKER_BATCH_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "WORKER_BATCH_SIZE", Message: "WORKER_BATCH_SIZE must be an integer"})
		} else {
			cfg.WorkerBatchSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WORKER_POLL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "WORKER_POLL_SECONDS", Message: "WORKER_POLL_SECONDS must be an integer"})
		} else {
			cfg.WorkerPollSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WORKER_BACKOFF_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			*problems = append(*problems, Problem{Field: "WORKER_BACKOFF_SECONDS", Message: "WORKER_BACKOFF_SECONDS must be an integer"})
		} else {
			cfg.WorkerBackoffSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); v != "" {
		if b, ok := asBool(v); ok {
			cfg.OtelEnabled = b
		} else {
			*problems = append(*problems, Problem{Field: "OTEL_ENABLED", Message: "OTEL_ENABLED must be a boolean"})
		}
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		cfg.OtelEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); v != "" {
		if b, ok := asBool(v); ok {
			cfg.OtelInsecure = b
		} else {
			*problems = append(*problems, Problem{Field: "OTEL_EXPORTER_OTLP_INSECURE", Message: "OTEL_EXPORTER_OTLP_INSECURE must be a boolean"})
		}
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_SAMPLE_RATIO")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err != nil {
			*problems = append(*problems, Problem{Field: "OTEL_SAMPLE_RATIO", Message: "OTEL_SAMPLE_RATIO must be a number"})
		} else {
			cfg.OtelSampleRatio = f
		}
	}
}

func applyConfigMap(cfg *Config, raw map[string]any, problems *[]Problem) {
	for key, value := range raw {
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "ENV":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.Env = strings.TrimSpace(s)
			}
		case "SERVICE_NAME":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.ServiceName = strings.TrimSpace(s)
			}
		case "HTTP_PORT", "PORT":
			if n, ok := asInt(value); ok {
				cfg.HTTPPort = n
			} else {
				*problems = append(*problems, Problem{Field: "HTTP_PORT", Message: "HTTP_PORT must be an integer"})
			}
		case "LOG_LEVEL":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.LogLevel = strings.TrimSpace(s)
			}
		case "STORAGE_PROVIDER":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.StorageProvider = strings.TrimSpace(s)
			}
		case "QUEUE_PROVIDER":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.QueueProvider = strings.TrimSpace(s)
			}
		case "EVIDENCE_PROVIDER":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.EvidenceProvider = strings.TrimSpace(s)
			}
		case "DATABASE_URL":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.DatabaseURL = strings.TrimSpace(s)
			}
		case "DB_MAX_CONNS":
			if n, ok := asInt(value); ok {
				cfg.DBMaxConns = n
			} else {
				*problems = append(*problems, Problem{Field: "DB_MAX_CONNS", Message: "DB_MAX_CONNS must be an integer"})
			}
		case "DB_MIN_CONNS":
			if n, ok := asInt(value); ok {
				cfg.DBMinConns = n
			} else {
				*problems = append(*problems, Problem{Field: "DB_MIN_CONNS", Message: "DB_MIN_CONNS must be an integer"})
			}
		case "AWS_REGION":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.AWSRegion = strings.TrimSpace(s)
			}
		case "AWS_ENDPOINT_URL":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.AWSEndpoint = strings.TrimSpace(s)
			}
		case "INCIDENT_TABLE_NAME":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.IncidentTableName = strings.TrimSpace(s)
			}
		case "EVIDENCE_BUCKET":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.EvidenceBucket = strings.TrimSpace(s)
			}
		case "INCIDENT_QUEUE_URL":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.IncidentQueueURL = strings.TrimSpace(s)
			}
		case "EVIDENCE_UPLOAD_EXPIRY_MINUTES":
			if n, ok := asInt(value); ok {
				cfg.EvidenceUploadExpiryMin = n
			} else {
				*problems = append(*problems, Problem{Field: "EVIDENCE_UPLOAD_EXPIRY_MINUTES", Message: "EVIDENCE_UPLOAD_EXPIRY_MINUTES must be an integer"})
			}
		case "REDIS_ADDR":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.RedisAddr = strings.TrimSpace(s)
			}
		case "REDIS_PASSWORD":
			if s, ok := value.(string); ok {
				cfg.RedisPassword = s
			}
		case "REDIS_DB":
			if n, ok := asInt(value); ok {
				cfg.RedisDB = n
			} else {
				*problems = append(*problems, Problem{Field: "REDIS_DB", Message: "REDIS_DB must be an integer"})
			}
		case "REDIS_QUEUE_KEY":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.RedisQueueKey = strings.TrimSpace(s)
			}
		case "REDIS_VISIBILITY_SECONDS":
			if n, ok := asInt(value); ok {
				cfg.RedisVisibilitySec = n
			} else {
				*problems = append(*problems, Problem{Field: "REDIS_VISIBILITY_SECONDS", Message: "REDIS_VISIBILITY_SECONDS must be an integer"})
			}
		case "WORKER_BATCH_SIZE":
			if n, ok := asInt(value); ok {
				cfg.WorkerBatchSize = n
			} else {
				*problems = append(*problems, Problem{Field: "WORKER_BATCH_SIZE", Message: "WORKER_BATCH_SIZE must be an integer"})
			}
		case "WORKER_POLL_SECONDS":
			if n, ok := asInt(value); ok {
				cfg.WorkerPollSec = n
			} else {
				*problems = append(*problems, Problem{Field: "WORKER_POLL_SECONDS", Message: "WORKER_POLL_SECONDS must be an integer"})
			}
		case "WORKER_BACKOFF_SECONDS":
			if n, ok := asInt(value); ok {
				cfg.WorkerBackoffSec = n
			} else {
				*problems = append(*problems, Problem{Field: "WORKER_BACKOFF_SECONDS", Message: "WORKER_BACKOFF_SECONDS must be an integer"})
			}
		case "OTEL_ENABLED":
			if s, ok := value.(string); ok {
				if b, okb := asBool(s); okb {
					cfg.OtelEnabled = b
				} else {
					*problems = append(*problems, Problem{Field: "OTEL_ENABLED", Message: "OTEL_ENABLED must be a boolean"})
				}
			} else if b, ok := value.(bool); ok {
				cfg.OtelEnabled = b
			}
		case "OTEL_EXPORTER_OTLP_ENDPOINT":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				cfg.OtelEndpoint = strings.TrimSpace(s)
			}
		case "OTEL_SAMPLE_RATIO":
			if f, ok := asFloat(value); ok {
				cfg.OtelSampleRatio = f
			} else {
				*problems = append(*problems, Problem{Field: "OTEL_SAMPLE_RATIO", Message: "OTEL_SAMPLE_RATIO must be a number"})
			}
		}
	}
}

func readStringKey(raw map[string]any, key string) (string, bool) {
	for k, v := range raw {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			s, ok := v.(string)
			return s, ok
		}
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}

func asBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	default:
		return false, false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
