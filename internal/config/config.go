// 包 config：集中读取进程配置；.env 文件仅作为环境变量的补充来源，已存在的环境变量优先
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config：服务全部可调参数
// 约束：字段默认值即生产默认；时长类字段使用 Go duration 语法（如 10m、5s）
type Config struct {
	Addr    string `env:"ADDR" envDefault:":8080"`
	APIBase string `env:"API_BASE" envDefault:"/api"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	AvailabilityTTL  time.Duration `env:"AVAILABILITY_TTL" envDefault:"10m"`
	ProbeConcurrency int           `env:"PROBE_CONCURRENCY" envDefault:"8"`

	ProbeKind      string        `env:"PROBE_KIND" envDefault:"data4library"`
	ProbeEndpoint  string        `env:"PROBE_ENDPOINT" envDefault:"http://data4library.kr/api"`
	ProbeAuthKey   string        `env:"PROBE_AUTH_KEY"`
	ProbeTimeout   time.Duration `env:"PROBE_TIMEOUT" envDefault:"5s"`
	ProbeRetryMax  int           `env:"PROBE_RETRY_MAX" envDefault:"1"`
	ProbeRateQPS   int           `env:"PROBE_RATE_QPS" envDefault:"20"`
	ProbeHeartbeat time.Duration `env:"PROBE_HEARTBEAT" envDefault:"30s"`

	BranchSource string `env:"BRANCH_SOURCE" envDefault:"file"`
	BranchFile   string `env:"BRANCH_FILE" envDefault:"data/branches.json"`

	Postgres Postgres
	Redis    Redis

	SessionIdleTTL   time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	RateLimitEnabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitQPS     int           `env:"RATE_LIMIT_QPS" envDefault:"200"`
}

type Postgres struct {
	Host         string `env:"PG_HOST" envDefault:"localhost"`
	Port         string `env:"PG_PORT" envDefault:"5432"`
	User         string `env:"PG_USER" envDefault:"postgres"`
	Password     string `env:"PG_PASSWORD"`
	DB           string `env:"PG_DB" envDefault:"bookmap"`
	SSLMode      string `env:"PG_SSLMODE" envDefault:"disable"`
	MaxOpenConns int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
}

// DSN：拼装 lib/pq 可识别的连接串
func (p Postgres) DSN() string {
	dsn := "postgres://" + p.User
	if p.Password != "" {
		dsn += ":" + p.Password
	}
	dsn += "@" + p.Host + ":" + p.Port + "/" + p.DB + "?sslmode=" + p.SSLMode
	return dsn
}

type Redis struct {
	Enable bool   `env:"REDIS_ENABLE" envDefault:"false"`
	Host   string `env:"REDIS_HOST" envDefault:"127.0.0.1"`
	Port   string `env:"REDIS_PORT" envDefault:"6379"`
	Pass   string `env:"REDIS_PASS"`
	DB     int    `env:"REDIS_DB" envDefault:"0"`
}

func (r Redis) Addr() string { return r.Host + ":" + r.Port }

// Load：加载 .env 与 data/env/.env 后解析环境变量
// 背景：文件缺失属于正常情况，静默忽略；解析失败返回带前缀的错误
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return Parse()
}

// Parse：仅从当前进程环境解析
func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.ProbeConcurrency < 0 {
		return Config{}, fmt.Errorf("parse env: PROBE_CONCURRENCY must be >= 0, got %d", c.ProbeConcurrency)
	}
	if c.AvailabilityTTL <= 0 {
		return Config{}, fmt.Errorf("parse env: AVAILABILITY_TTL must be positive, got %s", c.AvailabilityTTL)
	}
	return c, nil
}
