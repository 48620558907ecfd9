package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// 默认配置
const (
	DefaultPort              = 5001
	DefaultDBDriver          = "mysql"
	DefaultDBHost            = "storage_db"
	DefaultDBPort            = 3306
	DefaultDBName            = "logo_storage"
	DefaultDBUser            = "user"
	DefaultDBPassword        = "password"
	DefaultDBMaxOpenConns    = 32
	DefaultDBMaxIdleConns    = 16
	DefaultDBReadyTimeout    = 2 * time.Minute
	DefaultSessionTTL        = 24 * time.Hour
	DefaultModelBackend      = "diffusion"
	DefaultModelServiceHost  = "ml_model"
	DefaultModelServicePort  = 7860
	DefaultModelTimeout      = 5 * time.Minute
	DefaultArkModel          = "doubao-seedream-4-0-250828"
	DefaultImagenModel       = "imagen-4.0-generate-001"
	DefaultInferenceSteps    = 25
	DefaultModelSeed         = 13
	DefaultStrengthLow       = 0.7
	DefaultStrengthHigh      = 0.9
	DefaultGuidanceScaleLow  = 10
	DefaultGuidanceScaleHigh = 15
	DefaultImageDir          = "./data/images"
	DefaultQueueDepth        = 16
	DefaultQueueWorkers      = 1
	DefaultQueueBackpressure = "reject"
	DefaultMaxDimensionSum   = 3500
	DefaultLogLevel          = "info"
	DefaultGinMode           = "release"
)

// Config 进程级静态配置，不随请求变化
type Config struct {
	Port     int
	LogLevel string
	GinMode  string

	DB      DBConfig
	Redis   RedisConfig
	AMQP    AMQPConfig
	Model   ModelConfig
	Queue   QueueConfig
	Session SessionConfig

	ImageDir        string
	GenerateRPS     float64
	MaxDimensionSum int
}

type DBConfig struct {
	Driver       string // mysql | sqlite
	Host         string
	Port         int
	Name         string
	User         string
	Password     string
	DSN          string // 设置后覆盖上面的连接参数
	MaxOpenConns int
	MaxIdleConns int
	ReadyTimeout time.Duration
}

type RedisConfig struct {
	Addr     string // 为空时使用进程内会话缓存
	Password string
	DB       int
}

type AMQPConfig struct {
	DSN      string // 为空时不发布生成事件
	Exchange string // fanout 交换机
}

type ModelConfig struct {
	Backend     string // diffusion | ark | imagen
	Host        string
	Port        int
	Timeout     time.Duration
	ArkAPIKey   string
	ArkModel    string
	GeminiKey   string
	ImagenModel string

	Steps        int
	Seed         int64
	StrengthLow  float64
	StrengthHigh float64
	GuidanceLow  int
	GuidanceHigh int
}

type QueueConfig struct {
	Depth        int
	Workers      int
	Backpressure string // reject | wait
}

type SessionConfig struct {
	TTL time.Duration
}

// Conf 全局配置，Load 之后可用
var Conf = Default()

// Default 返回全部默认值
func Default() *Config {
	return &Config{
		Port:     DefaultPort,
		LogLevel: DefaultLogLevel,
		GinMode:  DefaultGinMode,
		DB: DBConfig{
			Driver:       DefaultDBDriver,
			Host:         DefaultDBHost,
			Port:         DefaultDBPort,
			Name:         DefaultDBName,
			User:         DefaultDBUser,
			Password:     DefaultDBPassword,
			MaxOpenConns: DefaultDBMaxOpenConns,
			MaxIdleConns: DefaultDBMaxIdleConns,
			ReadyTimeout: DefaultDBReadyTimeout,
		},
		AMQP: AMQPConfig{Exchange: "generation_events"},
		Model: ModelConfig{
			Backend:      DefaultModelBackend,
			Host:         DefaultModelServiceHost,
			Port:         DefaultModelServicePort,
			Timeout:      DefaultModelTimeout,
			ArkModel:     DefaultArkModel,
			ImagenModel:  DefaultImagenModel,
			Steps:        DefaultInferenceSteps,
			Seed:         DefaultModelSeed,
			StrengthLow:  DefaultStrengthLow,
			StrengthHigh: DefaultStrengthHigh,
			GuidanceLow:  DefaultGuidanceScaleLow,
			GuidanceHigh: DefaultGuidanceScaleHigh,
		},
		Queue: QueueConfig{
			Depth:        DefaultQueueDepth,
			Workers:      DefaultQueueWorkers,
			Backpressure: DefaultQueueBackpressure,
		},
		Session:         SessionConfig{TTL: DefaultSessionTTL},
		ImageDir:        DefaultImageDir,
		MaxDimensionSum: DefaultMaxDimensionSum,
	}
}

// Load 读取 .env（可选）与环境变量，覆盖默认值
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	} else {
		// 默认 .env 不存在时忽略
		_ = godotenv.Load()
	}

	cfg := Default()
	l := &loader{}

	cfg.Port = l.int("PORT", cfg.Port)
	cfg.LogLevel = l.str("LOG_LEVEL", cfg.LogLevel)
	cfg.GinMode = l.str("GIN_MODE", cfg.GinMode)

	cfg.DB.Driver = strings.ToLower(l.str("DB_DRIVER", cfg.DB.Driver))
	cfg.DB.Host = l.str("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = l.int("DB_PORT", cfg.DB.Port)
	cfg.DB.Name = l.str("DB_NAME", cfg.DB.Name)
	cfg.DB.User = l.str("DB_USER", cfg.DB.User)
	cfg.DB.Password = l.str("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.DSN = l.str("DB_DSN", cfg.DB.DSN)
	cfg.DB.MaxOpenConns = l.int("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.MaxIdleConns = l.int("DB_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns)
	cfg.DB.ReadyTimeout = l.duration("DB_READY_TIMEOUT", cfg.DB.ReadyTimeout)

	cfg.Redis.Addr = l.str("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = l.str("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = l.int("REDIS_DB", cfg.Redis.DB)
	cfg.Session.TTL = l.duration("SESSION_TTL", cfg.Session.TTL)

	cfg.AMQP.DSN = l.str("AMQP_DSN", cfg.AMQP.DSN)
	cfg.AMQP.Exchange = l.str("AMQP_EXCHANGE", cfg.AMQP.Exchange)

	cfg.Model.Backend = strings.ToLower(l.str("MODEL_BACKEND", cfg.Model.Backend))
	cfg.Model.Host = l.str("MODEL_SERVICE_HOST", cfg.Model.Host)
	cfg.Model.Port = l.int("MODEL_SERVICE_PORT", cfg.Model.Port)
	cfg.Model.Timeout = l.duration("MODEL_TIMEOUT", cfg.Model.Timeout)
	cfg.Model.ArkAPIKey = l.str("ARK_API_KEY", cfg.Model.ArkAPIKey)
	cfg.Model.ArkModel = l.str("ARK_MODEL", cfg.Model.ArkModel)
	cfg.Model.GeminiKey = l.str("GEMINI_API_KEY", cfg.Model.GeminiKey)
	cfg.Model.ImagenModel = l.str("IMAGEN_MODEL", cfg.Model.ImagenModel)
	cfg.Model.Steps = l.int("NUM_INFERENCE_STEPS", cfg.Model.Steps)
	cfg.Model.Seed = int64(l.int("MODEL_SEED", int(cfg.Model.Seed)))
	cfg.Model.StrengthLow = l.float("STRENGTH_LOW", cfg.Model.StrengthLow)
	cfg.Model.StrengthHigh = l.float("STRENGTH_HIGH", cfg.Model.StrengthHigh)
	cfg.Model.GuidanceLow = l.int("GUIDANCE_SCALE_LOW", cfg.Model.GuidanceLow)
	cfg.Model.GuidanceHigh = l.int("GUIDANCE_SCALE_HIGH", cfg.Model.GuidanceHigh)

	cfg.Queue.Depth = l.int("QUEUE_DEPTH", cfg.Queue.Depth)
	cfg.Queue.Workers = l.int("QUEUE_WORKERS", cfg.Queue.Workers)
	cfg.Queue.Backpressure = strings.ToLower(l.str("QUEUE_BACKPRESSURE", cfg.Queue.Backpressure))

	cfg.ImageDir = l.str("IMAGE_DIR", cfg.ImageDir)
	cfg.GenerateRPS = l.float("GENERATE_RPS", cfg.GenerateRPS)
	cfg.MaxDimensionSum = l.int("MAX_DIMENSION_SUM", cfg.MaxDimensionSum)

	if l.err != nil {
		return nil, l.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	Conf = cfg
	return cfg, nil
}

// Validate 检查配置之间的约束
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Model.Backend {
	case "diffusion", "ark", "imagen":
	default:
		return fmt.Errorf("unsupported MODEL_BACKEND %q", c.Model.Backend)
	}
	switch c.Queue.Backpressure {
	case "reject", "wait":
	default:
		return fmt.Errorf("unsupported QUEUE_BACKPRESSURE %q", c.Queue.Backpressure)
	}
	if c.Model.StrengthLow > c.Model.StrengthHigh {
		return fmt.Errorf("STRENGTH_LOW %.2f greater than STRENGTH_HIGH %.2f", c.Model.StrengthLow, c.Model.StrengthHigh)
	}
	if c.Model.GuidanceLow >= c.Model.GuidanceHigh {
		return fmt.Errorf("GUIDANCE_SCALE_LOW %d must be less than GUIDANCE_SCALE_HIGH %d", c.Model.GuidanceLow, c.Model.GuidanceHigh)
	}
	if c.Model.Steps <= 0 {
		return fmt.Errorf("NUM_INFERENCE_STEPS must be positive")
	}
	if c.Queue.Depth < 0 || c.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue settings depth=%d workers=%d", c.Queue.Depth, c.Queue.Workers)
	}
	return nil
}

// MySQLDSN "user:password@tcp(host:port)/dbname"
// DB_DSN 会被强制打开 parseTime，created_at 才能扫描为 time.Time
func (d DBConfig) MySQLDSN() string {
	if d.DSN != "" {
		mc, err := mysql.ParseDSN(d.DSN)
		if err != nil {
			// 交给 Open 报错
			return d.DSN
		}
		mc.ParseTime = true
		return mc.FormatDSN()
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local", d.User, d.Password, d.Host, d.Port, d.Name)
}

// ModelServiceURL 扩散模型服务地址
func (m ModelConfig) ModelServiceURL() string {
	return fmt.Sprintf("http://%s:%d", m.Host, m.Port)
}

// loader 记录第一个解析错误，避免每个字段都判断一次
type loader struct {
	err error
}

func (l *loader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (l *loader) int(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, v, err)
		return def
	}
	return n
}

func (l *loader) float(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.fail(key, v, err)
		return def
	}
	return f
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, v, err)
		return def
	}
	return d
}

func (l *loader) fail(key, value string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}
