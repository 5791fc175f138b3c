package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/jimlawless/whereami"
)

type Config struct {
	Http    *HTTPConfig
	Encoder *EncoderCfg
	Store   *StoreCfg
	Search  *SearchCfg
	Fetcher *FetcherCfg
	Redis   *RedisCfg
	Kafka   *KafkaCfg
	Minio   *MinIOCfg
}

type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	StaticDir      string   // каталог с изображениями товаров, отдаётся под /static/
	AllowedOrigins []string // CORS
}

// EncoderCfg — подключение к inference-сервису (внешняя модель-энкодер).
type EncoderCfg struct {
	Addr          string
	MaxConcurrent int // лимит одновременных запросов на векторизацию
	Timeout       time.Duration
}

// StoreCfg — пути к артефактам офлайн-сборки индекса.
type StoreCfg struct {
	VectorsPath  string // бинарная таблица векторов
	ProductsPath string // отфильтрованный каталог, строки соответствуют таблице векторов
}

type SearchCfg struct {
	DefaultTopK int
	MaxTopK     int
}

// FetcherCfg — загрузка изображения по внешнему URL.
type FetcherCfg struct {
	Timeout    time.Duration
	MaxRetries int
	MaxBytes   int64
}

type RedisCfg struct {
	Enabled     bool
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	SearchTTL   time.Duration // TTL кэша ответов поиска
}

type KafkaCfg struct {
	Enabled           bool
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

type MinIOCfg struct {
	Enabled      bool
	Endpoint     string
	BucketName   string
	RootUser     string
	RootPassword string
	UseSSL       bool
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	http, err := loadHTTPConfig()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	encoder, err := loadEncoderCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	search, err := loadSearchCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	fetcher, err := loadFetcherCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Http:    http,
		Encoder: encoder,
		Store:   loadStoreCfg(),
		Search:  search,
		Fetcher: fetcher,
		Redis:   redis,
		Kafka:   kafka,
		Minio:   minio,
	}, nil
}

func loadHTTPConfig() (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 15 * time.Second
		defaultWriteTimeout = 30 * time.Second
		defaultIdleTimeout  = 60 * time.Second
		defaultStaticDir    = "static"
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		return nil, e.Wrap("HTTP_READ_TIMEOUT", err)
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		return nil, e.Wrap("HTTP_WRITE_TIMEOUT", err)
	}

	idleTimeout, err := parseDurationEnv("HTTP_IDLE_TIMEOUT", defaultIdleTimeout)
	if err != nil {
		return nil, e.Wrap("HTTP_IDLE_TIMEOUT", err)
	}

	origins := strings.Split(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"), ",")

	return &HTTPConfig{
		Port:           getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		StaticDir:      getEnvOrDefault("STATIC_DIR", defaultStaticDir),
		AllowedOrigins: origins,
	}, nil
}

func loadEncoderCfg() (*EncoderCfg, error) {
	const (
		defaultMaxConcurrent = 4
		defaultTimeout       = 30 * time.Second
	)

	addr := os.Getenv("ENCODER_ADDR")
	if addr == "" {
		return nil, fmt.Errorf("ENCODER_ADDR environment variable is required")
	}

	maxConcurrent, err := parseIntEnv("ENCODER_MAX_CONCURRENT", defaultMaxConcurrent)
	if err != nil {
		return nil, e.Wrap("ENCODER_MAX_CONCURRENT", err)
	}

	timeout, err := parseDurationEnv("ENCODER_TIMEOUT", defaultTimeout)
	if err != nil {
		return nil, e.Wrap("ENCODER_TIMEOUT", err)
	}

	return &EncoderCfg{
		Addr:          addr,
		MaxConcurrent: maxConcurrent,
		Timeout:       timeout,
	}, nil
}

func loadStoreCfg() *StoreCfg {
	const (
		defaultVectorsPath  = "data/embeddings.vec"
		defaultProductsPath = "data/valid_products.csv"
	)

	return &StoreCfg{
		VectorsPath:  getEnvOrDefault("STORE_VECTORS_PATH", defaultVectorsPath),
		ProductsPath: getEnvOrDefault("STORE_PRODUCTS_PATH", defaultProductsPath),
	}
}

func loadSearchCfg() (*SearchCfg, error) {
	const (
		defaultTopK = 11
		maxTopK     = 100
	)

	topK, err := parseIntEnv("SEARCH_DEFAULT_TOP_K", defaultTopK)
	if err != nil {
		return nil, e.Wrap("SEARCH_DEFAULT_TOP_K", err)
	}

	limit, err := parseIntEnv("SEARCH_MAX_TOP_K", maxTopK)
	if err != nil {
		return nil, e.Wrap("SEARCH_MAX_TOP_K", err)
	}

	return &SearchCfg{
		DefaultTopK: topK,
		MaxTopK:     limit,
	}, nil
}

func loadFetcherCfg() (*FetcherCfg, error) {
	const (
		defaultTimeout    = 10 * time.Second
		defaultMaxRetries = 3
		defaultMaxBytes   = 15 << 20
	)

	timeout, err := parseDurationEnv("FETCH_TIMEOUT", defaultTimeout)
	if err != nil {
		return nil, e.Wrap("FETCH_TIMEOUT", err)
	}

	maxRetries, err := parseIntEnv("FETCH_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return nil, e.Wrap("FETCH_MAX_RETRIES", err)
	}

	maxBytes, err := parseIntEnv("FETCH_MAX_BYTES", defaultMaxBytes)
	if err != nil {
		return nil, e.Wrap("FETCH_MAX_BYTES", err)
	}

	return &FetcherCfg{
		Timeout:    timeout,
		MaxRetries: maxRetries,
		MaxBytes:   int64(maxBytes),
	}, nil
}

func loadRedisCfg() (*RedisCfg, error) {
	const (
		defaultMaxRetries  = 3
		defaultDialTimeout = 5 * time.Second
		defaultTimeout     = 3 * time.Second
		defaultSearchTTL   = 10 * time.Minute
	)

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		// Кэш ответов опционален: без адреса поиск работает напрямую
		return &RedisCfg{Enabled: false}, nil
	}

	db, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, e.Wrap("REDIS_DB", err)
	}

	maxRetries, err := parseIntEnv("REDIS_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return nil, e.Wrap("REDIS_MAX_RETRIES", err)
	}

	dialTimeout, err := parseDurationEnv("REDIS_DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		return nil, e.Wrap("REDIS_DIAL_TIMEOUT", err)
	}

	timeout, err := parseDurationEnv("REDIS_TIMEOUT", defaultTimeout)
	if err != nil {
		return nil, e.Wrap("REDIS_TIMEOUT", err)
	}

	searchTTL, err := parseDurationEnv("REDIS_SEARCH_TTL", defaultSearchTTL)
	if err != nil {
		return nil, e.Wrap("REDIS_SEARCH_TTL", err)
	}

	return &RedisCfg{
		Enabled:     true,
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		User:        os.Getenv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		SearchTTL:   searchTTL,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		// Аналитика запросов опциональна
		return &KafkaCfg{Enabled: false}, nil
	}
	brokers := strings.Split(brokerStr, ",")

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC environment variable is required")
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("KAFKA_REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("KAFKA_REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Enabled:           true,
		Brokers:           brokers,
		Topic:             topic,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const defaultUseSSL = false

	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		// Аудит изображений-запросов опционален
		return &MinIOCfg{Enabled: false}, nil
	}

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		Enabled:      true,
		Endpoint:     endpoint,
		BucketName:   getEnv("MINIO_BUCKET_NAME"),
		RootUser:     getEnv("MINIO_ROOT_USER"),
		RootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		UseSSL:       useSSL,
	}, nil
}

func getEnv(key string) string {
	return os.Getenv(key)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}
