package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for the catalog scraper.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Engine  EngineConfig  `mapstructure:"engine"  yaml:"engine"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Limits  LimitsConfig  `mapstructure:"limits"  yaml:"limits"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
}

// SiteConfig describes the catalog site being scraped.
type SiteConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// PlaceholderImage is a printf template receiving the escaped product name.
	PlaceholderImage string               `mapstructure:"placeholder_image" yaml:"placeholder_image"`
	Categories       []CategoryDescriptor `mapstructure:"categories"        yaml:"categories"`
}

// CategoryDescriptor is a statically known catalog category.
type CategoryDescriptor struct {
	ID          string `mapstructure:"id"          yaml:"id"`
	Name        string `mapstructure:"name"        yaml:"name"`
	Path        string `mapstructure:"path"        yaml:"path"`
	Description string `mapstructure:"description" yaml:"description"`
}

// EngineConfig controls run orchestration.
type EngineConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	MaxRetries      int           `mapstructure:"max_retries"      yaml:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"      yaml:"retry_delay"`
	FetchDetails    bool          `mapstructure:"fetch_details"    yaml:"fetch_details"`
	LinkFallback    bool          `mapstructure:"link_fallback"    yaml:"link_fallback"`
	IDStyle         string        `mapstructure:"id_style"         yaml:"id_style"` // sequence, named
	UserAgents      []string      `mapstructure:"user_agents"      yaml:"user_agents"`
}

// FetcherConfig controls the request fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	AcceptLanguage  string        `mapstructure:"accept_language"   yaml:"accept_language"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// BrowserConfig controls the headless browser fetcher.
type BrowserConfig struct {
	Headless     bool          `mapstructure:"headless"      yaml:"headless"`
	Stealth      bool          `mapstructure:"stealth"       yaml:"stealth"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"  yaml:"settle_delay"`
	WaitSelector string        `mapstructure:"wait_selector" yaml:"wait_selector"`
	WaitTimeout  time.Duration `mapstructure:"wait_timeout"  yaml:"wait_timeout"`
	WindowWidth  int           `mapstructure:"window_width"  yaml:"window_width"`
	WindowHeight int           `mapstructure:"window_height" yaml:"window_height"`
	BinPath      string        `mapstructure:"bin_path"      yaml:"bin_path"`
}

// LimitsConfig holds the extraction caps.
type LimitsConfig struct {
	MaxProductsPerCategory int `mapstructure:"max_products_per_category" yaml:"max_products_per_category"`
	MaxSpecifications      int `mapstructure:"max_specifications"        yaml:"max_specifications"`
	CardDescriptionLength  int `mapstructure:"card_description_length"   yaml:"card_description_length"`
	DescriptionLength      int `mapstructure:"description_length"        yaml:"description_length"`
	HeadingMaxLength       int `mapstructure:"heading_max_length"        yaml:"heading_max_length"`
	MinNameLength          int `mapstructure:"min_name_length"           yaml:"min_name_length"`
}

// StorageConfig controls where the catalog is persisted.
type StorageConfig struct {
	Type       string      `mapstructure:"type"        yaml:"type"` // json, mongodb, both
	OutputPath string      `mapstructure:"output_path" yaml:"output_path"`
	Mongo      MongoConfig `mapstructure:"mongo"       yaml:"mongo"`
}

// MongoConfig configures the MongoDB catalog mirror.
type MongoConfig struct {
	URI        string        `mapstructure:"uri"        yaml:"uri"`
	Database   string        `mapstructure:"database"   yaml:"database"`
	Collection string        `mapstructure:"collection" yaml:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"    yaml:"timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// APIConfig controls the read-only catalog API.
type APIConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultCategories returns the categories known to exist on the default site.
func DefaultCategories() []CategoryDescriptor {
	return []CategoryDescriptor{
		{ID: "injection", Name: "Инъекционные составы", Path: "/product/inektsionnye-sostavy/",
			Description: "Для укрепления, герметизации и защиты различных строительных объектов"},
		{ID: "antiseptics", Name: "Антисептики и биоциды", Path: "/product/antiseptiki-i-biotsidy/",
			Description: "Для предотвращения роста микроорганизмов на строительных материалах, увеличивает долговечность и защищает от плесени и вредителей"},
		{ID: "salt-blockers", Name: "Блокираторы солей", Path: "/product/blokiratory-soley/",
			Description: "Предотвращают образование солевых отложений и коррозию в строительных материалах, улучшая их долговечность"},
		{ID: "waterproofing", Name: "Гидроизоляционные составы", Path: "/product/gidroizolyatsionnye-sostavy/",
			Description: "Для защиты строительных конструкций от проникновения воды и влаги, обеспечивая долговечность и устойчивость к разрушению"},
		{ID: "additional", Name: "Дополнительная продукция", Path: "/product/dopolnitelnaya-produktsiya/",
			Description: "Продукция для обработки поверхностей изделий и строительных конструкций"},
		{ID: "stone-strengtheners", Name: "Камнеукрепители", Path: "/product/kamneukrepiteli/",
			Description: "Для повышения прочности и устойчивости каменных и бетонных конструкций, предотвращая их разрушение и деградацию"},
		{ID: "lime-paint", Name: "Краска известковая", Path: "/product/kraska-izvestkovaya/",
			Description: "Для отделки и защиты поверхностей, обладающая антисептическими свойствами и способствующая регулированию влажности"},
		{ID: "cleaners", Name: "Очистители", Path: "/product/ochistiteli/",
			Description: "Для удаления загрязнений, остатков строительных материалов и других нежелательных веществ с поверхностей, обеспечивая их чистоту и подготовленность к дальнейшей обработке"},
		{ID: "repair", Name: "Ремонтные составы", Path: "/product/remontnye-sostavy/",
			Description: "Для восстановления и укрепления поврежденных строительных конструкций"},
		{ID: "hydrophobizers", Name: "Гидрофобизаторы", Path: "/product/gidrofobizatory/",
			Description: "Уменьшают водопроницаемость строительных материалов, обеспечивая защиту от влаги и продлевая срок их службы"},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:          "https://stone-technology.info",
			PlaceholderImage: "https://via.placeholder.com/400x300?text=%s",
			Categories:       DefaultCategories(),
		},
		Engine: EngineConfig{
			RequestTimeout:  30 * time.Second,
			PolitenessDelay: 1 * time.Second,
			MaxRetries:      2,
			RetryDelay:      2 * time.Second,
			FetchDetails:    false,
			LinkFallback:    true,
			IDStyle:         "named",
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			AcceptLanguage:  "ru-RU,ru;q=0.9,en;q=0.8",
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    10,
		},
		Browser: BrowserConfig{
			Headless:     true,
			Stealth:      true,
			SettleDelay:  3 * time.Second,
			WaitSelector: "body",
			WaitTimeout:  10 * time.Second,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Limits: LimitsConfig{
			MaxProductsPerCategory: 50,
			MaxSpecifications:      10,
			CardDescriptionLength:  300,
			DescriptionLength:      2000,
			HeadingMaxLength:       100,
			MinNameLength:          4,
		},
		Storage: StorageConfig{
			Type:       "json",
			OutputPath: "catalog.json",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "catalogscraper",
				Collection: "categories",
				Timeout:    10 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		API: APIConfig{
			Addr: ":8080",
		},
	}
}
