package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения

type Config struct {
	World   WorldConfig   `yaml:"world"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
}

// WorldConfig параметры игрового мира и его пространственного индекса
type WorldConfig struct {
	// OutlineLength длина мира по каждой оси
	OutlineLength uint32 `yaml:"outline_length"`
	// AtomicLength длина наименьшей секции мира
	AtomicLength uint32 `yaml:"atomic_length"`
	// Seed сид генератора мира
	Seed int64 `yaml:"seed"`
	// TickRate количество кадров логики в секунду
	TickRate int `yaml:"tick_rate"`
}

// StorageConfig параметры хранилища снимков мира
type StorageConfig struct {
	// DataPath директория данных BadgerDB
	DataPath string `yaml:"data_path"`
	// SnapshotEverySeconds период автоматических снимков мира
	SnapshotEverySeconds int `yaml:"snapshot_every_seconds"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// GetOutlineLength возвращает длину мира с дефолтом 1024
func (w *WorldConfig) GetOutlineLength() uint32 {
	if w.OutlineLength > 0 {
		return w.OutlineLength
	}
	return 1024
}

// GetAtomicLength возвращает атомарную длину секции с дефолтом 32
func (w *WorldConfig) GetAtomicLength() uint32 {
	if w.AtomicLength > 0 {
		return w.AtomicLength
	}
	return 32
}

// GetTickRate возвращает частоту кадров логики с дефолтом 20
func (w *WorldConfig) GetTickRate() int {
	if w.TickRate > 0 {
		return w.TickRate
	}
	return 20
}

// GetDataPath возвращает директорию данных с дефолтом ./data
func (s *StorageConfig) GetDataPath() string {
	if s.DataPath != "" {
		return s.DataPath
	}
	if path := os.Getenv("GAME_DATA_PATH"); path != "" {
		return path
	}
	return "./data"
}

// GetSnapshotInterval возвращает период снимков в секундах с дефолтом 300
func (s *StorageConfig) GetSnapshotInterval() int {
	if s.SnapshotEverySeconds > 0 {
		return s.SnapshotEverySeconds
	}
	return 300
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "GAME_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV GAME_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
