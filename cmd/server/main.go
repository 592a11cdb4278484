package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/spacemmo/internal/api"
	"github.com/annel0/spacemmo/internal/config"
	"github.com/annel0/spacemmo/internal/entity"
	"github.com/annel0/spacemmo/internal/logging"
	"github.com/annel0/spacemmo/internal/metrics"
	"github.com/annel0/spacemmo/internal/observability"
	"github.com/annel0/spacemmo/internal/storage"
	"github.com/annel0/spacemmo/internal/world"
	"github.com/annel0/spacemmo/internal/worldgen"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигурации")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🌍 Запуск сервера игрового мира...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	outline := cfg.World.GetOutlineLength()
	atomic := cfg.World.GetAtomicLength()
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())

	logging.Info("📡 Конфигурация: мир %dx%dx%d, атомарная секция %d, REST API=%s",
		outline, outline, outline, atomic, restPort)

	// === ТЕЛЕМЕТРИЯ ===
	ctx := context.Background()
	shutdownTelemetry, err := observability.InitTelemetry(ctx, "spacemmo-server")
	if err != nil {
		// Телеметрия не критична для работы сервера
		logging.Warn("OpenTelemetry не инициализирован: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ХРАНИЛИЩЕ ===
	store, err := storage.NewSnapshotStore(cfg.Storage.GetDataPath())
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища: %v", err)
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}
	defer store.Close()

	// === МИР ===
	manager, err := loadOrGenerateWorld(store, cfg)
	if err != nil {
		logging.Error("❌ Ошибка инициализации мира: %v", err)
		log.Fatalf("❌ Ошибка инициализации мира: %v", err)
	}

	worldMetrics := metrics.NewWorldMetrics("game")
	worldMetrics.Update(manager)

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port:    restPort,
		Manager: manager,
		Store:   store,
	})

	go func() {
		if err := restServer.Start(); err != nil {
			logging.Error("❌ Ошибка REST сервера: %v", err)
		}
	}()

	// === ИГРОВОЙ ЦИКЛ ===
	stopLoop := make(chan struct{})
	loopDone := make(chan struct{})
	go runGameLoop(manager, worldMetrics, store, cfg, stopLoop, loopDone)

	logging.Info("✅ Сервер запущен")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/healthz", restPort)
	logging.Info("   📊 Метрики: http://localhost%s/metrics", restPort)

	// Ждем сигнала для завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	close(stopLoop)
	<-loopDone

	// Финальный снимок мира перед остановкой
	if id, err := saveWorldSnapshot(store, manager); err != nil {
		logging.Error("Ошибка сохранения финального снимка: %v", err)
	} else {
		logging.Info("💾 Финальный снимок мира сохранён: %s", id)
	}

	if err := shutdownTelemetry(ctx); err != nil {
		logging.Warn("Ошибка остановки телеметрии: %v", err)
	}

	logging.GetLoggerManager().CloseAll()
	logging.Info("✅ Сервер остановлен")
}

// saveWorldSnapshot сохраняет снимок мира, удерживая блокировку мира на
// время сериализации: API может изменять мир параллельно с игровым циклом
func saveWorldSnapshot(store *storage.SnapshotStore, manager *entity.Manager) (string, error) {
	var id string
	err := manager.WithSnapshot(func(snapshot *entity.WorldSnapshot) error {
		var saveErr error
		id, saveErr = store.SaveSnapshot(snapshot)
		return saveErr
	})
	return id, err
}

// loadOrGenerateWorld восстанавливает мир из последнего снимка или
// генерирует новый, если снимков ещё нет
func loadOrGenerateWorld(store *storage.SnapshotStore, cfg *config.Config) (*entity.Manager, error) {
	snapshot, err := store.LoadLatest()
	if err == nil {
		manager := entity.RestoreManager(snapshot)
		logging.Info("💾 Мир восстановлен из снимка: %d сущностей", manager.Count())
		return manager, nil
	}
	if !errors.Is(err, storage.ErrSnapshotNotFound) {
		return nil, err
	}

	tree := world.NewBoundingTree(cfg.World.GetOutlineLength(), cfg.World.GetAtomicLength())
	manager := entity.NewManager(tree)

	generator := worldgen.NewGenerator(cfg.World.Seed)
	spawned, err := generator.Populate(manager)
	if err != nil {
		return nil, err
	}

	logging.Info("🌱 Новый мир сгенерирован: %d сущностей", spawned)
	return manager, nil
}

// runGameLoop выполняет кадры логики: завершает изменения дерева секций,
// обновляет метрики и периодически сохраняет снимки мира
func runGameLoop(manager *entity.Manager, worldMetrics *metrics.WorldMetrics,
	store *storage.SnapshotStore, cfg *config.Config, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	frameInterval := time.Second / time.Duration(cfg.World.GetTickRate())
	frameTicker := time.NewTicker(frameInterval)
	defer frameTicker.Stop()

	snapshotInterval := time.Duration(cfg.Storage.GetSnapshotInterval()) * time.Second
	snapshotTicker := time.NewTicker(snapshotInterval)
	defer snapshotTicker.Stop()

	for {
		select {
		case <-frameTicker.C:
			manager.EndOfFrame()
			worldMetrics.Update(manager)

		case <-snapshotTicker.C:
			if id, err := saveWorldSnapshot(store, manager); err != nil {
				logging.Error("Ошибка автоматического снимка: %v", err)
			} else {
				logging.Debug("Автоматический снимок мира: %s", id)
			}

		case <-stop:
			return
		}
	}
}
