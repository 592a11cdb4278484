package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/spacemmo/internal/entity"
)

// WorldMetrics экспортирует состояние пространственного индекса в Prometheus.
// Использование:
//
//	wm := metrics.NewWorldMetrics("game")
//	wm.Update(manager) // раз в кадр или по таймеру
//
// Метрики:
// * world_sections — gauge, количество существующих уникальных секций
// * world_shared_sections — gauge, количество общих секций
// * world_static_sections — gauge, количество статических секций
// * world_lit_sections — gauge, количество секций с источниками света
// * world_entities — gauge, количество сущностей в мире
type WorldMetrics struct {
	sections       prometheus.Gauge
	sharedSections prometheus.Gauge
	staticSections prometheus.Gauge
	litSections    prometheus.Gauge
	entities       prometheus.Gauge
}

// NewWorldMetrics создаёт метрики и регистрирует их в дефолтном регистре
func NewWorldMetrics(namespace string) *WorldMetrics {
	wm := &WorldMetrics{
		sections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_sections",
			Help:      "Количество существующих уникальных секций мира.",
		}),
		sharedSections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_shared_sections",
			Help:      "Количество общих секций мира.",
		}),
		staticSections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_static_sections",
			Help:      "Количество секций без активных сущностей.",
		}),
		litSections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_lit_sections",
			Help:      "Количество секций с источниками света.",
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_entities",
			Help:      "Общее количество сущностей в мире.",
		}),
	}

	prometheus.MustRegister(wm.sections, wm.sharedSections, wm.staticSections,
		wm.litSections, wm.entities)
	return wm
}

// Update снимает текущее состояние мира через сводку менеджера, которая
// читает дерево под блокировкой
func (wm *WorldMetrics) Update(manager *entity.Manager) {
	stats := manager.Stats()

	wm.sections.Set(float64(stats.Sections))
	wm.sharedSections.Set(float64(stats.SharedSections))
	wm.staticSections.Set(float64(stats.StaticSections))
	wm.litSections.Set(float64(stats.LitSections))
	wm.entities.Set(float64(stats.Entities))
}
