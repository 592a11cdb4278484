// Package worldgen наполняет новый мир статическим ландшафтом.
// Генерация детерминирована: один и тот же сид всегда даёт один
// и тот же мир.
package worldgen

import (
	"fmt"

	"github.com/annel0/spacemmo/internal/entity"
	"github.com/annel0/spacemmo/internal/logging"
	"github.com/annel0/spacemmo/internal/util"
	"github.com/annel0/spacemmo/internal/world"
	"github.com/annel0/spacemmo/internal/world/bounds"
)

// Доля высоты мира, которую может занимать ландшафт, и порог шума,
// выше которого на вершине колонны появляется источник света
const (
	maxTerrainFraction = 0.25
	lightThreshold     = 0.85
)

// Generator детерминированно генерирует статический ландшафт мира
type Generator struct {
	seed   int64
	logger *logging.Logger
}

// NewGenerator создаёт генератор мира с указанным сидом
func NewGenerator(seed int64) *Generator {
	util.InitPerlinNoise(seed)

	return &Generator{
		seed:   seed,
		logger: logging.GetGeneratorLogger(),
	}
}

// Populate заполняет мир колоннами ландшафта: по одной статической сущности
// на атомарную колонну, с высотой из шума Перлина. На самых высоких колоннах
// размещаются точечные источники света
func (g *Generator) Populate(manager *entity.Manager) (int, error) {
	atomic := manager.AtomicSectionLength()
	outline := manager.OutlineLength()
	columns := outline / atomic

	maxHeight := float32(outline) * maxTerrainFraction

	spawned := 0
	for cx := uint32(0); cx < columns; cx++ {
		for cz := uint32(0); cz < columns; cz++ {
			noise := util.PerlinNoise2D(
				float64(cx)/float64(columns),
				float64(cz)/float64(columns),
				g.seed,
			)

			height := float32(noise) * maxHeight
			if height < 1 {
				height = 1
			}

			minX := float32(cx * atomic)
			minZ := float32(cz * atomic)

			column := bounds.NewAABB(
				bounds.NewRange(minX, minX+float32(atomic)),
				bounds.NewRange(0, height),
				bounds.NewRange(minZ, minZ+float32(atomic)),
			)

			if _, err := manager.Spawn(column, true, world.LightNone); err != nil {
				return spawned, fmt.Errorf("не удалось создать колонну (%d, %d): %w", cx, cz, err)
			}
			spawned++

			if noise > lightThreshold {
				light := bounds.NewAABB(
					bounds.NewRange(minX+1, minX+2),
					bounds.NewRange(height, height+1),
					bounds.NewRange(minZ+1, minZ+2),
				)

				if _, err := manager.Spawn(light, true, world.LightPoint); err != nil {
					return spawned, fmt.Errorf("не удалось создать источник света (%d, %d): %w", cx, cz, err)
				}
				spawned++
			}
		}
	}

	manager.EndOfFrame()

	g.logger.Info("Мир сгенерирован: сид=%d, сущностей=%d", g.seed, spawned)
	return spawned, nil
}
