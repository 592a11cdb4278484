// Package culling содержит предикаты видимости, управляющие обходом
// пространственного индекса. Дерево секций не знает, что именно означает
// "видимость" — камеру, зону интереса игрока или радиус симуляции —
// и опирается только на интерфейс TraversalDecider.
package culling

import (
	"github.com/annel0/spacemmo/internal/vec"
	"github.com/annel0/spacemmo/internal/world/bounds"
)

// TraversalDecider решает, попадает ли ограничивающий объём в область
// интереса. Реализации должны быть безопасны для повторных вызовов
// в рамках одного обхода
type TraversalDecider interface {
	AABBInView(aabb bounds.AABB) bool
}

// BoxCuller считает видимым всё, что пересекает заданный объём.
// Подходит для зон интереса игроков и областей загрузки мира
type BoxCuller struct {
	view bounds.AABB
}

// NewBoxCuller создаёт отсекатель по объёму view
func NewBoxCuller(view bounds.AABB) *BoxCuller {
	return &BoxCuller{view: view}
}

// AABBInView возвращает true, если объём пересекает область интереса
func (c *BoxCuller) AABBInView(aabb bounds.AABB) bool {
	return c.view.Intersects(aabb)
}

// RadiusCuller считает видимым всё в пределах радиуса от точки наблюдения.
// Расстояние измеряется до центра объёма, поэтому для крупных секций
// радиус стоит выбирать с запасом
type RadiusCuller struct {
	origin vec.Vec3Float
	radius float64
}

// NewRadiusCuller создаёт отсекатель вокруг точки origin
func NewRadiusCuller(origin vec.Vec3Float, radius float64) *RadiusCuller {
	return &RadiusCuller{origin: origin, radius: radius}
}

// AABBInView возвращает true, если центр объёма находится в радиусе обзора
func (c *RadiusCuller) AABBInView(aabb bounds.AABB) bool {
	return c.origin.DistanceTo(aabb.Centre()) <= c.radius
}
