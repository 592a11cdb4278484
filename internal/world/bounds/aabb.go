package bounds

import (
	"github.com/annel0/spacemmo/internal/vec"
)

// AABB представляет выровненный по осям ограничивающий объём в 3D-пространстве
type AABB struct {
	X Range
	Y Range
	Z Range
}

// NewAABB создаёт ограничивающий объём из диапазонов по каждой оси
func NewAABB(x, y, z Range) AABB {
	return AABB{X: x, Y: y, Z: z}
}

// PointAABB возвращает вырожденный объём нулевой длины в начале координат
func PointAABB() AABB {
	return AABB{}
}

// Combine объединяет два объёма так, чтобы результат вмещал оба
func (a AABB) Combine(other AABB) AABB {
	return AABB{
		X: a.X.Combine(other.X),
		Y: a.Y.Combine(other.Y),
		Z: a.Z.Combine(other.Z),
	}
}

// Intersects проверяет, пересекается ли объём с другим
func (a AABB) Intersects(other AABB) bool {
	return a.X.Overlaps(other.X) &&
		a.Y.Overlaps(other.Y) &&
		a.Z.Overlaps(other.Z)
}

// ContainsPoint проверяет, лежит ли точка внутри объёма
func (a AABB) ContainsPoint(point vec.Vec3Float) bool {
	return a.X.ContainsPoint(float32(point.X)) &&
		a.Y.ContainsPoint(float32(point.Y)) &&
		a.Z.ContainsPoint(float32(point.Z))
}

// Translate сдвигает объём на указанный вектор
func (a AABB) Translate(move vec.Vec3Float) AABB {
	return AABB{
		X: a.X.Translate(float32(move.X)),
		Y: a.Y.Translate(float32(move.Y)),
		Z: a.Z.Translate(float32(move.Z)),
	}
}

// Centre возвращает центр объёма
func (a AABB) Centre() vec.Vec3Float {
	return vec.Vec3Float{
		X: float64(a.X.Centre()),
		Y: float64(a.Y.Centre()),
		Z: float64(a.Z.Centre()),
	}
}

// ClampToWorld обрезает объём по границам мира [0, outlineLength] в каждом
// измерении. Возвращает true, если объём выходил за эти границы
func (a AABB) ClampToWorld(outlineLength float32) (AABB, bool) {
	x, outX := a.X.clamp(outlineLength)
	y, outY := a.Y.clamp(outlineLength)
	z, outZ := a.Z.clamp(outlineLength)

	return AABB{X: x, Y: y, Z: z}, outX || outY || outZ
}
