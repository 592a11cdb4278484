package bounds

// combineEpsilon компенсирует погрешность float32 при объединении диапазонов
const combineEpsilon = 0.01

// Range представляет диапазон в одном измерении (X, Y или Z)
type Range struct {
	Min float32
	Max float32
}

// NewRange создаёт новый диапазон. Max должен быть не меньше Min
func NewRange(min, max float32) Range {
	return Range{Min: min, Max: max}
}

// Length возвращает длину диапазона
func (r Range) Length() float32 {
	return r.Max - r.Min
}

// Centre возвращает центр диапазона
func (r Range) Centre() float32 {
	return (r.Min + r.Max) / 2.0
}

// Combine объединяет два диапазона так, чтобы результат вмещал оба
func (r Range) Combine(other Range) Range {
	min := other.Min
	if (r.Min - combineEpsilon) < other.Min {
		min = r.Min
	}

	max := other.Max
	if (r.Max + combineEpsilon) > other.Max {
		max = r.Max
	}

	return Range{Min: min, Max: max}
}

// Overlaps проверяет, пересекается ли диапазон с другим
func (r Range) Overlaps(other Range) bool {
	return r.Min <= other.Max && r.Max >= other.Min
}

// ContainsPoint проверяет, лежит ли точка внутри диапазона
func (r Range) ContainsPoint(point float32) bool {
	return r.Min <= point && point <= r.Max
}

// Translate сдвигает диапазон на указанную величину
func (r Range) Translate(amount float32) Range {
	return Range{Min: r.Min + amount, Max: r.Max + amount}
}

// clamp ограничивает диапазон отрезком [0, limit].
// Возвращает true, если диапазон выходил за его пределы
func (r Range) clamp(limit float32) (Range, bool) {
	out := r.Min < 0 || r.Max < 0 || r.Min > limit || r.Max > limit

	clamped := Range{
		Min: clampValue(r.Min, limit),
		Max: clampValue(r.Max, limit),
	}

	return clamped, out
}

func clampValue(v, limit float32) float32 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
