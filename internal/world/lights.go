package world

// LightType задаёт тип источника света, который представляет сущность
type LightType uint8

const (
	// LightNone сущность не является источником света
	LightNone LightType = iota
	// LightDirectional направленный источник света
	LightDirectional
	// LightPoint точечный источник света
	LightPoint
	// LightSpot прожекторный источник света
	LightSpot
)

// LightEntities хранит источники света внутри секции мира, уникальной или общей
type LightEntities struct {
	Directional map[EntityID]struct{}
	Point       map[EntityID]struct{}
	Spot        map[EntityID]struct{}
}

// NewLightEntities создаёт пустой набор источников света
func NewLightEntities() LightEntities {
	return LightEntities{
		Directional: make(map[EntityID]struct{}),
		Point:       make(map[EntityID]struct{}),
		Spot:        make(map[EntityID]struct{}),
	}
}

// Add регистрирует источник света в секции. LightNone игнорируется
func (le *LightEntities) Add(entityID EntityID, lightType LightType) {
	switch lightType {
	case LightDirectional:
		le.Directional[entityID] = struct{}{}
	case LightPoint:
		le.Point[entityID] = struct{}{}
	case LightSpot:
		le.Spot[entityID] = struct{}{}
	}
}

// Remove удаляет источник света из секции
func (le *LightEntities) Remove(entityID EntityID) {
	if _, ok := le.Spot[entityID]; ok {
		delete(le.Spot, entityID)
		return
	}
	if _, ok := le.Point[entityID]; ok {
		delete(le.Point, entityID)
		return
	}
	delete(le.Directional, entityID)
}

// Get возвращает источники света указанного типа
func (le *LightEntities) Get(lightType LightType) map[EntityID]struct{} {
	switch lightType {
	case LightDirectional:
		return le.Directional
	case LightPoint:
		return le.Point
	case LightSpot:
		return le.Spot
	}
	return nil
}

// IsEmpty проверяет, есть ли в секции хоть один источник света
func (le *LightEntities) IsEmpty() bool {
	return len(le.Point) == 0 && len(le.Spot) == 0 && len(le.Directional) == 0
}
