package world

import (
	"github.com/annel0/spacemmo/internal/world/bounds"
)

// UniqueSectionEntities содержимое уникальной секции мира
type UniqueSectionEntities struct {
	// AABB уточнённый объём секции, пересчитывается лениво в EndOfChanges
	AABB bounds.AABB
	// BackupAABB геометрический объём самой секции; используется как быстрый
	// запасной вариант, когда точный пересчёт слишком дорог
	BackupAABB bounds.AABB
	// LocalEntities динамические сущности, целиком лежащие в секции
	LocalEntities map[EntityID]struct{}
	// StaticEntities статические сущности, целиком лежащие в секции
	StaticEntities map[EntityID]struct{}
	// SharedSectionIDs общие секции, на которые ссылается эта секция
	SharedSectionIDs map[SharedSectionID]struct{}
	// Lights источники света секции
	Lights LightEntities
}

// isKeyToSharedLight проверяет, ссылается ли секция хотя бы на одну общую
// секцию с источниками света
func (u *UniqueSectionEntities) isKeyToSharedLight(sharedLights map[SharedSectionID]struct{}) bool {
	for sharedID := range u.SharedSectionIDs {
		if _, ok := sharedLights[sharedID]; ok {
			return true
		}
	}
	return false
}

// isEmpty секция подлежит удалению, когда в ней нет сущностей и ссылок
// на общие секции
func (u *UniqueSectionEntities) isEmpty() bool {
	return len(u.LocalEntities) == 0 &&
		len(u.StaticEntities) == 0 &&
		len(u.SharedSectionIDs) == 0
}

// entityCount количество сущностей, принадлежащих непосредственно секции
func (u *UniqueSectionEntities) entityCount() int {
	return len(u.LocalEntities) + len(u.StaticEntities)
}

// SharedSectionEntities содержимое общей секции: сущности, чьи объёмы
// пересекают границу секций и потому принадлежат сразу нескольким
type SharedSectionEntities struct {
	// Entities динамические сущности общей секции
	Entities map[EntityID]struct{}
	// StaticEntities статические сущности общей секции
	StaticEntities map[EntityID]struct{}
	// EntityAABBs кэш ограничивающих объёмов сущностей секции
	EntityAABBs map[EntityID]bounds.AABB
	// AABB совокупный объём секции
	AABB bounds.AABB
	// Lights источники света секции
	Lights LightEntities
}

// newSharedSectionEntities создаёт пустую общую секцию с точечным AABB
func newSharedSectionEntities() *SharedSectionEntities {
	return &SharedSectionEntities{
		Entities:       make(map[EntityID]struct{}),
		StaticEntities: make(map[EntityID]struct{}),
		EntityAABBs:    make(map[EntityID]bounds.AABB),
		AABB:           bounds.PointAABB(),
		Lights:         NewLightEntities(),
	}
}

// addEntity добавляет сущность в общую секцию
func (s *SharedSectionEntities) addEntity(entityID EntityID, aabb bounds.AABB, isStatic bool) {
	if isStatic {
		s.StaticEntities[entityID] = struct{}{}
	} else {
		s.Entities[entityID] = struct{}{}
	}

	s.EntityAABBs[entityID] = aabb
}

// removeEntity удаляет сущность из общей секции
func (s *SharedSectionEntities) removeEntity(entityID EntityID) {
	if _, ok := s.Entities[entityID]; ok {
		delete(s.Entities, entityID)
	} else {
		delete(s.StaticEntities, entityID)
	}

	delete(s.EntityAABBs, entityID)
}

// isEmpty общая секция подлежит удалению, когда в ней нет сущностей
func (s *SharedSectionEntities) isEmpty() bool {
	return len(s.Entities) == 0 && len(s.StaticEntities) == 0
}

// LookupKind тип местоположения сущности
type LookupKind uint8

const (
	// LookupUnique сущность лежит в уникальной секции
	LookupUnique LookupKind = iota
	// LookupShared сущность лежит в общей секции
	LookupShared
)

// SectionLookup местоположение сущности: уникальная или общая секция.
// Сравним оператором ==, что используется при проверке повторной вставки
type SectionLookup struct {
	Kind   LookupKind
	Unique UniqueSectionID
	Shared SharedSectionID
}

// UniqueLookup местоположение в уникальной секции
func UniqueLookup(id UniqueSectionID) SectionLookup {
	return SectionLookup{Kind: LookupUnique, Unique: id}
}

// SharedLookup местоположение в общей секции
func SharedLookup(id SharedSectionID) SectionLookup {
	return SectionLookup{Kind: LookupShared, Shared: id}
}

// RelatedEntityResult результат поиска соседних сущностей: местоположение и
// наборы сущностей секции. Наборы ссылаются на внутренние структуры дерева
// и не должны изменяться вызывающим кодом
type RelatedEntityResult struct {
	Location SectionLookup
	Entities map[EntityID]struct{}
	Static   map[EntityID]struct{}
}
