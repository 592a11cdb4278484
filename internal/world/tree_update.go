package world

import (
	"fmt"

	"github.com/annel0/spacemmo/internal/world/bounds"
)

// VolumeAccessor доступ только на чтение к ограничивающим объёмам сущностей
// во внешнем хранилище. Используется исключительно при пересчёте AABB секций
type VolumeAccessor interface {
	EntityAABB(id EntityID) (bounds.AABB, bool)
}

// Пороги, при превышении которых точный пересчёт AABB секции заменяется
// запасным геометрическим объёмом. Чем выше уровень секции, тем больше
// сущностей допускается к пересчёту: секций высоких уровней меньше
const (
	maxTotalAABBCombining     = 500
	baseMaxCombiningEntities  = 20
	levelCombiningBonus       = 5
	maxCombiningEntitiesLimit = 50
)

// EndOfChanges лениво пересчитывает совокупные объёмы секций, изменённых
// с прошлого кадра, и обновляет классификацию статических секций. Точный
// объём секции равен объединению объёмов всех её сущностей; если накопленный
// за кадр объём работы слишком велик, для переполненных уникальных секций
// используется их геометрический объём — дешёвый, но менее плотный.
//
// Все списки изменений и счётчик работы очищаются в конце вызова
func (t *BoundingTree) EndOfChanges(accessor VolumeAccessor) {
	t.updateStaticSections()

	tooManyCombining := t.TotalAABBCombining > maxTotalAABBCombining

	for sectionID := range t.ChangedSections {
		section, ok := t.Sections[sectionID]
		if !ok {
			continue
		}

		maxEntities := int(sectionID.Level)*levelCombiningBonus + baseMaxCombiningEntities
		if maxEntities > maxCombiningEntitiesLimit {
			maxEntities = maxCombiningEntitiesLimit
		}

		if tooManyCombining && section.entityCount() > maxEntities {
			section.AABB = section.BackupAABB
			continue
		}

		section.AABB = combineEntityAABBs(accessor, section.LocalEntities, section.StaticEntities)
	}

	// Для общих секций пересчёт всегда точный: их заметно меньше
	for sharedID := range t.ChangedSharedSections {
		section, ok := t.SharedSections[sharedID]
		if !ok {
			continue
		}

		section.AABB = combineEntityAABBs(accessor, section.Entities, section.StaticEntities)
	}

	clear(t.ChangedSharedSections)
	clear(t.ChangedSections)
	t.TotalAABBCombining = 0
}

// combineEntityAABBs объединяет объёмы всех перечисленных сущностей
func combineEntityAABBs(accessor VolumeAccessor, entitySets ...map[EntityID]struct{}) bounds.AABB {
	combined := bounds.PointAABB()
	first := true

	for _, entities := range entitySets {
		for entityID := range entities {
			aabb, ok := accessor.EntityAABB(entityID)
			if !ok {
				panic(fmt.Sprintf("сущность %d не имеет ограничивающего объёма в хранилище", entityID))
			}

			if first {
				combined = aabb
				first = false
				continue
			}

			combined = combined.Combine(aabb)
		}
	}

	return combined
}

// updateStaticSections пересматривает, какие из изменённых за кадр секций
// содержат активные сущности. Уникальная секция статична, если в ней нет
// динамических сущностей и все связанные с ней общие секции тоже их не имеют
func (t *BoundingTree) updateStaticSections() {
	for sectionID := range t.ChangedSections {
		markStatic := false

		if section, ok := t.Sections[sectionID]; ok {
			if len(section.LocalEntities) == 0 {
				if len(section.SharedSectionIDs) == 0 {
					markStatic = true
				} else {
					for sharedID := range section.SharedSectionIDs {
						if shared, ok := t.SharedSections[sharedID]; ok {
							// Уникальные секции служат ключами доступа к общим
							// секциям, поэтому секция без собственных активных
							// сущностей, но с активной общей секцией, должна
							// оставаться активной
							if len(shared.Entities) == 0 {
								markStatic = true
							}
						}
					}
				}
			}
		}

		if markStatic {
			t.StaticSections[sectionID] = struct{}{}
		} else {
			delete(t.StaticSections, sectionID)
		}
	}

	for sharedID := range t.ChangedSharedSections {
		shared, ok := t.SharedSections[sharedID]
		if !ok {
			// Удалённая общая секция оставляет свои уникальные секции
			// статическими: меньше секций на обработку. Если в такую секцию
			// придёт активная сущность, флаг снимется при следующей вставке
			continue
		}

		if len(shared.Entities) == 0 {
			// Статус уникальных секций меняется, так как именно через них
			// общие секции попадают в обход видимых секций
			for _, sectionID := range sharedID.ToSections() {
				if section, ok := t.Sections[sectionID]; ok {
					if len(section.LocalEntities) == 0 {
						t.StaticSections[sectionID] = struct{}{}
					}
				}
			}
		} else {
			// В общей секции есть активная сущность, поэтому все связанные
			// с ней уникальные секции обязаны остаться активными
			for _, sectionID := range sharedID.ToSections() {
				delete(t.StaticSections, sectionID)
			}
		}
	}
}
