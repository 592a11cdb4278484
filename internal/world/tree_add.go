package world

import (
	"errors"

	"github.com/annel0/spacemmo/internal/world/bounds"
)

// ErrOutOfBounds возвращается AddEntity, когда ограничивающий объём выходит
// за границы мира, а вызывающий код запретил такие вставки
var ErrOutOfBounds = errors.New("ограничивающий объём выходит за границы мира")

// AddEntity добавляет сущность в дерево. Объём, выходящий за границы мира,
// обрезается; такая вставка считается ошибкой, если allowOutOfBounds == false,
// и в этом случае дерево не изменяется.
//
// Повторная вставка сущности в то же местоположение ничего не делает;
// вставка в другое местоположение сначала удаляет сущность из старого
//
// entityID — идентификатор добавляемой сущности
// volume — физическое пространство, занимаемое сущностью
// allowOutOfBounds — разрешить регистрацию обрезанных объёмов
// isStatic — true, если добавляется статический объект
// lightType — тип источника света сущности, если он есть
func (t *BoundingTree) AddEntity(entityID EntityID, volume bounds.AABB, allowOutOfBounds, isStatic bool, lightType LightType) error {
	volume, outOfBounds := volume.ClampToWorld(float32(t.WorldOutlineLength))

	if outOfBounds && !allowOutOfBounds {
		return ErrOutOfBounds
	}

	// Сначала выясняем, сколько секций занимает объём: от этого зависит,
	// попадёт сущность в уникальную секцию или в общую
	contributingSections := t.FindAllUniqueSectionIDs(volume)

	if len(contributingSections) != 1 {
		t.addSharedEntity(entityID, volume, contributingSections, isStatic, lightType)
	} else {
		t.addUniqueEntity(entityID, volume, isStatic, lightType)
	}

	return nil
}

// addSharedEntity добавляет сущность, объём которой пересекает границу секций
func (t *BoundingTree) addSharedEntity(entityID EntityID, volume bounds.AABB, contributingSections []UniqueSectionID, isStatic bool, lightType LightType) {
	sharedID := NewSharedSectionID(contributingSections)

	if t.entityExistsInSection(entityID, SharedLookup(sharedID)) {
		return
	}

	if isStatic {
		for _, sectionID := range contributingSections {
			t.ChangedStaticSections[sectionID] = struct{}{}
		}
	}

	if section, ok := t.SharedSections[sharedID]; ok {
		section.addEntity(entityID, volume, isStatic)
		section.Lights.Add(entityID, lightType)

		if lightType != LightNone {
			t.registerSharedLight(sharedID)
		}

		t.EntityLookup[entityID] = SharedLookup(sharedID)
	} else {
		section := newSharedSectionEntities()
		section.addEntity(entityID, volume, isStatic)
		section.Lights.Add(entityID, lightType)
		t.SharedSections[sharedID] = section

		if lightType != LightNone {
			t.registerSharedLight(sharedID)
		}

		t.EntityLookup[entityID] = SharedLookup(sharedID)

		for _, sectionID := range contributingSections {
			// Каждая образующая уникальная секция получает ссылку на общую
			// секцию; при необходимости создаётся пустая запись
			if unique, ok := t.Sections[sectionID]; ok {
				unique.SharedSectionIDs[sharedID] = struct{}{}
			} else {
				unique := t.newUniqueSectionEntities(sectionID)
				unique.SharedSectionIDs[sharedID] = struct{}{}
				t.Sections[sectionID] = unique
			}

			// Обратная ссылка нужна, чтобы при удалении общей секции
			// уведомить все ссылающиеся на неё уникальные секции
			t.ReverseSharedLookup[sharedID] = append(t.ReverseSharedLookup[sharedID], sectionID)

			// Связи графа смежности создаются на уровне уникальных секций:
			// при обходе каждая секция сама проверяет свои общие секции
			if _, ok := t.RelatedSections[sectionID]; !ok {
				t.RelatedSections[sectionID] = []UniqueSectionID{}
				t.registerCreatedSection(sectionID)
			}
		}
	}

	t.ChangedSharedSections[sharedID] = struct{}{}
}

// addUniqueEntity добавляет сущность, объём которой целиком лежит в одной секции
func (t *BoundingTree) addUniqueEntity(entityID EntityID, volume bounds.AABB, isStatic bool, lightType LightType) {
	sectionID := findUniqueSectionID(volume, t.AtomicLength)

	if t.entityExistsInSection(entityID, UniqueLookup(sectionID)) {
		return
	}

	if lightType != LightNone {
		t.SectionsWithLights[sectionID] = struct{}{}
	}

	if section, ok := t.Sections[sectionID]; ok {
		section.Lights.Add(entityID, lightType)

		if isStatic {
			section.StaticEntities[entityID] = struct{}{}

			// Сигнализируем, что статический состав секции изменился
			t.ChangedStaticSections[sectionID] = struct{}{}
		} else {
			section.LocalEntities[entityID] = struct{}{}
		}

		if _, changed := t.ChangedSections[sectionID]; changed {
			t.TotalAABBCombining++
		} else {
			t.TotalAABBCombining += uint32(section.entityCount())
		}
	} else {
		section := t.newUniqueSectionEntities(sectionID)
		section.Lights.Add(entityID, lightType)

		if isStatic {
			section.StaticEntities[entityID] = struct{}{}
			t.ChangedStaticSections[sectionID] = struct{}{}
		} else {
			section.LocalEntities[entityID] = struct{}{}
		}

		t.Sections[sectionID] = section
		t.TotalAABBCombining++
	}

	t.EntityLookup[entityID] = UniqueLookup(sectionID)

	if _, ok := t.RelatedSections[sectionID]; !ok {
		t.RelatedSections[sectionID] = []UniqueSectionID{}
		t.registerCreatedSection(sectionID)
	}

	t.ChangedSections[sectionID] = struct{}{}
}

// newUniqueSectionEntities создаёт пустую запись уникальной секции с точечным
// AABB и запасным объёмом, равным геометрии самой секции
func (t *BoundingTree) newUniqueSectionEntities(sectionID UniqueSectionID) *UniqueSectionEntities {
	return &UniqueSectionEntities{
		AABB:             bounds.PointAABB(),
		BackupAABB:       sectionID.ToAABB(t.AtomicLength),
		LocalEntities:    make(map[EntityID]struct{}),
		StaticEntities:   make(map[EntityID]struct{}),
		SharedSectionIDs: make(map[SharedSectionID]struct{}),
		Lights:           NewLightEntities(),
	}
}

// registerSharedLight помечает общую секцию и все образующие её уникальные
// секции как содержащие источники света
func (t *BoundingTree) registerSharedLight(sharedID SharedSectionID) {
	t.SharedSectionLights[sharedID] = struct{}{}

	for _, sectionID := range sharedID.ToSections() {
		t.SectionsWithLights[sectionID] = struct{}{}
	}
}

// entityExistsInSection проверяет, проиндексирована ли сущность в указанном
// местоположении. Если сущность находится в другом местоположении, она
// предварительно удаляется оттуда
func (t *BoundingTree) entityExistsInSection(entityID EntityID, section SectionLookup) bool {
	sameSection := false
	if current, ok := t.EntityLookup[entityID]; ok {
		sameSection = current == section
	}

	if !sameSection {
		t.RemoveEntity(entityID)
	}

	return sameSection
}
