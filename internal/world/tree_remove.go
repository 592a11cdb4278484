package world

import "fmt"

// RemoveEntity удаляет сущность из дерева, учитывая, находится ли она
// в уникальной или в общей секции. Опустевшие записи секций уничтожаются
// вместе с их рёбрами графа смежности. Удаление непроиндексированной
// сущности ничего не делает
func (t *BoundingTree) RemoveEntity(entityID EntityID) {
	lookup, ok := t.EntityLookup[entityID]
	if !ok {
		return
	}
	delete(t.EntityLookup, entityID)

	var sectionsToRemove []UniqueSectionID

	switch lookup.Kind {
	case LookupShared:
		sectionsToRemove = t.removeSharedEntity(entityID, lookup.Shared)
	default:
		sectionsToRemove = t.removeUniqueEntity(entityID, lookup.Unique)
	}

	// Уничтожение отложено до завершения изменений записей: отсоединяем
	// каждую опустевшую секцию от графа смежности и удаляем её запись
	for _, sectionID := range sectionsToRemove {
		related, ok := t.RelatedSections[sectionID]
		if !ok {
			panic(fmt.Sprintf("удаляемая секция отсутствует в графе смежности: %+v", sectionID))
		}
		delete(t.RelatedSections, sectionID)

		for _, affected := range related {
			neighbors := t.RelatedSections[affected]
			for i, neighbor := range neighbors {
				if neighbor == sectionID {
					t.RelatedSections[affected] = append(neighbors[:i], neighbors[i+1:]...)
					break
				}
			}
		}

		delete(t.Sections, sectionID)
	}

	// Проверка активности секции включает проверку её существования, поэтому
	// удаление секций до обновления списка статических секций безопасно
}

// removeSharedEntity удаляет сущность из общей секции. Опустевшая общая
// секция уничтожается: ссылки снимаются со всех образующих уникальных
// секций через обратный поиск, и опустевшие из них возвращаются на удаление
func (t *BoundingTree) removeSharedEntity(entityID EntityID, sharedID SharedSectionID) []UniqueSectionID {
	section, ok := t.SharedSections[sharedID]
	if !ok {
		panic(fmt.Sprintf("общая секция сущности не имеет записи: %+v", sharedID))
	}

	if section.Lights.IsEmpty() {
		for _, sectionID := range sharedID.ToSections() {
			if _, isStatic := section.StaticEntities[entityID]; isStatic {
				t.ChangedStaticSections[sectionID] = struct{}{}
			}

			if unique, ok := t.Sections[sectionID]; ok {
				if unique.Lights.IsEmpty() && !unique.isKeyToSharedLight(t.SharedSectionLights) {
					delete(t.SectionsWithLights, sectionID)
				}
			}
		}
	}

	section.removeEntity(entityID)
	section.Lights.Remove(entityID)

	var sectionsToRemove []UniqueSectionID

	if section.isEmpty() {
		// Все уникальные секции, ссылающиеся на общую, должны узнать о её
		// удалении и перестать на неё ссылаться
		referencing, ok := t.ReverseSharedLookup[sharedID]
		if !ok {
			panic(fmt.Sprintf("общая секция отсутствует в обратном поиске: %+v", sharedID))
		}

		for _, sectionID := range referencing {
			unique, ok := t.Sections[sectionID]
			if !ok {
				panic(fmt.Sprintf("ссылающаяся секция не имеет записи: %+v", sectionID))
			}

			delete(unique.SharedSectionIDs, sharedID)

			if unique.isEmpty() {
				sectionsToRemove = append(sectionsToRemove, sectionID)
			}
		}

		delete(t.SharedSections, sharedID)
		delete(t.ReverseSharedLookup, sharedID)
	}

	t.ChangedSharedSections[sharedID] = struct{}{}

	return sectionsToRemove
}

// removeUniqueEntity удаляет сущность из уникальной секции. Секция
// уничтожается, только если в ней не осталось ни сущностей, ни ссылок на
// общие секции: секция логически существует, пока в ней есть хоть какая-то
// часть какой-либо сущности
func (t *BoundingTree) removeUniqueEntity(entityID EntityID, sectionID UniqueSectionID) []UniqueSectionID {
	section, ok := t.Sections[sectionID]
	if !ok {
		panic(fmt.Sprintf("секция сущности не имеет записи: %+v", sectionID))
	}

	section.Lights.Remove(entityID)
	if section.Lights.IsEmpty() && !section.isKeyToSharedLight(t.SharedSectionLights) {
		delete(t.SectionsWithLights, sectionID)
	}

	if _, isLocal := section.LocalEntities[entityID]; isLocal {
		delete(section.LocalEntities, entityID)
	} else {
		delete(section.StaticEntities, entityID)

		// Сигнализируем, что статический состав секции изменился
		t.ChangedStaticSections[sectionID] = struct{}{}
	}

	var sectionsToRemove []UniqueSectionID

	if section.isEmpty() {
		sectionsToRemove = append(sectionsToRemove, sectionID)
	} else {
		if _, changed := t.ChangedSections[sectionID]; changed {
			t.TotalAABBCombining++
		} else {
			t.TotalAABBCombining += uint32(section.entityCount())
		}
	}

	t.ChangedSections[sectionID] = struct{}{}

	return sectionsToRemove
}
