package world

import (
	"fmt"

	"github.com/annel0/spacemmo/internal/culling"
	"github.com/annel0/spacemmo/internal/world/bounds"
)

// FindRelatedEntities возвращает все сущности, находящиеся в заданных
// секциях, в достижимых от них по графу смежности секциях и в общих
// секциях, образованных посещёнными уникальными секциями.
//
// Каждая переданная проверка видимости применяется к совокупному объёму
// общей секции, результаты объединяются через ИЛИ. Сущности общей секции
// сейчас попадают в результат независимо от исхода проверки: потребители
// рассчитывают на полный список и фильтруют его сами.
//
// Секция из seedSections, не имеющая записи в дереве, означает нарушение
// инварианта и вызывает панику
func (t *BoundingTree) FindRelatedEntities(seedSections []UniqueSectionID, deciders ...culling.TraversalDecider) []RelatedEntityResult {
	var results []RelatedEntityResult

	frontier := append([]UniqueSectionID{}, seedSections...)
	processedSections := make(map[UniqueSectionID]struct{})
	processedShared := make(map[SharedSectionID]struct{})

	for len(frontier) > 0 {
		sectionID := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		// Две связанные секции ссылаются друг на друга, и без этой проверки
		// обход зациклился бы, бесконечно добавляя их по очереди
		if _, done := processedSections[sectionID]; done {
			continue
		}
		processedSections[sectionID] = struct{}{}

		section, ok := t.Sections[sectionID]
		if !ok {
			panic(fmt.Sprintf("запрошенная секция не существует: %+v", sectionID))
		}

		results = append(results, RelatedEntityResult{
			Location: UniqueLookup(sectionID),
			Entities: section.LocalEntities,
			Static:   section.StaticEntities,
		})

		for sharedID := range section.SharedSectionIDs {
			// Две несвязанные уникальные секции могут ссылаться на одну
			// общую секцию, находясь по разные стороны границы более
			// крупного уровня, поэтому общие секции учитываются один раз
			if _, done := processedShared[sharedID]; done {
				continue
			}
			processedShared[sharedID] = struct{}{}

			shared, ok := t.SharedSections[sharedID]
			if !ok {
				panic(fmt.Sprintf("общая секция не имеет записи: %+v", sharedID))
			}

			if sharedInView(shared.AABB, deciders) {
				results = append(results, RelatedEntityResult{
					Location: SharedLookup(sharedID),
					Entities: shared.Entities,
					Static:   section.StaticEntities,
				})
			} else {
				// Невидимые общие секции пока включаются наравне с видимыми
				results = append(results, RelatedEntityResult{
					Location: SharedLookup(sharedID),
					Entities: shared.Entities,
					Static:   section.StaticEntities,
				})
			}
		}

		// Сущности связанных секций тоже входят в результат
		frontier = append(frontier, t.RelatedSections[sectionID]...)
	}

	return results
}

// sharedInView объединяет переданные проверки видимости через ИЛИ.
// Без проверок секция считается невидимой
func sharedInView(aabb bounds.AABB, deciders []culling.TraversalDecider) bool {
	for _, decider := range deciders {
		if decider != nil && decider.AABBInView(aabb) {
			return true
		}
	}
	return false
}
