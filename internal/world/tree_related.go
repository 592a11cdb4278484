package world

// registerCreatedSection находит все существующие секции, являющиеся предками
// или потомками созданной секции, и связывает их с ней двусторонними рёбрами.
//
// Рассматриваются только вертикальные связи: для секции среднего уровня
// проверяются её потомки и предки, но не соседние секции того же уровня.
// Связанные секции могут перескакивать уровень, если промежуточный уровень
// не содержит сущностей
func (t *BoundingTree) registerCreatedSection(created UniqueSectionID) {
	// Вниз по дереву: все существующие секции-потомки
	if created.Level != 0 {
		children, _ := created.LowerLevel()
		lowerSections := append([]UniqueSectionID{}, children[:]...)

		for len(lowerSections) > 0 {
			lower := lowerSections[len(lowerSections)-1]
			lowerSections = lowerSections[:len(lowerSections)-1]

			// Найденный потомок сам связан со своими потомками, поэтому
			// глубже по этой ветви спускаться не нужно
			if _, ok := t.RelatedSections[lower]; ok {
				t.RelatedSections[lower] = append(t.RelatedSections[lower], created)
				t.RelatedSections[created] = append(t.RelatedSections[created], lower)
				continue
			}

			// Отсутствие записи у потомка не ошибка: в нём просто нет
			// сущностей, но более глубокие уровни ещё могут быть заняты
			if grandChildren, ok := lower.LowerLevel(); ok {
				lowerSections = append(lowerSections, grandChildren[:]...)
			}
		}
	}

	// Вверх по дереву: логика та же, что и для потомков
	maxLevel := t.MaxLevel()
	if created.Level != maxLevel {
		parent, _ := created.HigherLevel(maxLevel)
		higherSections := []UniqueSectionID{parent}

		for len(higherSections) > 0 {
			higher := higherSections[len(higherSections)-1]
			higherSections = higherSections[:len(higherSections)-1]

			if _, ok := t.RelatedSections[higher]; ok {
				t.RelatedSections[higher] = append(t.RelatedSections[higher], created)
				t.RelatedSections[created] = append(t.RelatedSections[created], higher)
				continue
			}

			if grandParent, ok := higher.HigherLevel(maxLevel); ok {
				higherSections = append(higherSections, grandParent)
			}
		}
	}
}
