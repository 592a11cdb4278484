package world

import (
	"errors"
	"testing"

	"github.com/annel0/spacemmo/internal/vec"
)

// checkTreeConsistency проверяет внутренние инварианты дерева: каждая
// проиндексированная сущность присутствует ровно в своей секции, записи
// секций непусты, а граф смежности симметричен
func checkTreeConsistency(t *testing.T, tree *BoundingTree) {
	t.Helper()

	for entityID, lookup := range tree.EntityLookup {
		switch lookup.Kind {
		case LookupUnique:
			section, ok := tree.Sections[lookup.Unique]
			if !ok {
				t.Errorf("Секция сущности %d не имеет записи: %+v", entityID, lookup.Unique)
				continue
			}
			_, isLocal := section.LocalEntities[entityID]
			_, isStatic := section.StaticEntities[entityID]
			if !isLocal && !isStatic {
				t.Errorf("Сущность %d отсутствует в своей секции %+v", entityID, lookup.Unique)
			}
		case LookupShared:
			section, ok := tree.SharedSections[lookup.Shared]
			if !ok {
				t.Errorf("Общая секция сущности %d не имеет записи", entityID)
				continue
			}
			_, isLocal := section.Entities[entityID]
			_, isStatic := section.StaticEntities[entityID]
			if !isLocal && !isStatic {
				t.Errorf("Сущность %d отсутствует в своей общей секции", entityID)
			}
		}
	}

	for sectionID, section := range tree.Sections {
		if section.isEmpty() {
			t.Errorf("Пустая секция не была уничтожена: %+v", sectionID)
		}
		if _, ok := tree.RelatedSections[sectionID]; !ok {
			t.Errorf("Секция отсутствует в графе смежности: %+v", sectionID)
		}
	}

	for sectionID, related := range tree.RelatedSections {
		for _, neighbor := range related {
			if !containsSection(tree.RelatedSections[neighbor], sectionID) {
				t.Errorf("Ребро графа смежности несимметрично: %+v -> %+v", sectionID, neighbor)
			}
		}
	}
}

func TestAddEntityUnique(t *testing.T) {
	tree := newTestTree()

	if err := tree.AddEntity(1, smallAABB(), false, false, LightNone); err != nil {
		t.Fatalf("Добавление сущности внутри мира не должно возвращать ошибку: %v", err)
	}

	sectionID := NewUniqueSectionID(0, 0, 0, 0)

	lookup, ok := tree.EntityLookup[1]
	if !ok || lookup != UniqueLookup(sectionID) {
		t.Errorf("Сущность должна быть проиндексирована в секции %+v, получено %+v", sectionID, lookup)
	}

	section, ok := tree.Sections[sectionID]
	if !ok {
		t.Fatal("Запись секции должна быть создана при первой вставке")
	}
	if _, ok := section.LocalEntities[1]; !ok {
		t.Error("Динамическая сущность должна попасть в LocalEntities")
	}

	if _, changed := tree.ChangedSections[sectionID]; !changed {
		t.Error("Секция должна быть помечена изменённой")
	}

	checkTreeConsistency(t, tree)
}

func TestAddEntityShared(t *testing.T) {
	tree := newTestTree()

	// Объём пересекает границу двух секций первого уровня по оси X
	volume := largeAABB().Translate(vec.Vec3Float{X: 5})
	if err := tree.AddEntity(1, volume, false, false, LightNone); err != nil {
		t.Fatalf("Добавление сущности внутри мира не должно возвращать ошибку: %v", err)
	}

	left := NewUniqueSectionID(1, 0, 0, 0)
	right := NewUniqueSectionID(1, 1, 0, 0)
	sharedID := NewSharedSectionID([]UniqueSectionID{left, right})

	lookup, ok := tree.EntityLookup[1]
	if !ok || lookup != SharedLookup(sharedID) {
		t.Errorf("Сущность должна быть проиндексирована в общей секции, получено %+v", lookup)
	}

	shared, ok := tree.SharedSections[sharedID]
	if !ok {
		t.Fatal("Запись общей секции должна быть создана")
	}
	if _, ok := shared.Entities[1]; !ok {
		t.Error("Динамическая сущность должна попасть в Entities общей секции")
	}
	if _, ok := shared.EntityAABBs[1]; !ok {
		t.Error("Объём сущности должен быть закэширован в общей секции")
	}

	// Обе образующие секции получили запись и ссылку на общую секцию
	for _, sectionID := range []UniqueSectionID{left, right} {
		section, ok := tree.Sections[sectionID]
		if !ok {
			t.Fatalf("Образующая секция должна получить запись: %+v", sectionID)
		}
		if _, ok := section.SharedSectionIDs[sharedID]; !ok {
			t.Errorf("Образующая секция должна ссылаться на общую: %+v", sectionID)
		}
	}

	if len(tree.ReverseSharedLookup[sharedID]) != 2 {
		t.Errorf("Обратный поиск должен содержать обе образующие секции: %+v", tree.ReverseSharedLookup[sharedID])
	}

	checkTreeConsistency(t, tree)
}

func TestAddEntityOutOfBounds(t *testing.T) {
	tree := newTestTree()

	outside := cubeAABB(-10, 10)

	err := tree.AddEntity(1, outside, false, false, LightNone)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Вставка за границами мира должна возвращать ErrOutOfBounds, получено %v", err)
	}
	if len(tree.EntityLookup) != 0 {
		t.Error("Отклонённая вставка не должна менять дерево")
	}

	// С разрешением объём обрезается по границе мира
	if err := tree.AddEntity(1, outside, true, false, LightNone); err != nil {
		t.Fatalf("Разрешённая вставка не должна возвращать ошибку: %v", err)
	}
	if lookup := tree.EntityLookup[1]; lookup != UniqueLookup(NewUniqueSectionID(0, 0, 0, 0)) {
		t.Errorf("Обрезанный объём должен попасть в первую секцию, получено %+v", lookup)
	}

	checkTreeConsistency(t, tree)
}

func TestAddEntityRepeatedInsert(t *testing.T) {
	tree := newTestTree()

	if err := tree.AddEntity(1, smallAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddEntity(1, smallAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	section := tree.Sections[NewUniqueSectionID(0, 0, 0, 0)]
	if section.entityCount() != 1 {
		t.Errorf("Повторная вставка не должна дублировать сущность, в секции %d сущностей", section.entityCount())
	}

	checkTreeConsistency(t, tree)
}

func TestAddEntityRelocation(t *testing.T) {
	tree := newTestTree()

	if err := tree.AddEntity(1, smallAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	// Перенос в другую секцию убирает сущность из старого местоположения
	moved := smallAABB().Translate(vec.Vec3Float{X: 128})
	if err := tree.AddEntity(1, moved, false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	oldSection := NewUniqueSectionID(0, 0, 0, 0)
	newSection := NewUniqueSectionID(0, 4, 0, 0)

	if tree.IsSectionInExistence(oldSection) {
		t.Error("Старая секция должна быть уничтожена после переноса единственной сущности")
	}
	if lookup := tree.EntityLookup[1]; lookup != UniqueLookup(newSection) {
		t.Errorf("Сущность должна быть проиндексирована в новой секции, получено %+v", lookup)
	}

	checkTreeConsistency(t, tree)
}

func TestRemoveEntityUnique(t *testing.T) {
	tree := newTestTree()

	if err := tree.AddEntity(1, smallAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddEntity(2, smallAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	sectionID := NewUniqueSectionID(0, 0, 0, 0)

	tree.RemoveEntity(1)
	if !tree.IsSectionInExistence(sectionID) {
		t.Error("Секция с оставшимися сущностями не должна уничтожаться")
	}

	tree.RemoveEntity(2)
	if tree.IsSectionInExistence(sectionID) {
		t.Error("Опустевшая секция должна быть уничтожена")
	}
	if _, ok := tree.RelatedSections[sectionID]; ok {
		t.Error("Уничтоженная секция должна быть удалена из графа смежности")
	}
	if len(tree.EntityLookup) != 0 {
		t.Error("Удалённые сущности не должны оставаться в индексе")
	}

	checkTreeConsistency(t, tree)
}

func TestRemoveEntityShared(t *testing.T) {
	tree := newTestTree()

	volume := largeAABB().Translate(vec.Vec3Float{X: 5})
	if err := tree.AddEntity(1, volume, false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	left := NewUniqueSectionID(1, 0, 0, 0)
	right := NewUniqueSectionID(1, 1, 0, 0)
	sharedID := NewSharedSectionID([]UniqueSectionID{left, right})

	tree.RemoveEntity(1)

	if _, ok := tree.SharedSections[sharedID]; ok {
		t.Error("Опустевшая общая секция должна быть уничтожена")
	}
	if _, ok := tree.ReverseSharedLookup[sharedID]; ok {
		t.Error("Уничтоженная общая секция должна быть удалена из обратного поиска")
	}

	// Образующие секции существовали только ради ссылки на общую секцию
	// и уничтожаются каскадно
	for _, sectionID := range []UniqueSectionID{left, right} {
		if tree.IsSectionInExistence(sectionID) {
			t.Errorf("Опустевшая образующая секция должна быть уничтожена: %+v", sectionID)
		}
	}

	checkTreeConsistency(t, tree)
}

func TestRemoveEntitySharedKeepsOccupiedSections(t *testing.T) {
	tree := newTestTree()

	// Сущность 2 удерживает левую образующую секцию от уничтожения
	if err := tree.AddEntity(1, largeAABB().Translate(vec.Vec3Float{X: 5}), false, false, LightNone); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddEntity(2, largeAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	tree.RemoveEntity(1)

	left := NewUniqueSectionID(1, 0, 0, 0)
	right := NewUniqueSectionID(1, 1, 0, 0)

	if !tree.IsSectionInExistence(left) {
		t.Error("Секция с собственной сущностью должна пережить уничтожение общей секции")
	}
	if tree.IsSectionInExistence(right) {
		t.Error("Опустевшая образующая секция должна быть уничтожена")
	}

	checkTreeConsistency(t, tree)
}

func TestRemoveEntityTwice(t *testing.T) {
	tree := newTestTree()

	if err := tree.AddEntity(1, smallAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	tree.RemoveEntity(1)
	// Повторное удаление не должно паниковать и менять дерево
	tree.RemoveEntity(1)

	if len(tree.EntityLookup) != 0 || len(tree.Sections) != 0 {
		t.Error("После удаления всех сущностей дерево должно быть пустым")
	}
}

func TestRelationshipGraph(t *testing.T) {
	tree := newTestTree()

	// Секции связываются только по вертикали: (0,0,0,0) вложена в (1,0,0,0)
	if err := tree.AddEntity(1, smallAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddEntity(2, largeAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	small := NewUniqueSectionID(0, 0, 0, 0)
	large := NewUniqueSectionID(1, 0, 0, 0)

	if !containsSection(tree.RelatedSections[small], large) {
		t.Error("Вложенная секция должна ссылаться на объемлющую")
	}
	if !containsSection(tree.RelatedSections[large], small) {
		t.Error("Объемлющая секция должна ссылаться на вложенную")
	}

	// Секция второго уровня связывается с ближайшим занятым потомком,
	// а не со всеми секциями ветви
	if err := tree.AddEntity(3, veryLargeAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	veryLarge := NewUniqueSectionID(2, 0, 0, 0)

	if !containsSection(tree.RelatedSections[veryLarge], large) {
		t.Error("Новая объемлющая секция должна связаться с ближайшим занятым потомком")
	}
	if containsSection(tree.RelatedSections[veryLarge], small) {
		t.Error("Связь не должна перескакивать через занятую промежуточную секцию")
	}

	checkTreeConsistency(t, tree)
}

func TestRelationshipGraphSkipsEmptyLevels(t *testing.T) {
	tree := newTestTree()

	// Промежуточный уровень 1 пуст, поэтому секции уровней 0 и 2
	// связываются напрямую
	if err := tree.AddEntity(1, smallAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddEntity(2, veryLargeAABB(), false, false, LightNone); err != nil {
		t.Fatal(err)
	}

	small := NewUniqueSectionID(0, 0, 0, 0)
	veryLarge := NewUniqueSectionID(2, 0, 0, 0)

	if !containsSection(tree.RelatedSections[small], veryLarge) {
		t.Error("Связь должна перескакивать пустой промежуточный уровень")
	}

	checkTreeConsistency(t, tree)
}
