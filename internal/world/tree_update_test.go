package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/spacemmo/internal/vec"
	"github.com/annel0/spacemmo/internal/world/bounds"
)

// aabbStore простое хранилище объёмов сущностей для тестов пересчёта
type aabbStore map[EntityID]bounds.AABB

func (s aabbStore) EntityAABB(id EntityID) (bounds.AABB, bool) {
	aabb, ok := s[id]
	return aabb, ok
}

func TestEndOfChangesRecombinesUniqueSection(t *testing.T) {
	tree := newTestTree()
	store := aabbStore{}

	// Две сущности в одной атомарной секции с разными объёмами
	first := cubeAABB(0, 5)
	second := cubeAABB(10, 20)
	store[1], store[2] = first, second

	require.NoError(t, tree.AddEntity(1, first, false, false, LightNone))
	require.NoError(t, tree.AddEntity(2, second, false, false, LightNone))

	tree.EndOfChanges(store)

	section := tree.Sections[NewUniqueSectionID(0, 0, 0, 0)]
	assert.Equal(t, cubeAABB(0, 20), section.AABB,
		"Объём секции должен быть объединением объёмов её сущностей")

	assert.Empty(t, tree.ChangedSections, "Список изменённых секций должен быть очищен")
	assert.Empty(t, tree.ChangedSharedSections, "Список изменённых общих секций должен быть очищен")
	assert.Zero(t, tree.TotalAABBCombining, "Счётчик работы должен быть сброшен")
}

func TestEndOfChangesRecombinesSharedSection(t *testing.T) {
	tree := newTestTree()
	store := aabbStore{}

	volume := largeAABB().Translate(vec.Vec3Float{X: 5})
	store[1] = volume

	require.NoError(t, tree.AddEntity(1, volume, false, false, LightNone))

	tree.EndOfChanges(store)

	sharedID := NewSharedSectionID([]UniqueSectionID{
		NewUniqueSectionID(1, 0, 0, 0),
		NewUniqueSectionID(1, 1, 0, 0),
	})
	shared := tree.SharedSections[sharedID]
	require.NotNil(t, shared)
	assert.Equal(t, volume, shared.AABB,
		"Объём общей секции должен быть объединением объёмов её сущностей")
}

func TestEndOfChangesFallsBackToSectionGeometry(t *testing.T) {
	tree := newTestTree()
	store := aabbStore{}

	// Секция нулевого уровня переполнена: больше сущностей, чем допускает
	// порог точного пересчёта
	for i := EntityID(1); i <= 25; i++ {
		volume := cubeAABB(0, 5)
		store[i] = volume
		require.NoError(t, tree.AddEntity(i, volume, false, false, LightNone))
	}

	// Накопленный объём работы превышает предел на кадр
	tree.TotalAABBCombining = maxTotalAABBCombining + 1

	tree.EndOfChanges(store)

	sectionID := NewUniqueSectionID(0, 0, 0, 0)
	section := tree.Sections[sectionID]
	assert.Equal(t, sectionID.ToAABB(testAtomic), section.AABB,
		"Переполненная секция должна получить запасной геометрический объём")
}

func TestEndOfChangesMissingEntityPanics(t *testing.T) {
	tree := newTestTree()

	require.NoError(t, tree.AddEntity(1, smallAABB(), false, false, LightNone))

	assert.Panics(t, func() {
		tree.EndOfChanges(aabbStore{})
	}, "Пересчёт без объёма сущности в хранилище должен вызывать панику")
}

func TestStaticSectionClassification(t *testing.T) {
	tree := newTestTree()
	store := aabbStore{}

	volume := smallAABB()
	store[1] = volume

	require.NoError(t, tree.AddEntity(1, volume, false, true, LightNone))
	tree.EndOfChanges(store)

	sectionID := NewUniqueSectionID(0, 0, 0, 0)
	assert.False(t, tree.IsSectionActive(sectionID),
		"Секция только со статическими сущностями должна стать статической")
	assert.True(t, tree.IsSectionInExistence(sectionID))

	// Появление динамической сущности возвращает секцию в активные
	dynamic := cubeAABB(10, 20)
	store[2] = dynamic
	require.NoError(t, tree.AddEntity(2, dynamic, false, false, LightNone))
	tree.EndOfChanges(store)

	assert.True(t, tree.IsSectionActive(sectionID),
		"Секция с динамической сущностью должна быть активной")

	// Уход динамической сущности снова делает секцию статической
	tree.RemoveEntity(2)
	tree.EndOfChanges(store)

	assert.False(t, tree.IsSectionActive(sectionID))
}

func TestStaticClassificationWithSharedSection(t *testing.T) {
	tree := newTestTree()
	store := aabbStore{}

	// Статическая сущность в общей секции: образующие секции без
	// собственных динамических сущностей становятся статическими
	volume := largeAABB().Translate(vec.Vec3Float{X: 5})
	store[1] = volume
	require.NoError(t, tree.AddEntity(1, volume, false, true, LightNone))
	tree.EndOfChanges(store)

	left := NewUniqueSectionID(1, 0, 0, 0)
	right := NewUniqueSectionID(1, 1, 0, 0)

	assert.False(t, tree.IsSectionActive(left))
	assert.False(t, tree.IsSectionActive(right))

	// Динамическая сущность в общей секции активирует все образующие секции
	store[2] = volume.Translate(vec.Vec3Float{X: 1})
	require.NoError(t, tree.AddEntity(2, store[2], false, false, LightNone))
	tree.EndOfChanges(store)

	assert.True(t, tree.IsSectionActive(left))
	assert.True(t, tree.IsSectionActive(right))
}

func TestIsEntityStatic(t *testing.T) {
	tree := newTestTree()

	require.NoError(t, tree.AddEntity(1, smallAABB(), false, true, LightNone))
	require.NoError(t, tree.AddEntity(2, cubeAABB(10, 20), false, false, LightNone))

	isStatic, ok := tree.IsEntityStatic(1)
	assert.True(t, ok)
	assert.True(t, isStatic, "Статическая сущность должна определяться как статическая")

	isStatic, ok = tree.IsEntityStatic(2)
	assert.True(t, ok)
	assert.False(t, isStatic, "Динамическая сущность не должна определяться как статическая")

	_, ok = tree.IsEntityStatic(99)
	assert.False(t, ok, "Непроиндексированная сущность должна возвращать false")
}

func TestChangedStaticSections(t *testing.T) {
	tree := newTestTree()

	require.NoError(t, tree.AddEntity(1, smallAABB(), false, true, LightNone))

	sectionID := NewUniqueSectionID(0, 0, 0, 0)
	_, changed := tree.ChangedStaticUnique()[sectionID]
	assert.True(t, changed, "Вставка статической сущности должна пометить секцию")

	tree.ClearChangedStaticUnique()
	assert.Empty(t, tree.ChangedStaticUnique())

	tree.RemoveEntity(1)
	_, changed = tree.ChangedStaticUnique()[sectionID]
	assert.True(t, changed, "Удаление статической сущности должно пометить секцию")
}
