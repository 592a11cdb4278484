package entity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/spacemmo/internal/vec"
	"github.com/annel0/spacemmo/internal/world"
	"github.com/annel0/spacemmo/internal/world/bounds"
)

func newTestManager() *Manager {
	return NewManager(world.NewBoundingTree(256, 32))
}

func testVolume(min, max float32) bounds.AABB {
	return bounds.NewAABB(
		bounds.NewRange(min, max),
		bounds.NewRange(min, max),
		bounds.NewRange(min, max),
	)
}

func TestManagerSpawnAndGet(t *testing.T) {
	m := newTestManager()

	id, err := m.Spawn(testVolume(0, 10), false, world.LightNone)
	require.NoError(t, err)

	entity, ok := m.Get(id)
	require.True(t, ok, "Созданная сущность должна находиться по идентификатору")
	assert.Equal(t, testVolume(0, 10), entity.Volume)
	assert.False(t, entity.Static)

	// Сущность проиндексирована в дереве
	_, indexed := m.Tree().EntityLookup[id]
	assert.True(t, indexed, "Сущность должна быть проиндексирована в дереве секций")
}

func TestManagerSpawnOutOfBounds(t *testing.T) {
	m := newTestManager()

	_, err := m.Spawn(testVolume(-10, 10), false, world.LightNone)
	assert.Error(t, err, "Создание сущности за границами мира должно завершаться ошибкой")
	assert.Zero(t, m.Count())
}

func TestManagerMove(t *testing.T) {
	m := newTestManager()

	id, err := m.Spawn(testVolume(0, 10), false, world.LightNone)
	require.NoError(t, err)

	require.NoError(t, m.Move(id, vec.Vec3Float{X: 128}))

	entity, _ := m.Get(id)
	assert.Equal(t, float32(128), entity.Volume.X.Min)

	// Переиндексация перенесла сущность в новую секцию
	lookup := m.Tree().EntityLookup[id]
	assert.Equal(t, world.UniqueLookup(world.NewUniqueSectionID(0, 4, 0, 0)), lookup)
}

func TestManagerMoveClampsAtWorldEdge(t *testing.T) {
	m := newTestManager()

	id, err := m.Spawn(testVolume(230, 240), false, world.LightNone)
	require.NoError(t, err)

	// Сдвиг за границу мира обрезает объём, но не теряет сущность
	require.NoError(t, m.Move(id, vec.Vec3Float{X: 20}))

	entity, _ := m.Get(id)
	assert.Equal(t, float32(256), entity.Volume.X.Max)

	_, indexed := m.Tree().EntityLookup[id]
	assert.True(t, indexed)
}

func TestManagerRemove(t *testing.T) {
	m := newTestManager()

	id, err := m.Spawn(testVolume(0, 10), false, world.LightNone)
	require.NoError(t, err)

	m.Remove(id)

	_, ok := m.Get(id)
	assert.False(t, ok)
	assert.Empty(t, m.Tree().EntityLookup, "Удалённая сущность не должна оставаться в индексе")

	// Повторное удаление безопасно
	m.Remove(id)
}

func TestManagerEndOfFrame(t *testing.T) {
	m := newTestManager()

	_, err := m.Spawn(testVolume(0, 5), false, world.LightNone)
	require.NoError(t, err)
	_, err = m.Spawn(testVolume(10, 20), false, world.LightNone)
	require.NoError(t, err)

	m.EndOfFrame()

	section := m.Tree().Sections[world.NewUniqueSectionID(0, 0, 0, 0)]
	require.NotNil(t, section)
	assert.Equal(t, testVolume(0, 20), section.AABB,
		"Кадровый пересчёт должен объединить объёмы сущностей секции")
}

func TestManagerFindVisible(t *testing.T) {
	m := newTestManager()

	id, err := m.Spawn(testVolume(0, 10), false, world.LightNone)
	require.NoError(t, err)

	results := m.FindVisible([]world.UniqueSectionID{world.NewUniqueSectionID(0, 0, 0, 0)})
	require.Len(t, results, 1)
	_, found := results[0].Entities[id]
	assert.True(t, found)
}

func TestManagerFindInView(t *testing.T) {
	m := newTestManager()

	inside, err := m.Spawn(testVolume(100, 110), false, world.LightNone)
	require.NoError(t, err)
	outside, err := m.Spawn(testVolume(0, 10), false, world.LightNone)
	require.NoError(t, err)

	// Область вокруг первой сущности; секция второй её не пересекает
	view := bounds.NewAABB(
		bounds.NewRange(90, 130),
		bounds.NewRange(90, 130),
		bounds.NewRange(90, 130),
	)

	results := m.FindInView(view)
	require.Len(t, results, 1)
	_, found := results[0].Entities[inside]
	assert.True(t, found)
	_, found = results[0].Entities[outside]
	assert.False(t, found)

	// Область вне всех существующих секций ничего не находит
	empty := m.FindInView(bounds.NewAABB(
		bounds.NewRange(200, 210),
		bounds.NewRange(200, 210),
		bounds.NewRange(200, 210),
	))
	assert.Empty(t, empty)
}

func TestManagerStats(t *testing.T) {
	m := newTestManager()

	_, err := m.Spawn(testVolume(0, 10), true, world.LightPoint)
	require.NoError(t, err)
	_, err = m.Spawn(testVolume(100, 110), false, world.LightNone)
	require.NoError(t, err)
	m.EndOfFrame()

	stats := m.Stats()
	assert.Equal(t, uint32(256), stats.OutlineLength)
	assert.Equal(t, uint32(32), stats.AtomicLength)
	assert.Equal(t, uint16(3), stats.MaxLevel)
	assert.Equal(t, 2, stats.Entities)
	assert.Equal(t, 2, stats.Sections)
	assert.Equal(t, 1, stats.StaticSections)
	assert.Equal(t, 1, stats.LitSections)
}

// Читатели (сводка, обход области, сериализация снимка) конкурируют с
// писателями (создание, перемещение, удаление, завершение кадра); под
// -race гонка по картам дерева проявилась бы здесь
func TestManagerConcurrentReadersAndWriters(t *testing.T) {
	m := newTestManager()

	var wg sync.WaitGroup
	start := make(chan struct{})

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(offset float32) {
			defer wg.Done()
			<-start
			for i := 0; i < 50; i++ {
				id, err := m.Spawn(testVolume(offset, offset+10), false, world.LightPoint)
				if err != nil {
					continue
				}
				_ = m.Move(id, vec.Vec3Float{X: 1})
				if i%2 == 0 {
					m.Remove(id)
				}
			}
		}(float32(w * 40))
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			view := bounds.NewAABB(
				bounds.NewRange(0, 256),
				bounds.NewRange(0, 256),
				bounds.NewRange(0, 256),
			)
			for i := 0; i < 50; i++ {
				_ = m.Stats()
				_ = m.FindInView(view)
				_ = m.WithSnapshot(func(snapshot *WorldSnapshot) error {
					_ = len(snapshot.Entities)
					return nil
				})
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 50; i++ {
			m.EndOfFrame()
		}
	}()

	close(start)
	wg.Wait()

	m.EndOfFrame()
	assert.Equal(t, m.Count(), len(m.Tree().EntityLookup),
		"После конкурентной нагрузки индекс и список сущностей должны совпадать")
}

func TestManagerSnapshotRestore(t *testing.T) {
	m := newTestManager()

	first, err := m.Spawn(testVolume(0, 10), false, world.LightPoint)
	require.NoError(t, err)
	second, err := m.Spawn(testVolume(100, 120), true, world.LightNone)
	require.NoError(t, err)

	restored := RestoreManager(m.Snapshot())

	assert.Equal(t, m.Count(), restored.Count())

	entity, ok := restored.Get(first)
	require.True(t, ok)
	assert.Equal(t, world.LightPoint, entity.Light)

	entity, ok = restored.Get(second)
	require.True(t, ok)
	assert.True(t, entity.Static)

	// Новые сущности не конфликтуют идентификаторами со старыми
	third, err := restored.Spawn(testVolume(50, 60), false, world.LightNone)
	require.NoError(t, err)
	assert.Greater(t, third, second)
}
