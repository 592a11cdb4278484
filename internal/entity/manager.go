package entity

import (
	"fmt"
	"sync"

	"github.com/annel0/spacemmo/internal/culling"
	"github.com/annel0/spacemmo/internal/vec"
	"github.com/annel0/spacemmo/internal/world"
	"github.com/annel0/spacemmo/internal/world/bounds"
)

// Entity игровая сущность: занимаемый объём и свойства, влияющие на
// её размещение в пространственном индексе
type Entity struct {
	ID     world.EntityID
	Volume bounds.AABB
	Static bool
	Light  world.LightType
}

// Manager владеет сущностями мира и пространственным индексом. Дерево секций
// не имеет внутренних блокировок, поэтому все операции над ним проходят
// через мьютекс менеджера
type Manager struct {
	mu       sync.RWMutex
	entities map[world.EntityID]*Entity
	tree     *world.BoundingTree
	nextID   world.EntityID
}

// NewManager создаёт менеджер сущностей поверх дерева секций
func NewManager(tree *world.BoundingTree) *Manager {
	return &Manager{
		entities: make(map[world.EntityID]*Entity),
		tree:     tree,
		nextID:   1,
	}
}

// Spawn создаёт сущность и индексирует её в дереве секций
func (m *Manager) Spawn(volume bounds.AABB, static bool, light world.LightType) (world.EntityID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID

	if err := m.tree.AddEntity(id, volume, false, static, light); err != nil {
		return 0, fmt.Errorf("не удалось проиндексировать сущность: %w", err)
	}

	m.nextID++
	m.entities[id] = &Entity{
		ID:     id,
		Volume: volume,
		Static: static,
		Light:  light,
	}

	return id, nil
}

// Move сдвигает сущность на указанный вектор и переиндексирует её.
// Объём, выходящий за границы мира, обрезается
func (m *Manager) Move(id world.EntityID, delta vec.Vec3Float) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entity, ok := m.entities[id]
	if !ok {
		return fmt.Errorf("сущность %d не существует", id)
	}

	moved := entity.Volume.Translate(delta)
	if err := m.tree.AddEntity(id, moved, true, entity.Static, entity.Light); err != nil {
		return fmt.Errorf("не удалось переиндексировать сущность: %w", err)
	}

	clamped, _ := moved.ClampToWorld(float32(m.tree.OutlineLength()))
	entity.Volume = clamped

	return nil
}

// Remove удаляет сущность из мира. Удаление несуществующей сущности
// ничего не делает
func (m *Manager) Remove(id world.EntityID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree.RemoveEntity(id)
	delete(m.entities, id)
}

// Get возвращает копию сущности по идентификатору
func (m *Manager) Get(id world.EntityID) (Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entity, ok := m.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *entity, true
}

// Count возвращает количество сущностей в мире
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// EntityAABB реализует world.VolumeAccessor для пересчёта объёмов секций
func (m *Manager) EntityAABB(id world.EntityID) (bounds.AABB, bool) {
	entity, ok := m.entities[id]
	if !ok {
		return bounds.AABB{}, false
	}
	return entity.Volume, true
}

// EndOfFrame завершает кадр: пересчитывает объёмы изменённых секций и
// классификацию статических секций
func (m *Manager) EndOfFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Доступ к объёмам идёт без повторного захвата мьютекса: EntityAABB
	// вызывается только отсюда и из тестов
	m.tree.EndOfChanges(m)
}

// FindVisible возвращает сущности из заданных секций и связанных с ними,
// применяя переданные проверки видимости
func (m *Manager) FindVisible(seedSections []world.UniqueSectionID, deciders ...culling.TraversalDecider) []world.RelatedEntityResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tree.FindRelatedEntities(seedSections, deciders...)
}

// FindInView обрезает область по границам мира, собирает существующие
// секции, чья геометрия её пересекает, и выполняет обход от них. Сбор
// стартовых секций и обход идут под одной блокировкой чтения, поэтому
// секция не может исчезнуть между этими шагами
func (m *Manager) FindInView(view bounds.AABB, deciders ...culling.TraversalDecider) []world.RelatedEntityResult {
	view, _ = view.ClampToWorld(float32(m.tree.OutlineLength()))

	m.mu.RLock()
	defer m.mu.RUnlock()

	atomic := m.tree.AtomicSectionLength()
	var seeds []world.UniqueSectionID
	for sectionID := range m.tree.Sections {
		if sectionID.ToAABB(atomic).Intersects(view) {
			seeds = append(seeds, sectionID)
		}
	}

	return m.tree.FindRelatedEntities(seeds, deciders...)
}

// WorldStats сводка состояния мира для метрик и API
type WorldStats struct {
	OutlineLength  uint32
	AtomicLength   uint32
	MaxLevel       uint16
	Entities       int
	Sections       int
	SharedSections int
	StaticSections int
	LitSections    int
}

// Stats снимает сводку состояния мира под блокировкой чтения
func (m *Manager) Stats() WorldStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return WorldStats{
		OutlineLength:  m.tree.OutlineLength(),
		AtomicLength:   m.tree.AtomicSectionLength(),
		MaxLevel:       m.tree.MaxLevel(),
		Entities:       len(m.entities),
		Sections:       len(m.tree.Sections),
		SharedSections: len(m.tree.SharedSections),
		StaticSections: len(m.tree.StaticSections),
		LitSections:    len(m.tree.UniqueSectionsWithLights()),
	}
}

// OutlineLength возвращает длину мира по каждой оси. Геометрия мира
// неизменна после создания дерева, блокировка не нужна
func (m *Manager) OutlineLength() uint32 {
	return m.tree.OutlineLength()
}

// AtomicSectionLength возвращает наименьшую длину секции мира
func (m *Manager) AtomicSectionLength() uint32 {
	return m.tree.AtomicSectionLength()
}

// Tree возвращает пространственный индекс мира. Использовать только там,
// где с миром работает ровно одна горутина (загрузка, тесты): дерево не
// имеет собственных блокировок
func (m *Manager) Tree() *world.BoundingTree {
	return m.tree
}

// Snapshot возвращает сериализуемое состояние мира. Снимок ссылается на
// живое дерево, поэтому сериализовать его параллельно с изменениями мира
// нельзя — для этого есть WithSnapshot
func (m *Manager) Snapshot() *WorldSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.snapshotLocked()
}

// WithSnapshot держит блокировку чтения на время работы fn, чтобы снимок
// можно было сериализовать, пока мир не изменяется
func (m *Manager) WithSnapshot(fn func(*WorldSnapshot) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(m.snapshotLocked())
}

func (m *Manager) snapshotLocked() *WorldSnapshot {
	entities := make(map[world.EntityID]Entity, len(m.entities))
	for id, entity := range m.entities {
		entities[id] = *entity
	}

	return &WorldSnapshot{
		Tree:     m.tree,
		Entities: entities,
		NextID:   m.nextID,
	}
}

// RestoreManager восстанавливает менеджер из снимка состояния мира
func RestoreManager(snapshot *WorldSnapshot) *Manager {
	entities := make(map[world.EntityID]*Entity, len(snapshot.Entities))
	for id, entity := range snapshot.Entities {
		copied := entity
		entities[id] = &copied
	}

	return &Manager{
		entities: entities,
		tree:     snapshot.Tree,
		nextID:   snapshot.NextID,
	}
}

// WorldSnapshot полное состояние мира: дерево секций и сущности
type WorldSnapshot struct {
	Tree     *world.BoundingTree
	Entities map[world.EntityID]Entity
	NextID   world.EntityID
}
