package world

import (
	"math"

	"github.com/annel0/spacemmo/internal/world/bounds"
)

// BoundingTree отслеживает, в каких секциях игрового мира находятся сущности.
// Мир кубический, занимает пространство [0, outlineLength] по каждой оси и
// иерархически делится на секции: уровень 0 имеет атомарную длину стороны,
// каждый следующий уровень удваивает её.
//
// Все операции изменения (AddEntity, RemoveEntity, EndOfChanges) требуют
// эксклюзивного доступа: дерево не содержит внутренних блокировок и
// рассчитано на одного писателя за кадр. Читать (FindRelatedEntities и
// запросы секций) безопасно только при отсутствии изменений.
//
// Все поля экспортированы для сериализации дерева единым блобом; напрямую
// изменять их снаружи нельзя
type BoundingTree struct {
	// EntityLookup единственный источник истины о местоположении сущности
	EntityLookup map[EntityID]SectionLookup
	// Sections записи уникальных секций; запись существует тогда и только
	// тогда, когда секция содержит сущности или ссылается на общую секцию
	Sections map[UniqueSectionID]*UniqueSectionEntities
	// RelatedSections граф смежности: для каждой существующей секции —
	// существующие секции-предки и секции-потомки
	RelatedSections map[UniqueSectionID][]UniqueSectionID
	// SharedSections записи общих секций; существуют, пока непусты
	SharedSections map[SharedSectionID]*SharedSectionEntities
	// ReverseSharedLookup какие уникальные секции ссылаются на общую секцию;
	// используется при каскадном удалении
	ReverseSharedLookup map[SharedSectionID][]UniqueSectionID
	// SectionsWithLights уникальные секции с источниками света; позволяет
	// потоку теней не сканировать все секции при поиске ближайших источников
	SectionsWithLights map[UniqueSectionID]struct{}
	// SharedSectionLights общие секции с источниками света. Записи только
	// добавляются: набор не чистится ни при потере последнего источника,
	// ни при уничтожении секции, поэтому isKeyToSharedLight может удерживать
	// уникальную секцию в SectionsWithLights и после исчезновения света
	SharedSectionLights map[SharedSectionID]struct{}
	// StaticSections секции без активных сущностей, пропускаемые логикой кадра
	StaticSections map[UniqueSectionID]struct{}
	// ChangedStaticSections секции, чей набор статических сущностей изменился
	ChangedStaticSections map[UniqueSectionID]struct{}

	// WorldOutlineLength длина игрового мира по каждой оси
	WorldOutlineLength uint32
	// AtomicLength наименьшая длина секции (уровень 0)
	AtomicLength uint32

	// ChangedSharedSections общие секции, изменённые в текущем кадре
	ChangedSharedSections map[SharedSectionID]struct{}
	// ChangedSections уникальные секции, изменённые в текущем кадре
	ChangedSections map[UniqueSectionID]struct{}
	// TotalAABBCombining накопленный объём работы по пересчёту AABB за кадр
	TotalAABBCombining uint32
}

// NewBoundingTree создаёт дерево, представляющее игровой мир с указанными
// параметрами
//
// outlineLength — граница игрового мира, пространство [0, outlineLength]
// atomicSectionLength — наименьшая длина секции, на которые делится мир
func NewBoundingTree(outlineLength, atomicSectionLength uint32) *BoundingTree {
	return &BoundingTree{
		EntityLookup:          make(map[EntityID]SectionLookup),
		Sections:              make(map[UniqueSectionID]*UniqueSectionEntities),
		RelatedSections:       make(map[UniqueSectionID][]UniqueSectionID),
		SharedSections:        make(map[SharedSectionID]*SharedSectionEntities),
		ReverseSharedLookup:   make(map[SharedSectionID][]UniqueSectionID),
		SectionsWithLights:    make(map[UniqueSectionID]struct{}),
		SharedSectionLights:   make(map[SharedSectionID]struct{}),
		StaticSections:        make(map[UniqueSectionID]struct{}),
		ChangedStaticSections: make(map[UniqueSectionID]struct{}),
		WorldOutlineLength:    outlineLength,
		AtomicLength:          atomicSectionLength,
		ChangedSharedSections: make(map[SharedSectionID]struct{}),
		ChangedSections:       make(map[UniqueSectionID]struct{}),
	}
}

// IsSectionInExistence проверяет, существует ли секция: есть ли в ней
// сущности или ссылки на общие секции
func (t *BoundingTree) IsSectionInExistence(section UniqueSectionID) bool {
	_, ok := t.Sections[section]
	return ok
}

// IsSectionActive проверяет, есть ли в секции сущности, требующие
// обновления логики
func (t *BoundingTree) IsSectionActive(section UniqueSectionID) bool {
	if _, ok := t.Sections[section]; !ok {
		return false
	}

	_, isStatic := t.StaticSections[section]
	return !isStatic
}

// ChangedStaticUnique возвращает секции, чей набор статических сущностей
// изменился с момента последней очистки
func (t *BoundingTree) ChangedStaticUnique() map[UniqueSectionID]struct{} {
	return t.ChangedStaticSections
}

// ClearChangedStaticUnique очищает список изменённых статических секций
func (t *BoundingTree) ClearChangedStaticUnique() {
	clear(t.ChangedStaticSections)
}

// IsEntityStatic определяет, является ли сущность статической.
// Возвращает false вторым значением, если сущность не проиндексирована
func (t *BoundingTree) IsEntityStatic(entityID EntityID) (bool, bool) {
	lookup, ok := t.EntityLookup[entityID]
	if !ok {
		return false, false
	}

	switch lookup.Kind {
	case LookupUnique:
		section, ok := t.Sections[lookup.Unique]
		if !ok {
			return false, false
		}
		_, isStatic := section.StaticEntities[entityID]
		return isStatic, true
	default:
		section, ok := t.SharedSections[lookup.Shared]
		if !ok {
			return false, false
		}
		_, isStatic := section.StaticEntities[entityID]
		return isStatic, true
	}
}

// UniqueSectionsWithLights возвращает секции, в которых есть источники света
func (t *BoundingTree) UniqueSectionsWithLights() map[UniqueSectionID]struct{} {
	return t.SectionsWithLights
}

// OutlineLength возвращает длину игрового мира, представляемого деревом
func (t *BoundingTree) OutlineLength() uint32 {
	return t.WorldOutlineLength
}

// AtomicSectionLength возвращает наименьшую длину секции мира
func (t *BoundingTree) AtomicSectionLength() uint32 {
	return t.AtomicLength
}

// MaxLevel возвращает максимальный уровень дерева
func (t *BoundingTree) MaxLevel() uint16 {
	return uint16(math.Ceil(math.Log2(float64(t.WorldOutlineLength) / float64(t.AtomicLength))))
}

// FindAllUniqueSectionIDs возвращает все уникальные секции, частично
// покрывающие заданный ограничивающий объём. Уровень секций подбирается
// наименьшим, при котором объём по размеру помещается в одну секцию;
// за счёт позиции объём может занять от 1 до 8 секций этого уровня
func (t *BoundingTree) FindAllUniqueSectionIDs(volume bounds.AABB) []UniqueSectionID {
	level, adjustedLength := findLevelFromSize(volume, t.AtomicLength)

	// В зависимости от позиции объём может пересекать границу секций,
	// поэтому количество требуемых секций вычисляется по каждой оси отдельно
	numX, numY, numZ := sectionsSpanned(adjustedLength, volume)

	sectionIDs := make([]UniqueSectionID, 0, numX*numY*numZ)

	for x := uint32(0); x < numX; x++ {
		for y := uint32(0); y < numY; y++ {
			for z := uint32(0); z < numZ; z++ {
				indexX, indexY, indexZ := sectionIndexes(x, y, z, volume, adjustedLength)

				sectionIDs = append(sectionIDs, NewUniqueSectionID(
					level,
					uint16(indexX),
					uint16(indexZ),
					uint16(indexY),
				))
			}
		}
	}

	if len(sectionIDs) > maxContributingSections {
		panic("объём занял больше восьми секций на подобранном уровне")
	}

	return sectionIDs
}

// findUniqueSectionID находит секцию, полностью вмещающую объём. Вызывается
// только когда объём заведомо лежит в одной секции
func findUniqueSectionID(volume bounds.AABB, atomicLength uint32) UniqueSectionID {
	level, adjustedLength := findLevelFromOrigin(volume, atomicLength)

	x := uint32(volume.X.Min) / adjustedLength
	z := uint32(volume.Z.Min) / adjustedLength
	y := uint32(volume.Y.Min) / adjustedLength

	return NewUniqueSectionID(level, uint16(x), uint16(z), uint16(y))
}

// findLevelFromSize находит уровень секции по размеру объёма, мысленно
// перенося его в начало координат, чтобы позиция не влияла на результат
func findLevelFromSize(volume bounds.AABB, atomicLength uint32) (uint16, uint32) {
	anchored := bounds.NewAABB(
		bounds.NewRange(0, volume.X.Length()),
		bounds.NewRange(0, volume.Y.Length()),
		bounds.NewRange(0, volume.Z.Length()),
	)

	return findLevelFromOrigin(anchored, atomicLength)
}

// findLevelFromOrigin удваивает длину секции начиная с атомарной, пока объём
// не поместится ровно в одну секцию. Возвращает уровень и длину секции
// на этом уровне
func findLevelFromOrigin(volume bounds.AABB, atomicLength uint32) (uint16, uint32) {
	adjustedLength := atomicLength
	level := uint16(0)

	for sectionsSpannedTotal(adjustedLength, volume) > 1 {
		adjustedLength *= 2
		level++
	}

	return level, adjustedLength
}

// sectionsSpannedTotal общее количество секций уровня, занимаемых объёмом
func sectionsSpannedTotal(levelLength uint32, volume bounds.AABB) uint32 {
	numX, numY, numZ := sectionsSpanned(levelLength, volume)
	return numX * numY * numZ
}

// sectionsSpanned количество секций уровня, занимаемых объёмом, по каждой оси
func sectionsSpanned(levelLength uint32, volume bounds.AABB) (uint32, uint32, uint32) {
	return sectionsSpannedInAxis(volume.X, levelLength),
		sectionsSpannedInAxis(volume.Y, levelLength),
		sectionsSpannedInAxis(volume.Z, levelLength)
}

// sectionsSpannedInAxis количество секций уровня, покрывающих диапазон
func sectionsSpannedInAxis(r bounds.Range, levelLength uint32) uint32 {
	length := float32(levelLength)
	min, max := r.Min, r.Max

	// Обе точки в одной секции. Эта проверка обязана идти первой
	if math.Trunc(float64(min/length)) == math.Trunc(float64(max/length)) {
		return 1
	}

	// Если начало диапазона не выровнено по границе секции, засчитываем
	// одну секцию и сдвигаем начало к ближайшей границе
	var count uint32
	if ceil := float32(math.Ceil(float64(min / length))); ceil > min/length {
		min = ceil * length
		count = 1
	}

	// Двигаем начало, пока оно не пройдёт конец диапазона
	for min < max {
		count++
		min += length
	}

	return count
}

// sectionIndexes смещения секции, содержащей ближайшую к началу координат
// точку части объёма с индексами (x, y, z)
func sectionIndexes(x, y, z uint32, volume bounds.AABB, levelLength uint32) (uint32, uint32, uint32) {
	pointX := uint32(volume.X.Min) + levelLength*x
	pointY := uint32(volume.Y.Min) + levelLength*y
	pointZ := uint32(volume.Z.Min) + levelLength*z

	return pointX / levelLength, pointY / levelLength, pointZ / levelLength
}
