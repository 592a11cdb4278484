package world

import (
	"fmt"
	"sort"

	"github.com/annel0/spacemmo/internal/world/bounds"
)

// EntityID уникальный идентификатор сущности в мире
type EntityID uint64

// sectionOffsets смещения секции на своём уровне по каждой оси
type sectionOffsets struct {
	X uint16
	Z uint16
	Y uint16
}

// UniqueSectionID уникальный идентификатор секции игрового мира.
// Уровень 0 соответствует атомарному размеру секции; каждый следующий
// уровень удваивает длину стороны и вдвое уменьшает смещения
type UniqueSectionID struct {
	Level uint16
	X     uint16
	Z     uint16
	Y     uint16
}

// NewUniqueSectionID создаёт идентификатор секции по уровню и смещениям
func NewUniqueSectionID(level, x, z, y uint16) UniqueSectionID {
	return UniqueSectionID{Level: level, X: x, Z: z, Y: y}
}

// HigherLevel возвращает секцию следующего, более крупного уровня, которая
// содержит данную. Если секция уже на максимальном уровне, возвращается false
func (id UniqueSectionID) HigherLevel(maxLevel uint16) (UniqueSectionID, bool) {
	if id.Level == maxLevel {
		return UniqueSectionID{}, false
	}

	return UniqueSectionID{
		Level: id.Level + 1,
		X:     id.X / 2,
		Z:     id.Z / 2,
		Y:     id.Y / 2,
	}, true
}

// LowerLevel возвращает восемь дочерних секций на уровень ниже.
// На уровне 0 дочерних секций нет, возвращается false
func (id UniqueSectionID) LowerLevel() ([8]UniqueSectionID, bool) {
	if id.Level == 0 {
		return [8]UniqueSectionID{}, false
	}

	baseX := id.X * 2
	baseZ := id.Z * 2
	baseY := id.Y * 2

	return [8]UniqueSectionID{
		NewUniqueSectionID(id.Level-1, baseX, baseZ, baseY),
		NewUniqueSectionID(id.Level-1, baseX+1, baseZ, baseY),
		NewUniqueSectionID(id.Level-1, baseX, baseZ+1, baseY),
		NewUniqueSectionID(id.Level-1, baseX+1, baseZ+1, baseY),

		NewUniqueSectionID(id.Level-1, baseX, baseZ, baseY+1),
		NewUniqueSectionID(id.Level-1, baseX+1, baseZ, baseY+1),
		NewUniqueSectionID(id.Level-1, baseX, baseZ+1, baseY+1),
		NewUniqueSectionID(id.Level-1, baseX+1, baseZ+1, baseY+1),
	}, true
}

// ToAABB возвращает геометрический объём, занимаемый секцией в мире
//
// atomicLength — наименьшая возможная длина секции в дереве
func (id UniqueSectionID) ToAABB(atomicLength uint32) bounds.AABB {
	sideLength := float32((uint32(1) << id.Level) * atomicLength)

	minX := sideLength * float32(id.X)
	minY := sideLength * float32(id.Y)
	minZ := sideLength * float32(id.Z)

	return bounds.NewAABB(
		bounds.NewRange(minX, minX+sideLength),
		bounds.NewRange(minY, minY+sideLength),
		bounds.NewRange(minZ, minZ+sideLength),
	)
}

// maxContributingSections максимум уникальных секций, образующих общую секцию.
// Уровень подбирается так, что объём по размеру помещается в одну секцию,
// поэтому из-за позиции он может пересечь не более двух секций по каждой оси
const maxContributingSections = 8

// SharedSectionID идентификатор секции, на которую ссылаются несколько
// уникальных секций одного уровня. Смещения хранятся отсортированными,
// поэтому два одинаковых набора секций всегда дают равные идентификаторы
type SharedSectionID struct {
	Level   uint16
	Count   uint8
	Offsets [maxContributingSections]sectionOffsets
}

// NewSharedSectionID создаёт общую секцию из образующих её уникальных секций.
// Все секции должны быть одного уровня
func NewSharedSectionID(sections []UniqueSectionID) SharedSectionID {
	if len(sections) == 0 || len(sections) > maxContributingSections {
		panic(fmt.Sprintf("недопустимое количество секций для общей секции: %d", len(sections)))
	}

	level := sections[0].Level

	id := SharedSectionID{Level: level, Count: uint8(len(sections))}
	for i, section := range sections {
		if section.Level != level {
			panic(fmt.Sprintf("уровень секции не совпадает: ожидался %d, получен %d", level, section.Level))
		}
		id.Offsets[i] = sectionOffsets{X: section.X, Z: section.Z, Y: section.Y}
	}

	offsets := id.Offsets[:id.Count]
	sort.Slice(offsets, func(i, j int) bool {
		if offsets[i].X != offsets[j].X {
			return offsets[i].X < offsets[j].X
		}
		if offsets[i].Z != offsets[j].Z {
			return offsets[i].Z < offsets[j].Z
		}
		return offsets[i].Y < offsets[j].Y
	})

	return id
}

// ToSections возвращает уникальные секции, образующие общую секцию
func (id SharedSectionID) ToSections() []UniqueSectionID {
	sections := make([]UniqueSectionID, 0, id.Count)
	for _, offset := range id.Offsets[:id.Count] {
		sections = append(sections, NewUniqueSectionID(id.Level, offset.X, offset.Z, offset.Y))
	}
	return sections
}
