package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/annel0/spacemmo/internal/culling"
	"github.com/annel0/spacemmo/internal/entity"
	"github.com/annel0/spacemmo/internal/vec"
	"github.com/annel0/spacemmo/internal/world"
	"github.com/annel0/spacemmo/internal/world/bounds"
)

// GenericResponse стандартный ответ API
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RangeJSON диапазон по одной оси
type RangeJSON struct {
	Min float32 `json:"min"`
	Max float32 `json:"max"`
}

// VolumeJSON ограничивающий объём в теле запроса
type VolumeJSON struct {
	X RangeJSON `json:"x"`
	Y RangeJSON `json:"y"`
	Z RangeJSON `json:"z"`
}

func (v VolumeJSON) toAABB() bounds.AABB {
	return bounds.NewAABB(
		bounds.NewRange(v.X.Min, v.X.Max),
		bounds.NewRange(v.Y.Min, v.Y.Max),
		bounds.NewRange(v.Z.Min, v.Z.Max),
	)
}

func volumeJSON(aabb bounds.AABB) VolumeJSON {
	return VolumeJSON{
		X: RangeJSON{Min: aabb.X.Min, Max: aabb.X.Max},
		Y: RangeJSON{Min: aabb.Y.Min, Max: aabb.Y.Max},
		Z: RangeJSON{Min: aabb.Z.Min, Max: aabb.Z.Max},
	}
}

// SpawnRequest тело запроса на создание сущности
type SpawnRequest struct {
	Volume VolumeJSON `json:"volume"`
	Static bool       `json:"static"`
	Light  string     `json:"light"`
}

// MoveRequest тело запроса на перемещение сущности
type MoveRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	DZ float64 `json:"dz"`
}

// EntityResponse описание сущности в ответе API
type EntityResponse struct {
	ID     uint64     `json:"id"`
	Volume VolumeJSON `json:"volume"`
	Static bool       `json:"static"`
	Light  string     `json:"light"`
}

func parseLightType(name string) (world.LightType, error) {
	switch name {
	case "", "none":
		return world.LightNone, nil
	case "directional":
		return world.LightDirectional, nil
	case "point":
		return world.LightPoint, nil
	case "spot":
		return world.LightSpot, nil
	default:
		return world.LightNone, fmt.Errorf("неизвестный тип источника света: %s", name)
	}
}

func lightTypeName(light world.LightType) string {
	switch light {
	case world.LightDirectional:
		return "directional"
	case world.LightPoint:
		return "point"
	case world.LightSpot:
		return "spot"
	default:
		return "none"
	}
}

// handleHealth проверка живости сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleServerInfo возвращает метрики процесса сервера
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	c.JSON(http.StatusOK, gin.H{
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   memoryMB,
		"cpu_percent": cpuPercent,
		"memory":      rs.metrics.GetDetailedMemoryStats(),
	})
}

// handleWorldStats возвращает сводку по пространственному индексу мира
func (rs *RestServer) handleWorldStats(c *gin.Context) {
	stats := rs.manager.Stats()

	c.JSON(http.StatusOK, gin.H{
		"outline_length":  stats.OutlineLength,
		"atomic_length":   stats.AtomicLength,
		"max_level":       stats.MaxLevel,
		"entities":        stats.Entities,
		"sections":        stats.Sections,
		"shared_sections": stats.SharedSections,
		"static_sections": stats.StaticSections,
		"lit_sections":    stats.LitSections,
	})
}

// handleVisible возвращает сущности в радиусе от точки наблюдения
func (rs *RestServer) handleVisible(c *gin.Context) {
	x, errX := strconv.ParseFloat(c.Query("x"), 64)
	y, errY := strconv.ParseFloat(c.Query("y"), 64)
	z, errZ := strconv.ParseFloat(c.Query("z"), 64)
	radius, errR := strconv.ParseFloat(c.DefaultQuery("radius", "64"), 64)
	if errX != nil || errY != nil || errZ != nil || errR != nil || radius <= 0 {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Параметры x, y, z и radius должны быть числами",
		})
		return
	}

	// Обход идёт от существующих секций, пересекающих область интереса;
	// менеджер собирает их и обходит под своей блокировкой чтения
	view := bounds.NewAABB(
		bounds.NewRange(float32(x-radius), float32(x+radius)),
		bounds.NewRange(float32(y-radius), float32(y+radius)),
		bounds.NewRange(float32(z-radius), float32(z+radius)),
	)

	origin := vec.Vec3Float{X: x, Y: y, Z: z}
	results := rs.manager.FindInView(view, culling.NewRadiusCuller(origin, radius))

	entityIDs := make([]uint64, 0)
	for _, result := range results {
		for entityID := range result.Entities {
			entityIDs = append(entityIDs, uint64(entityID))
		}
		for entityID := range result.Static {
			entityIDs = append(entityIDs, uint64(entityID))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"sections": len(results),
		"entities": entityIDs,
	})
}

// handleSpawnEntity создаёт сущность в мире
func (rs *RestServer) handleSpawnEntity(c *gin.Context) {
	var req SpawnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Некорректное тело запроса: " + err.Error(),
		})
		return
	}

	light, err := parseLightType(req.Light)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	id, err := rs.manager.Spawn(req.Volume.toAABB(), req.Static, light)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, GenericResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	rs.logger.Debug("Сущность %d создана через API", id)
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": uint64(id)})
}

// handleGetEntity возвращает сущность по идентификатору
func (rs *RestServer) handleGetEntity(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Некорректный идентификатор"})
		return
	}

	ent, ok := rs.manager.Get(world.EntityID(id))
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Сущность не найдена"})
		return
	}

	c.JSON(http.StatusOK, EntityResponse{
		ID:     uint64(ent.ID),
		Volume: volumeJSON(ent.Volume),
		Static: ent.Static,
		Light:  lightTypeName(ent.Light),
	})
}

// handleRemoveEntity удаляет сущность из мира
func (rs *RestServer) handleRemoveEntity(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Некорректный идентификатор"})
		return
	}

	if _, ok := rs.manager.Get(world.EntityID(id)); !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Сущность не найдена"})
		return
	}

	rs.manager.Remove(world.EntityID(id))
	c.JSON(http.StatusOK, GenericResponse{Success: true})
}

// handleMoveEntity сдвигает сущность на вектор из тела запроса
func (rs *RestServer) handleMoveEntity(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Некорректный идентификатор"})
		return
	}

	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Некорректное тело запроса: " + err.Error(),
		})
		return
	}

	delta := vec.Vec3Float{X: req.DX, Y: req.DY, Z: req.DZ}
	if err := rs.manager.Move(world.EntityID(id), delta); err != nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true})
}

// handleSaveSnapshot сохраняет снимок текущего состояния мира
func (rs *RestServer) handleSaveSnapshot(c *gin.Context) {
	if rs.store == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Хранилище снимков не настроено",
		})
		return
	}

	// Блокировка мира держится на время сериализации снимка
	var id string
	err := rs.manager.WithSnapshot(func(snapshot *entity.WorldSnapshot) error {
		var saveErr error
		id, saveErr = rs.store.SaveSnapshot(snapshot)
		return saveErr
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}

// handleListSnapshots возвращает идентификаторы сохранённых снимков
func (rs *RestServer) handleListSnapshots(c *gin.Context) {
	if rs.store == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Хранилище снимков не настроено",
		})
		return
	}

	ids, err := rs.store.ListSnapshots()
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": ids})
}
