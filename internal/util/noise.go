package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума подобраны под рельеф мира: сглаживание, частота, октавы
const (
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = int32(3)
)

var (
	perlinNoise *perlin.Perlin
	perlinSeed  int64
)

// InitPerlinNoise инициализирует генератор шума Перлина с указанным сидом
func InitPerlinNoise(seed int64) {
	perlinNoise = perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed)
	perlinSeed = seed
}

// PerlinNoise2D возвращает значение шума Перлина в диапазоне от 0 до 1.
// Генератор пересоздаётся, если он ещё не создан или сид изменился
func PerlinNoise2D(x, y float64, seed int64) float64 {
	if perlinNoise == nil || perlinSeed != seed {
		InitPerlinNoise(seed)
	}

	// Noise2D возвращает значение от -1 до 1
	noise := perlinNoise.Noise2D(x, y)
	return (noise + 1.0) / 2.0
}
