package voxel

import (
	"fmt"
	"sort"
)

// Generator decides the block at a world position. Generators must be pure:
// the same position always yields the same block.
type Generator func(x, y, z int) Block

var ErrUnknownGenerator = fmt.Errorf("unknown generator")

// Empty is a world of air.
func Empty(x, y, z int) Block {
	return Air
}

// Flat fills everything below height with dirt and tops it with grass.
func Flat(height int) Generator {
	return func(x, y, z int) Block {
		switch {
		case y < height-1:
			return Dirt
		case y < height:
			return Grass
		}
		return Air
	}
}

// Arena is a single walled chunk at the origin. The floor is one block of
// grass, the walls nine. Up to y = 5 the interior is dirt on the near side
// of z = 20 and water beyond it.
func Arena(x, y, z int) Block {
	if !inOrigin(x, y, z) {
		return Air
	}

	height := 1
	if isRim(x, z) {
		height = 9
	}

	switch {
	case y < height:
		return Grass
	case y < 5 && z < 20:
		return Dirt
	case y < 5:
		return Water
	}
	return Air
}

type row struct {
	z     int
	block Block
}

var stepRows = []row{
	{5, ShinyDirt},
	{7, Dirt},
	{10, Dirt},
	{14, Dirt},
	{19, Dirt},
}

const (
	stepRowLength = 10
	stepRowStart  = 5
)

// Steps is a single chunk at the origin with a grass floor at y = 0, low
// walls around it, and pairs of diagonal one-block rows on y = 1 to climb
// over.
func Steps(x, y, z int) Block {
	if !inOrigin(x, y, z) {
		return Air
	}

	if y == 1 {
		for _, r := range stepRows {
			i := z - r.z
			if i < 0 || i >= stepRowLength {
				continue
			}
			if x == stepRowStart+i || x == stepRowLength*2+stepRowStart-i {
				return r.block
			}
		}
	}

	height := 0
	if isRim(x, z) {
		height = 4
	}
	if y >= 0 && y <= height {
		return Grass
	}
	return Air
}

func inOrigin(x, y, z int) bool {
	return x >= 0 && x < ChunkSize &&
		y >= 0 && y < ChunkSize &&
		z >= 0 && z < ChunkSize
}

func isRim(x, z int) bool {
	return x == 0 || x == ChunkSize-1 || z == 0 || z == ChunkSize-1
}

// Generators returns the named generators available to scenarios.
// flatHeight is used by "flat".
func Generators(flatHeight int) map[string]Generator {
	return map[string]Generator{
		"empty": Empty,
		"flat":  Flat(flatHeight),
		"arena": Arena,
		"steps": Steps,
	}
}

// GeneratorNames lists the names accepted by NamedGenerator.
func GeneratorNames() []string {
	var names []string
	for name := range Generators(0) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NamedGenerator(name string, flatHeight int) (Generator, error) {
	generator, ok := Generators(flatHeight)[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownGenerator)
	}
	return generator, nil
}
