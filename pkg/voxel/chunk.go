package voxel

import "fmt"

// Chunks are 32^3 blocks. Positions inside a chunk are packed as
// x | z<<5 | y<<10, which is also the index into Blocks.
const (
	ChunkSize  = 32
	chunkShift = 5
	shiftZ     = 5
	shiftY     = 10
	mask5      = ChunkSize - 1

	ChunkVolume = ChunkSize * ChunkSize * ChunkSize
)

type ChunkCoord struct{ X, Y, Z int32 }

func (c ChunkCoord) String() string {
	return fmt.Sprintf("%d,%d,%d", c.X, c.Y, c.Z)
}

// Key identifies the chunk in a Store.
func (c ChunkCoord) Key() string {
	return fmt.Sprintf("chunk-%d-%d-%d", c.X, c.Y, c.Z)
}

// Origin is the world position of the chunk's minimum corner.
func (c ChunkCoord) Origin() (x, y, z int) {
	return int(c.X) << chunkShift, int(c.Y) << chunkShift, int(c.Z) << chunkShift
}

// Locate splits a world position into the chunk containing it and the
// position inside that chunk. Arithmetic shifts floor negative coordinates.
func Locate(x, y, z int) (ChunkCoord, uint16) {
	coord := ChunkCoord{
		X: int32(x >> chunkShift),
		Y: int32(y >> chunkShift),
		Z: int32(z >> chunkShift),
	}
	return coord, Pack(uint8(x&mask5), uint8(y&mask5), uint8(z&mask5))
}

func Pack(x, y, z uint8) uint16 {
	return uint16(x) | (uint16(z) << shiftZ) | (uint16(y) << shiftY)
}

func Unpack(p uint16) (x, y, z uint8) {
	x = uint8(p & mask5)
	z = uint8((p >> shiftZ) & mask5)
	y = uint8((p >> shiftY) & mask5)
	return
}

type Chunk struct {
	Coord  ChunkCoord
	Blocks [ChunkVolume]Block
}

func NewChunk(coord ChunkCoord) *Chunk {
	return &Chunk{Coord: coord}
}

func (c *Chunk) Get(p uint16) Block {
	return c.Blocks[p]
}

func (c *Chunk) Set(p uint16, b Block) {
	c.Blocks[p] = b
}

// Fill generates every block of the chunk.
func (c *Chunk) Fill(generate Generator) {
	ox, oy, oz := c.Coord.Origin()
	for i := range c.Blocks {
		x, y, z := Unpack(uint16(i))
		c.Blocks[i] = generate(ox+int(x), oy+int(y), oz+int(z))
	}
}

// IsEmpty reports whether the chunk is all air.
func (c *Chunk) IsEmpty() bool {
	for _, b := range c.Blocks {
		if b != Air {
			return false
		}
	}
	return true
}
