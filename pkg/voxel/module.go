// Package voxel stores block worlds in chunks and answers the solidity and
// fluidity queries the physics engine makes.
package voxel

import (
	"context"
	"errors"
	"fmt"

	"github.com/cfoust/voxphys/pkg/geom"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

var ErrUnloaded = fmt.Errorf("chunk is unloaded")

// Grid is a chunked block world. Chunks are generated the first time they
// are touched. Unload moves a chunk into the Store and Load brings it back;
// while a chunk is out, its blocks read as Unloaded.
//
// Queries are safe for concurrent use.
type Grid struct {
	registry *Registry
	generate Generator
	store    Store
	codec    *Codec

	mutex   deadlock.RWMutex
	chunks map[ChunkCoord]*Chunk
	// evicted chunks, true for all-air chunks that were not stored
	evicted map[ChunkCoord]bool
}

func NewGrid(registry *Registry, generate Generator, store Store) (*Grid, error) {
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}

	if generate == nil {
		generate = Empty
	}

	return &Grid{
		registry: registry,
		generate: generate,
		store:    store,
		codec:    codec,
		chunks:   make(map[ChunkCoord]*Chunk),
		evicted:  make(map[ChunkCoord]bool),
	}, nil
}

func (g *Grid) Registry() *Registry {
	return g.registry
}

// chunk returns the chunk at coord, generating it if it was never loaded.
// It returns nil for evicted chunks.
func (g *Grid) chunk(coord ChunkCoord) *Chunk {
	g.mutex.RLock()
	chunk, ok := g.chunks[coord]
	_, gone := g.evicted[coord]
	g.mutex.RUnlock()

	if ok {
		return chunk
	}
	if gone {
		return nil
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	// re-check, another reader may have generated it
	if chunk, ok = g.chunks[coord]; ok {
		return chunk
	}
	if _, gone = g.evicted[coord]; gone {
		return nil
	}

	chunk = NewChunk(coord)
	chunk.Fill(g.generate)
	g.chunks[coord] = chunk
	return chunk
}

func (g *Grid) Block(x, y, z int) Block {
	coord, p := Locate(x, y, z)
	chunk := g.chunk(coord)
	if chunk == nil {
		return Unloaded
	}

	g.mutex.RLock()
	b := chunk.Get(p)
	g.mutex.RUnlock()
	return b
}

func (g *Grid) SetBlock(x, y, z int, b Block) error {
	if _, ok := g.registry.Info(b); !ok {
		return fmt.Errorf("could not set block %d at %d,%d,%d: %w", b, x, y, z, ErrUnknownBlock)
	}

	coord, p := Locate(x, y, z)
	chunk := g.chunk(coord)
	if chunk == nil {
		return fmt.Errorf("could not set block at %d,%d,%d: %w", x, y, z, ErrUnloaded)
	}

	g.mutex.Lock()
	chunk.Set(p, b)
	g.mutex.Unlock()
	return nil
}

func (g *Grid) IsSolid(x, y, z int) bool {
	return g.registry.Solid(g.Block(x, y, z))
}

func (g *Grid) IsFluid(x, y, z int) bool {
	return g.registry.Fluid(g.Block(x, y, z))
}

// Loaded is the number of chunks held in memory.
func (g *Grid) Loaded() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.chunks)
}

// Unload encodes a chunk into the store and drops it from memory. All-air
// chunks are dropped without being stored.
func (g *Grid) Unload(ctx context.Context, coord ChunkCoord) error {
	g.mutex.Lock()
	chunk, ok := g.chunks[coord]
	if !ok {
		g.mutex.Unlock()
		return fmt.Errorf("could not unload %v: %w", coord, ErrUnloaded)
	}
	if chunk.IsEmpty() {
		delete(g.chunks, coord)
		g.evicted[coord] = true
		g.mutex.Unlock()
		log.Debug().Str("chunk", coord.String()).Msg("unloaded empty chunk")
		return nil
	}
	data, err := g.codec.Encode(chunk)
	g.mutex.Unlock()
	if err != nil {
		return fmt.Errorf("could not encode chunk %v: %w", coord, err)
	}

	if err := g.store.Set(ctx, coord.Key(), data); err != nil {
		return fmt.Errorf("could not store chunk %v: %w", coord, err)
	}

	g.mutex.Lock()
	delete(g.chunks, coord)
	g.evicted[coord] = false
	g.mutex.Unlock()

	log.Debug().Str("chunk", coord.String()).Int("bytes", len(data)).Msg("unloaded chunk")
	return nil
}

// Load restores a chunk from the store. Chunks that were never stored are
// generated instead.
func (g *Grid) Load(ctx context.Context, coord ChunkCoord) error {
	g.mutex.Lock()
	if empty, ok := g.evicted[coord]; ok && empty {
		g.chunks[coord] = NewChunk(coord)
		delete(g.evicted, coord)
		g.mutex.Unlock()
		return nil
	}
	g.mutex.Unlock()

	data, err := g.store.Get(ctx, coord.Key())
	if errors.Is(err, ErrMissing) {
		g.mutex.Lock()
		delete(g.evicted, coord)
		g.mutex.Unlock()
		g.chunk(coord)
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not load chunk %v: %w", coord, err)
	}

	chunk, err := g.codec.Decode(data)
	if err != nil {
		return err
	}
	if chunk.Coord != coord {
		return fmt.Errorf("stored chunk %v holds %v: %w", coord, chunk.Coord, ErrCorruptChunk)
	}

	g.mutex.Lock()
	g.chunks[coord] = chunk
	delete(g.evicted, coord)
	g.mutex.Unlock()

	log.Debug().Str("chunk", coord.String()).Msg("loaded chunk")
	return nil
}

// Retain keeps in memory only the chunks within radius chunks of one of
// boxes. Evicted chunks in range are loaded back and loaded chunks out of
// range are unloaded. It returns how many chunks moved each way.
func (g *Grid) Retain(ctx context.Context, boxes []geom.AABB, radius int) (loaded, unloaded int, err error) {
	keep := make(map[ChunkCoord]struct{})
	r := int32(radius)
	for _, box := range boxes {
		if !box.Base.IsFinite() || !box.Extent.IsFinite() {
			continue
		}

		min, max := box.VoxelRange()
		lo, _ := Locate(min[0], min[1], min[2])
		hi, _ := Locate(max[0], max[1], max[2])
		for x := lo.X - r; x <= hi.X+r; x++ {
			for y := lo.Y - r; y <= hi.Y+r; y++ {
				for z := lo.Z - r; z <= hi.Z+r; z++ {
					keep[ChunkCoord{x, y, z}] = struct{}{}
				}
			}
		}
	}

	var toLoad, toUnload []ChunkCoord
	g.mutex.RLock()
	for coord := range g.evicted {
		if _, ok := keep[coord]; ok {
			toLoad = append(toLoad, coord)
		}
	}
	for coord := range g.chunks {
		if _, ok := keep[coord]; !ok {
			toUnload = append(toUnload, coord)
		}
	}
	g.mutex.RUnlock()

	for _, coord := range toUnload {
		if err := g.Unload(ctx, coord); err != nil {
			return loaded, unloaded, err
		}
		unloaded++
	}
	for _, coord := range toLoad {
		if err := g.Load(ctx, coord); err != nil {
			return loaded, unloaded, err
		}
		loaded++
	}

	return loaded, unloaded, nil
}

func (g *Grid) Close() {
	g.codec.Close()
}
