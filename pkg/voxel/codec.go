package voxel

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

const codecVersion = 1

var (
	ErrCorruptChunk = fmt.Errorf("chunk checksum mismatch")
	ErrChunkVersion = fmt.Errorf("unsupported chunk version")
)

type encodedChunk struct {
	Version  int    `cbor:"v"`
	X        int32  `cbor:"x"`
	Y        int32  `cbor:"y"`
	Z        int32  `cbor:"z"`
	Checksum uint64 `cbor:"sum"`
	Data     []byte `cbor:"data"`
}

// Codec turns chunks into compact byte slices for storage. It is safe for
// concurrent use.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewCodec() (*Codec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &Codec{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func (c *Codec) Encode(chunk *Chunk) ([]byte, error) {
	raw := make([]byte, ChunkVolume)
	for i, b := range chunk.Blocks {
		raw[i] = byte(b)
	}

	return cbor.Marshal(encodedChunk{
		Version:  codecVersion,
		X:        chunk.Coord.X,
		Y:        chunk.Coord.Y,
		Z:        chunk.Coord.Z,
		Checksum: xxhash.Sum64(raw),
		Data:     c.encoder.EncodeAll(raw, nil),
	})
}

func (c *Codec) Decode(data []byte) (*Chunk, error) {
	var encoded encodedChunk
	if err := cbor.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("could not decode chunk: %w", err)
	}

	coord := ChunkCoord{X: encoded.X, Y: encoded.Y, Z: encoded.Z}
	if encoded.Version != codecVersion {
		return nil, fmt.Errorf("chunk %v has version %d: %w", coord, encoded.Version, ErrChunkVersion)
	}

	raw, err := c.decoder.DecodeAll(encoded.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("could not decompress chunk %v: %w", coord, err)
	}

	if len(raw) != ChunkVolume || xxhash.Sum64(raw) != encoded.Checksum {
		return nil, fmt.Errorf("chunk %v: %w", coord, ErrCorruptChunk)
	}

	chunk := NewChunk(coord)
	for i, b := range raw {
		chunk.Blocks[i] = Block(b)
	}
	return chunk, nil
}

func (c *Codec) Close() {
	c.decoder.Close()
	c.encoder.Close()
}
