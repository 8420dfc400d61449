package core

import (
	"context"
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/sha3"

	"kittycore/pkg/domain"
)

// GeneScience mixes two parent genomes into a child genome. Implementations
// must be deterministic for a given seed.
type GeneScience interface {
	MixGenes(ctx context.Context, matron, sire domain.Genes, seed uint64) (domain.Genes, error)
}

// GeneScienceFunc adapts a function to GeneScience.
type GeneScienceFunc func(ctx context.Context, matron, sire domain.Genes, seed uint64) (domain.Genes, error)

// MixGenes implements GeneScience.
func (f GeneScienceFunc) MixGenes(ctx context.Context, matron, sire domain.Genes, seed uint64) (domain.Genes, error) {
	return f(ctx, matron, sire, seed)
}

var genesModulus = new(big.Int).Lsh(big.NewInt(1), 256)

// AveragingGeneScience returns (matron + sire)/2 + 1 over the 256-bit value,
// wrapping at 2^256. It ignores the seed.
type AveragingGeneScience struct{}

// MixGenes implements GeneScience.
func (AveragingGeneScience) MixGenes(_ context.Context, matron, sire domain.Genes, _ uint64) (domain.Genes, error) {
	sum := new(big.Int).Add(new(big.Int).SetBytes(matron[:]), new(big.Int).SetBytes(sire[:]))
	sum.Rsh(sum, 1)
	sum.Add(sum, big.NewInt(1))
	sum.Mod(sum, genesModulus)
	var out domain.Genes
	sum.FillBytes(out[:])
	return out, nil
}

// EntropySource derives the seed handed to GeneScience at birth.
type EntropySource interface {
	Seed(matron, sire domain.Kitty, now int64) uint64
}

// KeccakEntropy hashes both parent records and the birth time with Keccak-256
// and returns the first eight bytes of the digest.
type KeccakEntropy struct{}

// Seed implements EntropySource.
func (KeccakEntropy) Seed(matron, sire domain.Kitty, now int64) uint64 {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	_, _ = h.Write(matron.Genes[:])
	_, _ = h.Write(sire.Genes[:])
	for _, v := range []uint64{uint64(matron.ID), uint64(sire.ID), uint64(now)} {
		binary.BigEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}
